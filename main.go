package main

import "github.com/jkeller/fecdash/cmd"

func main() {
	cmd.Execute()
}
