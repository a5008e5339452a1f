package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jkeller/fecdash/internal/config"
	"github.com/jkeller/fecdash/internal/model"
	"github.com/jkeller/fecdash/internal/service"
	"github.com/jkeller/fecdash/internal/store"
	"github.com/spf13/cobra"
)

var crawlCycle int
var crawlResume bool
var crawlSeedsPath string
var crawlRetryFailed bool

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl FEC campaign finance data for an election cycle",
	Long: `Crawl downloads and reconciles campaign finance data from the OpenFEC API.

For every candidate active in the cycle, the crawl resolves the principal
campaign committee from cycle-scoped designation history, fetches all period
reports, deduplicates amendments, validates period sums against cycle
totals, and upserts the normalized records into PostgreSQL. Progress is
checkpointed so an interrupted crawl resumes where it left off.

Exit status: 0 = completed cleanly, 1 = fatal error, 2 = completed with
logged failures, anomalies, or merge suggestions needing review.

Examples:
  # Crawl the 2026 cycle
  ./fecdash crawl --cycle 2026

  # Resume an interrupted crawl
  ./fecdash crawl --cycle 2026 --resume

  # Apply curated person merges during the crawl
  ./fecdash crawl --cycle 2026 --seeds seeds/persons.json

  # Re-crawl only the candidates that failed last time
  ./fecdash crawl --cycle 2026 --retry-failed`,
	Run: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().IntVarP(&crawlCycle, "cycle", "c", 0, "Election cycle to crawl (even year, e.g. 2026)")
	crawlCmd.Flags().BoolVar(&crawlResume, "resume", false, "Resume from the cycle's checkpoint if one exists")
	crawlCmd.Flags().StringVar(&crawlSeedsPath, "seeds", "", "Path to a JSON person-merge seed file")
	crawlCmd.Flags().BoolVar(&crawlRetryFailed, "retry-failed", false, "Re-crawl only candidates recorded as failed")
	crawlCmd.MarkFlagRequired("cycle")
}

func runCrawl(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals; the checkpoint makes Ctrl-C safe.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	var seeds []model.PersonSeed
	if crawlSeedsPath != "" {
		seeds, err = service.LoadSeeds(crawlSeedsPath)
		if err != nil {
			log.Fatalf("Failed to load person seeds: %v", err)
		}
		log.Printf("Loaded %d person seeds", len(seeds))
	}

	log.Println("Connecting to database...")
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	// Create dependencies
	budget := int(float64(cfg.HourlyQuota) * cfg.QuotaTarget)
	client := service.NewFECClient(cfg.BaseURL, cfg.APIKey, budget)
	records := store.NewRecords(db)
	checkpoints := store.NewCheckpointStore(db)
	identity := service.NewIdentityResolver(store.NewPersonStore(db))

	crawler := service.NewCycleCrawler(
		service.NewCandidateCrawler(client, cfg.PerPage),
		service.NewCommitteeResolver(client),
		service.NewFilingCrawler(client, cfg.PerPage),
		identity,
		records,
		checkpoints,
		cfg.CheckpointEvery,
	)

	// Handle --retry-failed
	if crawlRetryFailed {
		stats, err := crawler.RecrawlFailed(ctx, crawlCycle)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Re-crawl cancelled")
				crawler.PrintSummary(crawlCycle, stats)
				os.Exit(1)
			}
			log.Fatalf("Re-crawl failed: %v", err)
		}
		crawler.PrintSummary(crawlCycle, stats)
		if !stats.Clean() {
			os.Exit(2)
		}
		return
	}

	log.Printf("Starting crawl for cycle %d (budget %d requests/hour)", crawlCycle, budget)
	stats, err := crawler.Run(ctx, crawlCycle, crawlResume, seeds)
	if err != nil {
		if ctx.Err() != nil {
			log.Println("Crawl cancelled; progress checkpointed")
			crawler.PrintSummary(crawlCycle, stats)
			os.Exit(1)
		}
		log.Fatalf("Crawl failed: %v", err)
	}
	crawler.PrintSummary(crawlCycle, stats)

	// Calculate and store cycle metrics
	log.Println("\nCalculating cycle metrics...")
	metricsService := service.NewMetricsService(db)
	cycleMetrics, err := metricsService.CalculateAndStore(ctx, crawlCycle)
	if err != nil {
		log.Printf("Warning: Failed to calculate metrics: %v", err)
	} else {
		log.Println("")
		log.Println("=== Cycle Metrics ===")
		log.Printf("Candidates:        %d", cycleMetrics.TotalCandidates)
		log.Printf("Funded candidates: %d", cycleMetrics.FundedCandidates)
		log.Printf("Total receipts:    $%s", cycleMetrics.TotalReceipts.StringFixed(2))
		log.Printf("Total spent:       $%s", cycleMetrics.TotalDisbursements.StringFixed(2))
		log.Printf("Top fundraiser:    %s ($%s)", cycleMetrics.TopFundraiser, cycleMetrics.TopFundraiserTotal.StringFixed(2))
	}

	// Exit with review code if anything needs attention
	if !stats.Clean() {
		os.Exit(2)
	}
}
