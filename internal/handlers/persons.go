package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jkeller/fecdash/internal/model"
	"github.com/jkeller/fecdash/internal/store"
)

type personJSON struct {
	Slug          string `json:"slug"`
	DisplayName   string `json:"display_name"`
	Party         string `json:"party"`
	State         string `json:"state"`
	CurrentOffice string `json:"current_office"`
	Incumbent     bool   `json:"incumbent"`
}

func toPersonJSON(p model.PoliticalPerson) personJSON {
	return personJSON{
		Slug:          p.Slug,
		DisplayName:   p.DisplayName,
		Party:         p.Party,
		State:         p.State,
		CurrentOffice: p.CurrentOffice,
		Incumbent:     p.Incumbent,
	}
}

// PersonsHandler lists all resolved political persons
func PersonsHandler(persons *store.PersonStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := persons.ListPersons(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading persons")
		}

		out := make([]personJSON, len(list))
		for i, p := range list {
			out[i] = toPersonJSON(p)
		}

		return c.JSON(fiber.Map{"persons": out})
	}
}

// PersonDetailHandler returns one person with their linked candidate
// registrations and combined principal-committee fundraising per cycle
func PersonDetailHandler(persons *store.PersonStore, candidates *store.CandidateStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")

		person, err := persons.GetBySlug(c.Context(), slug)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading person")
		}
		if person == nil {
			return fiber.NewError(fiber.StatusNotFound, "person not found")
		}

		linked, err := candidates.ListCandidatesForPerson(c.Context(), slug)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading linked candidates")
		}

		fundraising, err := persons.CombinedFundraising(c.Context(), slug)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading fundraising")
		}

		candidateOut := make([]candidateJSON, len(linked))
		for i, cand := range linked {
			candidateOut[i] = toCandidateJSON(cand)
		}

		return c.JSON(fiber.Map{
			"person":      toPersonJSON(*person),
			"candidates":  candidateOut,
			"fundraising": fundraising,
		})
	}
}
