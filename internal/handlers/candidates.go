package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jkeller/fecdash/internal/model"
	"github.com/jkeller/fecdash/internal/store"
)

// candidateJSON is the wire shape for a candidate registration.
type candidateJSON struct {
	CandidateID    string  `json:"candidate_id"`
	Name           string  `json:"name"`
	Party          string  `json:"party"`
	State          string  `json:"state"`
	District       *string `json:"district"`
	Office         string  `json:"office"`
	Cycle          int     `json:"cycle"`
	Active         bool    `json:"active"`
	HasRaisedFunds bool    `json:"has_raised_funds"`
	PersonSlug     *string `json:"person_slug"`
}

func toCandidateJSON(c model.Candidate) candidateJSON {
	out := candidateJSON{
		CandidateID:    c.CandidateID,
		Name:           c.Name,
		Party:          c.Party,
		State:          c.State,
		Office:         c.Office,
		Cycle:          c.Cycle,
		Active:         c.Active,
		HasRaisedFunds: c.HasRaisedFunds,
	}
	if c.District.Valid {
		out.District = &c.District.String
	}
	if c.PersonSlug.Valid {
		out.PersonSlug = &c.PersonSlug.String
	}
	return out
}

// queryCycle parses the required cycle query parameter.
func queryCycle(c *fiber.Ctx) (int, error) {
	cycle, err := strconv.Atoi(c.Query("cycle"))
	if err != nil || cycle <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "cycle query parameter is required")
	}
	return cycle, nil
}

// CandidatesHandler lists a cycle's candidates
func CandidatesHandler(candidates *store.CandidateStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cycle, err := queryCycle(c)
		if err != nil {
			return err
		}

		sortBy := c.Query("sort", "candidate_id")
		order := c.Query("order", "asc")

		list, err := candidates.ListCandidatesSorted(c.Context(), cycle, sortBy, order)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading candidates")
		}

		out := make([]candidateJSON, len(list))
		for i, cand := range list {
			out[i] = toCandidateJSON(cand)
		}

		return c.JSON(fiber.Map{"cycle": cycle, "candidates": out})
	}
}

// CandidateDetailHandler returns one candidate with its cycle summary
// and committee designations
func CandidateDetailHandler(candidates *store.CandidateStore, filings *store.FilingStore, committees *store.CommitteeStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cycle, err := queryCycle(c)
		if err != nil {
			return err
		}
		candidateID := c.Params("id")

		cand, err := candidates.GetCandidate(c.Context(), candidateID, cycle)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading candidate")
		}
		if cand == nil {
			return fiber.NewError(fiber.StatusNotFound, "candidate not found")
		}

		summary, err := filings.GetCycleSummary(c.Context(), candidateID, cycle)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading cycle summary")
		}

		designations, err := committees.ListDesignationsForCandidate(c.Context(), candidateID, cycle)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading designations")
		}

		resp := fiber.Map{
			"candidate":    toCandidateJSON(*cand),
			"designations": toDesignationJSON(designations),
		}
		if summary != nil {
			resp["cycle_summary"] = fiber.Map{
				"total_receipts":      summary.TotalReceipts,
				"total_disbursements": summary.TotalDisbursements,
				"cash_on_hand":        summary.CashOnHand,
			}
		}

		return c.JSON(resp)
	}
}

type designationJSON struct {
	CommitteeID   string `json:"committee_id"`
	CommitteeName string `json:"committee_name"`
	Cycle         int    `json:"cycle"`
	Designation   string `json:"designation"`
	Principal     bool   `json:"principal"`
}

func toDesignationJSON(designations []model.CommitteeDesignation) []designationJSON {
	out := make([]designationJSON, len(designations))
	for i, d := range designations {
		out[i] = designationJSON{
			CommitteeID:   d.CommitteeID,
			CommitteeName: d.CommitteeName,
			Cycle:         d.Cycle,
			Designation:   d.Designation,
			Principal:     d.IsPrincipal(),
		}
	}
	return out
}
