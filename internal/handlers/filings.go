package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jkeller/fecdash/internal/model"
	"github.com/jkeller/fecdash/internal/store"
	"github.com/shopspring/decimal"
)

type filingJSON struct {
	CommitteeID   string          `json:"committee_id"`
	ReportType    string          `json:"report_type"`
	ReportPeriod  string          `json:"report_period"`
	CoverageStart string          `json:"coverage_start"`
	CoverageEnd   string          `json:"coverage_end"`
	Receipts      decimal.Decimal `json:"receipts"`
	Disbursements decimal.Decimal `json:"disbursements"`
	CashBeginning decimal.Decimal `json:"cash_beginning"`
	CashEnding    decimal.Decimal `json:"cash_ending"`
	FileNumber    *int64          `json:"file_number"`
	Amended       bool            `json:"amended"`
}

func toFilingJSON(rec model.FinancialPeriodRecord) filingJSON {
	out := filingJSON{
		CommitteeID:   rec.CommitteeID,
		ReportType:    rec.ReportType,
		ReportPeriod:  rec.ReportPeriod,
		CoverageStart: rec.CoverageStart.Format("2006-01-02"),
		CoverageEnd:   rec.CoverageEnd.Format("2006-01-02"),
		Receipts:      rec.Receipts,
		Disbursements: rec.Disbursements,
		CashBeginning: rec.CashBeginning,
		CashEnding:    rec.CashEnding,
		Amended:       rec.Amended,
	}
	if rec.FileNumber.Valid {
		out.FileNumber = &rec.FileNumber.Int64
	}
	return out
}

// CandidateFilingsHandler lists a candidate's reconciled period
// filings for a cycle
func CandidateFilingsHandler(filings *store.FilingStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cycle, err := queryCycle(c)
		if err != nil {
			return err
		}
		candidateID := c.Params("id")

		records, err := filings.ListPeriodFilings(c.Context(), candidateID, cycle)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading filings")
		}

		out := make([]filingJSON, len(records))
		for i, rec := range records {
			out[i] = toFilingJSON(rec)
		}

		return c.JSON(fiber.Map{
			"candidate_id": candidateID,
			"cycle":        cycle,
			"filings":      out,
		})
	}
}

// AnomaliesHandler lists a cycle's flagged reconciliation anomalies
func AnomaliesHandler(filings *store.FilingStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cycle, err := queryCycle(c)
		if err != nil {
			return err
		}

		anomalies, err := filings.ListAnomalies(c.Context(), cycle)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading anomalies")
		}

		type anomalyJSON struct {
			Kind        string          `json:"kind"`
			CandidateID string          `json:"candidate_id"`
			Cycle       int             `json:"cycle"`
			Expected    decimal.Decimal `json:"expected"`
			Actual      decimal.Decimal `json:"actual"`
			Detail      string          `json:"detail"`
			DetectedAt  time.Time       `json:"detected_at"`
		}

		out := make([]anomalyJSON, len(anomalies))
		for i, a := range anomalies {
			out[i] = anomalyJSON{
				Kind:        a.Kind,
				CandidateID: a.CandidateID,
				Cycle:       a.Cycle,
				Expected:    a.Expected,
				Actual:      a.Actual,
				Detail:      a.Detail,
				DetectedAt:  a.DetectedAt,
			}
		}

		return c.JSON(fiber.Map{"cycle": cycle, "anomalies": out})
	}
}
