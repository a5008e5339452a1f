package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jkeller/fecdash/internal/service"
	"github.com/shopspring/decimal"
)

// MetricsHandler returns the stored rollup metrics for a cycle
func MetricsHandler(metrics *service.MetricsService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cycle, err := queryCycle(c)
		if err != nil {
			return err
		}

		m, err := metrics.Get(c.Context(), cycle)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "error loading metrics")
		}
		if m == nil {
			return fiber.NewError(fiber.StatusNotFound, "no metrics for cycle")
		}

		type metricsJSON struct {
			Cycle              int             `json:"cycle"`
			TotalCandidates    int             `json:"total_candidates"`
			FundedCandidates   int             `json:"funded_candidates"`
			TotalReceipts      decimal.Decimal `json:"total_receipts"`
			TotalDisbursements decimal.Decimal `json:"total_disbursements"`
			TopFundraiser      string          `json:"top_fundraiser"`
			TopFundraiserTotal decimal.Decimal `json:"top_fundraiser_total"`
			OpenAnomalies      int             `json:"open_anomalies"`
		}

		return c.JSON(metricsJSON{
			Cycle:              m.Cycle,
			TotalCandidates:    m.TotalCandidates,
			FundedCandidates:   m.FundedCandidates,
			TotalReceipts:      m.TotalReceipts,
			TotalDisbursements: m.TotalDisbursements,
			TopFundraiser:      m.TopFundraiser,
			TopFundraiserTotal: m.TopFundraiserTotal,
			OpenAnomalies:      m.OpenAnomalies,
		})
	}
}
