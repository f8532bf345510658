// Package report aggregates receipts into daily summaries. Manually
// backfilled receipts are always broken out separately so live sales and
// after-the-fact entries never blur together in the numbers.
package report

import (
	"time"

	"sakupos/backend/internal/domain"
)

type DailySummary struct {
	Date            string             `json:"date"`
	Receipts        int                `json:"receipts"`
	ManualReceipts  int                `json:"manual_receipts"`
	GrossCents      int64              `json:"gross_cents"`
	DiscountCents   int64              `json:"discount_cents"`
	NetCents        int64              `json:"net_cents"`
	ProfitCents     int64              `json:"profit_cents"`
	LiveNetCents    int64              `json:"live_net_cents"`
	ManualNetCents  int64              `json:"manual_net_cents"`
	ByPaymentMethod []PaymentBreakdown `json:"by_payment_method"`
}

type PaymentBreakdown struct {
	PaymentMethod string `json:"payment_method"`
	Receipts      int    `json:"receipts"`
	NetCents      int64  `json:"net_cents"`
}

// Summarize folds the receipts that fall on the given UTC day.
func Summarize(receipts []domain.Receipt, day time.Time) DailySummary {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	summary := DailySummary{Date: start.Format("2006-01-02")}
	byPayment := map[string]*PaymentBreakdown{}
	order := []string{}

	for _, r := range receipts {
		at := r.CreatedAt.UTC()
		if at.Before(start) || !at.Before(end) {
			continue
		}

		summary.Receipts++
		summary.GrossCents += r.SubtotalCents
		summary.DiscountCents += r.DiscountCents
		summary.NetCents += r.TotalCents
		summary.ProfitCents += r.ProfitCents
		if r.Manual {
			summary.ManualReceipts++
			summary.ManualNetCents += r.TotalCents
		} else {
			summary.LiveNetCents += r.TotalCents
		}

		method := r.PaymentMethod
		if method == "" {
			method = "unspecified"
		}
		entry, ok := byPayment[method]
		if !ok {
			entry = &PaymentBreakdown{PaymentMethod: method}
			byPayment[method] = entry
			order = append(order, method)
		}
		entry.Receipts++
		entry.NetCents += r.TotalCents
	}

	summary.ByPaymentMethod = make([]PaymentBreakdown, 0, len(order))
	for _, method := range order {
		summary.ByPaymentMethod = append(summary.ByPaymentMethod, *byPayment[method])
	}
	return summary
}
