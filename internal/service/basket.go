package service

import (
	"encoding/json"
	"strings"

	"booking-pricing/internal/model"
	"booking-pricing/internal/pricing"

	"github.com/shopspring/decimal"
)

// DecodeBasket returns the decoded cart when it is a JSON object or array and
// nil for anything else, including malformed JSON.
func DecodeBasket(raw *string) any {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(*raw), &decoded); err != nil {
		return nil
	}
	switch decoded.(type) {
	case map[string]any, []any:
		return decoded
	}
	return nil
}

// bookingTotals are the totals the booking row itself records.
func bookingTotals(b *model.Booking) model.Totals {
	return model.Totals{
		"total":          b.PriceTotal,
		"paid_total":     b.PaidTotal,
		"pending_amount": pendingAmount(b.PriceTotal, b.PaidTotal),
	}
}

// basketTotals prefers the cart's own figures field by field.
func basketTotals(basket any, b *model.Booking) model.Totals {
	totals := bookingTotals(b)
	cart, ok := basket.(map[string]any)
	if !ok {
		return totals
	}

	total, hasTotal := pricing.ToFloat(cart["price_total"])
	if hasTotal {
		totals["total"] = total
	} else {
		total = b.PriceTotal
	}
	paid, hasPaid := pricing.ToFloat(cart["paid_total"])
	if hasPaid {
		totals["paid_total"] = paid
	} else {
		paid = b.PaidTotal
	}

	if pending, ok := pricing.ToFloat(cart["pending_amount"]); ok {
		totals["pending_amount"] = pending
	} else {
		totals["pending_amount"] = pendingAmount(total, paid)
	}
	return totals
}

func pendingAmount(total, paid float64) float64 {
	pending := decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(paid))
	if pending.IsNegative() {
		return 0
	}
	return pending.Round(2).InexactFloat64()
}

// mergeTotals shallow-merges override totals over base, key by key.
func mergeTotals(base model.Totals, overrides map[string]any) model.Totals {
	merged := model.Totals{}
	for k, v := range base {
		merged[k] = v
	}

	var extra map[string]any
	switch v := overrides["totals"].(type) {
	case map[string]any:
		extra = v
	case model.Totals:
		extra = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
