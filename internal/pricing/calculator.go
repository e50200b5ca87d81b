package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// reconciliationTolerance absorbs cent-level rounding between the computed
// total and the sum of payments.
var reconciliationTolerance = decimal.NewFromFloat(0.01)

const (
	PaymentPaid          = "paid"
	PaymentRefund        = "refund"
	PaymentPartialRefund = "partial_refund"
)

const (
	StatusBalanced  = "balanced"
	StatusUnderpaid = "underpaid"
	StatusOverpaid  = "overpaid"
)

type BookingTotal struct {
	ActivitiesPrice float64   `json:"activities_price"`
	Discounts       []float64 `json:"discounts"`
	TotalFinal      float64   `json:"total_final"`
}

func (t BookingTotal) DiscountTotal() float64 {
	sum := decimal.Zero
	for _, d := range t.Discounts {
		sum = sum.Add(dec(d))
	}
	return round2(sum)
}

type FinancialReality struct {
	CalculatedTotal   float64 `json:"calculated_total"`
	RecordedTotal     float64 `json:"recorded_total"`
	RecordedPaidTotal float64 `json:"recorded_paid_total"`
	TotalPaid         float64 `json:"total_paid"`
	TotalRefunded     float64 `json:"total_refunded"`
	NetPaid           float64 `json:"net_paid"`
	PendingAmount     float64 `json:"pending_amount"`
	Difference        float64 `json:"difference"`
	HasDiscrepancy    bool    `json:"has_discrepancy"`
	Status            string  `json:"status"`
}

type CourseContext struct {
	CourseID      uint          `json:"course_id"`
	Flexible      bool          `json:"flexible"`
	BasePrice     float64       `json:"base_price"`
	GlobalRules   DayRules      `json:"global_rules"`
	IntervalRules IntervalRules `json:"interval_rules"`
}

type PricingContext struct {
	DiscountCodeID     *uint           `json:"discount_code_id"`
	IntervalDiscountID *uint           `json:"interval_discount_id"`
	CourseDiscountID   *uint           `json:"course_discount_id"`
	Courses            []CourseContext `json:"courses"`
}

// Calculator prices bookings without touching storage.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

type lineGroup struct {
	courseID uint
	clientID uint
	lines    []BookingLine
}

func (c *Calculator) CalculateBookingTotal(b Booking) BookingTotal {
	activities := decimal.Zero
	for _, g := range groupLines(b.Lines) {
		activities = activities.Add(dec(groupPrice(b.Courses, g)))
	}
	activities = activities.Round(2)

	running := activities
	discounts := []float64{}

	if b.DiscountCodeID != nil && b.DiscountCodeValue > 0 {
		var amount decimal.Decimal
		switch b.DiscountType {
		case "fixed", "fixed_amount":
			amount = dec(b.DiscountCodeValue)
		default:
			amount = running.Mul(dec(b.DiscountCodeValue)).Div(decimal.NewFromInt(100))
		}
		amount = decimal.Min(amount, running).Round(2)
		if amount.IsPositive() {
			discounts = append(discounts, amount.InexactFloat64())
			running = running.Sub(amount)
		}
	}

	if b.HasReduction && b.PriceReduction > 0 {
		amount := decimal.Min(dec(b.PriceReduction), running).Round(2)
		if amount.IsPositive() {
			discounts = append(discounts, amount.InexactFloat64())
			running = running.Sub(amount)
		}
	}

	total := nonNegative(running)
	if b.HasCancellationInsurance {
		total = total.Add(dec(b.PriceCancellationInsurance))
	}
	if b.HasTax {
		total = total.Add(dec(b.PriceTax))
	}

	return BookingTotal{
		ActivitiesPrice: activities.InexactFloat64(),
		Discounts:       discounts,
		TotalFinal:      round2(total),
	}
}

// groupLines buckets non-cancelled lines by (course, client) in first-seen order.
func groupLines(lines []BookingLine) []*lineGroup {
	var groups []*lineGroup
	index := map[[2]uint]*lineGroup{}
	for _, line := range lines {
		if line.Cancelled() {
			continue
		}
		key := [2]uint{line.CourseID, line.ClientID}
		g, ok := index[key]
		if !ok {
			g = &lineGroup{courseID: line.CourseID, clientID: line.ClientID}
			index[key] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, line)
	}
	return groups
}

func groupPrice(courses map[uint]Course, g *lineGroup) float64 {
	course, ok := courses[g.courseID]
	if ok && course.Type == CourseCollective {
		if course.IsFlexible {
			return TotalForFlexibleCollective(course, g.lines)
		}
		return course.Price
	}

	sum := decimal.Zero
	for _, line := range g.lines {
		sum = sum.Add(dec(line.Price))
	}
	return round2(sum)
}

// AnalyzeFinancialReality compares calculated against what the booking records
// and what its payments actually add up to.
func (c *Calculator) AnalyzeFinancialReality(b Booking, calculated BookingTotal) FinancialReality {
	paid, refunded := decimal.Zero, decimal.Zero
	for _, p := range b.Payments {
		switch p.Status {
		case PaymentPaid:
			paid = paid.Add(dec(p.Amount))
		case PaymentRefund, PaymentPartialRefund:
			refunded = refunded.Add(dec(p.Amount))
		}
	}
	net := paid.Sub(refunded)
	total := dec(calculated.TotalFinal)
	recorded := dec(b.PriceTotal)
	difference := total.Sub(recorded)

	status := StatusBalanced
	switch gap := total.Sub(net); {
	case gap.Abs().LessThanOrEqual(reconciliationTolerance):
	case gap.IsPositive():
		status = StatusUnderpaid
	default:
		status = StatusOverpaid
	}

	return FinancialReality{
		CalculatedTotal:   calculated.TotalFinal,
		RecordedTotal:     round2(recorded),
		RecordedPaidTotal: round2(dec(b.PaidTotal)),
		TotalPaid:         round2(paid),
		TotalRefunded:     round2(refunded),
		NetPaid:           round2(net),
		PendingAmount:     round2(nonNegative(total.Sub(net))),
		Difference:        round2(difference),
		HasDiscrepancy:    difference.Abs().GreaterThan(reconciliationTolerance),
		Status:            status,
	}
}

// Context returns the discount configuration that produced a price, for
// embedding next to it.
func (c *Calculator) Context(b Booking) PricingContext {
	ids := make([]uint, 0, len(b.Courses))
	for id := range b.Courses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	courses := make([]CourseContext, 0, len(ids))
	for _, id := range ids {
		course := b.Courses[id]
		global, intervals := ResolveRules(course)
		courses = append(courses, CourseContext{
			CourseID:      course.ID,
			Flexible:      course.IsFlexible,
			BasePrice:     course.Price,
			GlobalRules:   global,
			IntervalRules: intervals,
		})
	}

	return PricingContext{
		DiscountCodeID:     b.DiscountCodeID,
		IntervalDiscountID: b.IntervalDiscountID,
		CourseDiscountID:   b.CourseDiscountID,
		Courses:            courses,
	}
}
