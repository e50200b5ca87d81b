package pricing

import "time"

// The types below are read models. Callers map storage rows into them so the
// pricing functions stay pure.

type CourseType int

const (
	CourseCollective CourseType = 1
	CoursePrivate    CourseType = 2
	CourseActivity   CourseType = 3
)

// LineCancelled is the booking line status excluded from every computation.
const LineCancelled = 2

type IntervalDiscount struct {
	ID            uint
	MinDays       int
	DiscountType  string // percentage | fixed_amount
	DiscountValue float64
	Active        bool
}

type Interval struct {
	ID        uint
	Discounts []IntervalDiscount
}

type Course struct {
	ID         uint
	Type       CourseType
	IsFlexible bool
	Price      float64
	// raw legacy discounts column, decoded leniently
	LegacyDiscounts []byte
	Intervals       []Interval
}

type CourseDate struct {
	ID         uint
	Date       time.Time
	IntervalID *uint
}

type BookingLine struct {
	ID               uint
	ClientID         uint
	CourseID         uint
	Date             time.Time
	Status           int
	Price            float64
	CourseDate       *CourseDate
	LegacyIntervalID *uint
}

// IntervalID prefers the interval of the attached course date.
func (l BookingLine) IntervalID() *uint {
	if l.CourseDate != nil && l.CourseDate.IntervalID != nil {
		return l.CourseDate.IntervalID
	}
	return l.LegacyIntervalID
}

func (l BookingLine) Cancelled() bool {
	return l.Status == LineCancelled
}

type Payment struct {
	Amount float64
	Status string
}

type Booking struct {
	ID       uint
	Currency string

	PriceTotal float64
	PaidTotal  float64

	DiscountCodeID     *uint
	DiscountCodeValue  float64
	DiscountType       string
	IntervalDiscountID *uint
	CourseDiscountID   *uint
	HasReduction       bool
	PriceReduction     float64
	HasTax             bool
	PriceTax           float64

	HasCancellationInsurance   bool
	PriceCancellationInsurance float64

	Lines    []BookingLine
	Courses  map[uint]Course
	Payments []Payment
}
