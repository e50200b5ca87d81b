package model

import "time"

const (
	BookingStatusActive    = 1
	BookingStatusCancelled = 2
	BookingStatusPartial   = 3

	// BookingUserStatusCancelled lines are excluded from pricing and day counting.
	BookingUserStatusCancelled = 2
)

type Booking struct {
	ID              uint    `gorm:"primaryKey"`
	SchoolID        uint    `gorm:"index;not null"`
	ClientMainID    uint    `gorm:"index"`
	Currency        string  `gorm:"size:8;not null"`
	Status          int     `gorm:"not null"`
	Source          string  `gorm:"size:32"` // web, admin, api...
	PaymentMethodID *uint

	DiscountCodeID     *uint
	DiscountCodeValue  float64 `gorm:"type:decimal(10,2)"`
	DiscountType       string  `gorm:"size:32"` // percentage | fixed
	IntervalDiscountID *uint
	CourseDiscountID   *uint
	OriginalPrice      float64 `gorm:"type:decimal(10,2)"`
	FinalPrice         float64 `gorm:"type:decimal(10,2)"`
	HasReduction       bool    `gorm:"not null"`
	PriceReduction     float64 `gorm:"type:decimal(10,2)"`
	HasTax             bool    `gorm:"not null"`
	PriceTax           float64 `gorm:"type:decimal(10,2)"`

	HasCancellationInsurance   bool    `gorm:"not null"`
	PriceCancellationInsurance float64 `gorm:"type:decimal(10,2)"`

	PriceTotal float64 `gorm:"type:decimal(10,2);not null"`
	PaidTotal  float64 `gorm:"type:decimal(10,2);not null"`

	// client-side cart capture, kept verbatim
	Basket *string `gorm:"type:text"`

	BookingUsers []BookingUser `gorm:"foreignKey:BookingID"`
	Payments     []Payment     `gorm:"foreignKey:BookingID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type BookingUser struct {
	ID           uint      `gorm:"primaryKey"`
	BookingID    uint      `gorm:"index;not null"`
	ClientID     uint      `gorm:"index;not null"`
	CourseID     uint      `gorm:"index;not null"`
	CourseDateID *uint     `gorm:"index"`
	Date         time.Time `gorm:"not null"`
	Status       int       `gorm:"not null"`
	Price        float64   `gorm:"type:decimal(10,2)"`

	// legacy rows carry the interval directly instead of through the course date
	CourseIntervalID *uint

	CourseDate *CourseDate `gorm:"foreignKey:CourseDateID"`
	Course     *Course     `gorm:"foreignKey:CourseID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	PaymentStatusPaid          = "paid"
	PaymentStatusPending       = "pending"
	PaymentStatusFailed        = "failed"
	PaymentStatusRefund        = "refund"
	PaymentStatusPartialRefund = "partial_refund"
)

type Payment struct {
	ID        uint    `gorm:"primaryKey"`
	BookingID uint    `gorm:"index;not null"`
	Amount    float64 `gorm:"type:decimal(10,2);not null"`
	Status    string  `gorm:"size:32;index;not null"`
	Notes     string  `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
