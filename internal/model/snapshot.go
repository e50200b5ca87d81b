package model

import (
	"encoding/json"
	"time"

	"booking-pricing/internal/pricing"

	"gorm.io/datatypes"
)

// Snapshot sources.
const (
	SourceBasket  = "basket_import"
	SourceReprice = "reprice"
	SourceManual  = "manual_adjust"
)

// MaxSourceLength bounds snapshot source identifiers.
const MaxSourceLength = 64

// LogActionPrefix prefixes the source in booking log actions.
const LogActionPrefix = "price_snapshot_"

// SnapshotSchemaVersion is bumped whenever SnapshotPayload changes shape.
const SnapshotSchemaVersion = 1

// BookingPriceSnapshot is append-only. SequenceNumber is unique per booking.
type BookingPriceSnapshot struct {
	ID             uint                                `gorm:"primaryKey" json:"id"`
	BookingID      uint                                `gorm:"not null;uniqueIndex:idx_booking_snapshot_version,priority:1" json:"booking_id"`
	SequenceNumber int                                 `gorm:"column:version;not null;uniqueIndex:idx_booking_snapshot_version,priority:2" json:"version"`
	Source         string                              `gorm:"size:64;index;not null" json:"source"`
	Snapshot       datatypes.JSONType[SnapshotPayload] `gorm:"not null" json:"snapshot"`
	CreatedBy      *uint                               `json:"created_by"`
	CreatedAt      time.Time                           `json:"created_at"`
}

type SnapshotPayload struct {
	SchemaVersion              int           `json:"schema_version"`
	BookingID                  uint          `json:"booking_id"`
	Currency                   string        `json:"currency"`
	Status                     int           `json:"status"`
	Channel                    string        `json:"source"`
	PaymentMethodID            *uint         `json:"payment_method_id"`
	HasCancellationInsurance   bool          `json:"has_cancellation_insurance"`
	PriceCancellationInsurance float64       `json:"price_cancellation_insurance"`
	DiscountsMeta              DiscountsMeta `json:"discounts_meta"`

	// Basket and ManualOverrides are only written by the variants that carry
	// them, and then always, null or empty included. Use SetBasket and
	// SetManualOverrides.
	Basket           any                       `json:"-"`
	Calculated       *pricing.BookingTotal     `json:"calculated,omitempty"`
	PricingContext   *pricing.PricingContext   `json:"pricing_context,omitempty"`
	FinancialReality *pricing.FinancialReality `json:"financial_reality,omitempty"`
	ManualOverrides  map[string]any            `json:"-"`

	Totals Totals `json:"totals"`

	hasBasket    bool
	hasOverrides bool
}

func (p *SnapshotPayload) SetBasket(basket any) {
	p.Basket = basket
	p.hasBasket = true
}

func (p *SnapshotPayload) SetManualOverrides(overrides map[string]any) {
	p.ManualOverrides = overrides
	p.hasOverrides = true
}

func (p SnapshotPayload) HasBasket() bool {
	return p.hasBasket
}

func (p SnapshotPayload) HasManualOverrides() bool {
	return p.hasOverrides
}

type snapshotPayloadFields SnapshotPayload

func (p SnapshotPayload) MarshalJSON() ([]byte, error) {
	out := struct {
		snapshotPayloadFields
		Basket          *any            `json:"basket,omitempty"`
		ManualOverrides *map[string]any `json:"manual_overrides,omitempty"`
	}{snapshotPayloadFields: snapshotPayloadFields(p)}
	if p.hasBasket {
		out.Basket = &p.Basket
	}
	if p.hasOverrides {
		out.ManualOverrides = &p.ManualOverrides
	}
	return json.Marshal(out)
}

func (p *SnapshotPayload) UnmarshalJSON(data []byte) error {
	in := struct {
		*snapshotPayloadFields
		Basket          json.RawMessage `json:"basket"`
		ManualOverrides json.RawMessage `json:"manual_overrides"`
	}{snapshotPayloadFields: (*snapshotPayloadFields)(p)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	if in.Basket != nil {
		var basket any
		if err := json.Unmarshal(in.Basket, &basket); err != nil {
			return err
		}
		p.SetBasket(basket)
	}
	if in.ManualOverrides != nil {
		var overrides map[string]any
		if err := json.Unmarshal(in.ManualOverrides, &overrides); err != nil {
			return err
		}
		p.SetManualOverrides(overrides)
	}
	return nil
}

type DiscountsMeta struct {
	DiscountCodeID     *uint   `json:"discount_code_id"`
	DiscountCodeValue  float64 `json:"discount_code_value"`
	DiscountType       string  `json:"discount_type"`
	IntervalDiscountID *uint   `json:"interval_discount_id"`
	CourseDiscountID   *uint   `json:"course_discount_id"`
	OriginalPrice      float64 `json:"original_price"`
	FinalPrice         float64 `json:"final_price"`
	HasReduction       bool    `json:"has_reduction"`
	PriceReduction     float64 `json:"price_reduction"`
	HasTax             bool    `json:"has_tax"`
	PriceTax           float64 `json:"price_tax"`
}

// Totals is a loose map so manual overrides can add or replace any key.
type Totals map[string]any

// Total returns totals["total"] when it holds a number.
func (t Totals) Total() *float64 {
	if t == nil {
		return nil
	}
	v, ok := pricing.ToFloat(t["total"])
	if !ok {
		return nil
	}
	return &v
}

type BookingPriceAudit struct {
	ID                     uint                          `gorm:"primaryKey" json:"id"`
	BookingID              uint                          `gorm:"index;not null" json:"booking_id"`
	BookingPriceSnapshotID uint                          `gorm:"index;not null" json:"booking_price_snapshot_id"`
	EventType              string                        `gorm:"size:64;not null" json:"event_type"`
	Note                   *string                       `gorm:"type:text" json:"note"`
	Diff                   datatypes.JSONType[AuditDiff] `json:"diff"`
	CreatedBy              *uint                         `json:"created_by"`
	CreatedAt              time.Time                     `json:"created_at"`
}

type AuditDiff struct {
	PreviousTotal *float64 `json:"previous_total"`
	CurrentTotal  *float64 `json:"current_total"`
}

type BookingLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BookingID    uint      `gorm:"index;not null" json:"booking_id"`
	Action       string    `gorm:"size:96;not null" json:"action"`
	Description  string    `gorm:"type:text" json:"description"`
	UserID       *uint     `json:"user_id"`
	BeforeChange *string   `gorm:"type:text" json:"before_change"`
	CreatedAt    time.Time `json:"created_at"`
}

// BookingSnapshotSequence holds the last issued snapshot version per booking.
type BookingSnapshotSequence struct {
	BookingID   uint `gorm:"primaryKey;autoIncrement:false"`
	LastVersion int  `gorm:"not null"`
	UpdatedAt   time.Time
}

type ProcessedMessage struct {
	MessageID   string `gorm:"primaryKey;size:128;not null"`
	Queue       string `gorm:"size:128;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
