package model

import (
	"time"

	"gorm.io/datatypes"
)

type CourseType int

const (
	CourseTypeCollective CourseType = 1
	CourseTypePrivate    CourseType = 2
	CourseTypeActivity   CourseType = 3
)

type School struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	Currency  string `gorm:"size:8;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Course struct {
	ID         uint       `gorm:"primaryKey"`
	SchoolID   uint       `gorm:"index;not null"`
	Name       string     `gorm:"size:255;not null"`
	CourseType CourseType `gorm:"not null"`
	IsFlexible bool       `gorm:"not null"`
	Price      float64    `gorm:"type:decimal(10,2);not null"` // per date when flexible
	Currency   string     `gorm:"size:8;not null"`

	// legacy blob of day-indexed discounts, see pricing.ResolveRules
	Discounts datatypes.JSON `gorm:"column:discounts"`

	Intervals []CourseInterval `gorm:"foreignKey:CourseID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type CourseInterval struct {
	ID        uint   `gorm:"primaryKey"`
	CourseID  uint   `gorm:"index;not null"`
	Name      string `gorm:"size:128"`
	StartDate time.Time
	EndDate   time.Time

	Discounts []CourseIntervalDiscount `gorm:"foreignKey:CourseIntervalID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	DiscountTypePercentage  = "percentage"
	DiscountTypeFixedAmount = "fixed_amount"
)

type CourseIntervalDiscount struct {
	ID               uint    `gorm:"primaryKey"`
	CourseIntervalID uint    `gorm:"index;not null"`
	MinDays          int     `gorm:"not null"`
	DiscountType     string  `gorm:"size:32;not null"` // percentage | fixed_amount
	DiscountValue    float64 `gorm:"type:decimal(10,2);not null"`
	Active           bool    `gorm:"index;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type CourseDate struct {
	ID               uint      `gorm:"primaryKey"`
	CourseID         uint      `gorm:"index;not null"`
	CourseIntervalID *uint     `gorm:"index"`
	Date             time.Time `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
