package service

import (
	"context"

	"booking-pricing/internal/model"
	"booking-pricing/internal/pricing"
	"booking-pricing/internal/repository"
)

// PriceCalculator must not persist anything.
type PriceCalculator interface {
	CalculateBookingTotal(b pricing.Booking) pricing.BookingTotal
	AnalyzeFinancialReality(b pricing.Booking, calculated pricing.BookingTotal) pricing.FinancialReality
	Context(b pricing.Booking) pricing.PricingContext
}

type PricePreview struct {
	BookingID        uint                     `json:"booking_id"`
	Currency         string                   `json:"currency"`
	Calculated       pricing.BookingTotal     `json:"calculated"`
	FinancialReality pricing.FinancialReality `json:"financial_reality"`
	PricingContext   pricing.PricingContext   `json:"pricing_context"`
}

type PricingService interface {
	Preview(ctx context.Context, bookingID uint) (*PricePreview, error)
}

type pricingServiceImpl struct {
	bookingRepo repository.BookingRepository
	calculator  PriceCalculator
}

func NewPricingService(
	bookingRepo repository.BookingRepository,
	calculator PriceCalculator,
) PricingService {
	return &pricingServiceImpl{
		bookingRepo: bookingRepo,
		calculator:  calculator,
	}
}

func (s *pricingServiceImpl) Preview(ctx context.Context, bookingID uint) (*PricePreview, error) {
	booking, view, err := loadForPricing(ctx, s.bookingRepo, bookingID)
	if err != nil {
		return nil, err
	}

	calculated := s.calculator.CalculateBookingTotal(view)
	return &PricePreview{
		BookingID:        booking.ID,
		Currency:         booking.Currency,
		Calculated:       calculated,
		FinancialReality: s.calculator.AnalyzeFinancialReality(view, calculated),
		PricingContext:   s.calculator.Context(view),
	}, nil
}

func loadForPricing(ctx context.Context, repo repository.BookingRepository, bookingID uint) (*model.Booking, pricing.Booking, error) {
	booking, err := repo.FindForPricing(ctx, bookingID)
	if err != nil {
		return nil, pricing.Booking{}, err
	}
	return booking, toPricingBooking(booking), nil
}
