package service

import (
	"booking-pricing/internal/model"
	"booking-pricing/internal/pricing"
)

func toPricingBooking(b *model.Booking) pricing.Booking {
	out := pricing.Booking{
		ID:                         b.ID,
		Currency:                   b.Currency,
		PriceTotal:                 b.PriceTotal,
		PaidTotal:                  b.PaidTotal,
		DiscountCodeID:             b.DiscountCodeID,
		DiscountCodeValue:          b.DiscountCodeValue,
		DiscountType:               b.DiscountType,
		IntervalDiscountID:         b.IntervalDiscountID,
		CourseDiscountID:           b.CourseDiscountID,
		HasReduction:               b.HasReduction,
		PriceReduction:             b.PriceReduction,
		HasTax:                     b.HasTax,
		PriceTax:                   b.PriceTax,
		HasCancellationInsurance:   b.HasCancellationInsurance,
		PriceCancellationInsurance: b.PriceCancellationInsurance,
		Courses:                    map[uint]pricing.Course{},
	}

	for _, bu := range b.BookingUsers {
		line := pricing.BookingLine{
			ID:               bu.ID,
			ClientID:         bu.ClientID,
			CourseID:         bu.CourseID,
			Date:             bu.Date,
			Status:           bu.Status,
			Price:            bu.Price,
			LegacyIntervalID: bu.CourseIntervalID,
		}
		if bu.CourseDate != nil {
			line.CourseDate = &pricing.CourseDate{
				ID:         bu.CourseDate.ID,
				Date:       bu.CourseDate.Date,
				IntervalID: bu.CourseDate.CourseIntervalID,
			}
		}
		out.Lines = append(out.Lines, line)

		if bu.Course != nil {
			if _, ok := out.Courses[bu.Course.ID]; !ok {
				out.Courses[bu.Course.ID] = toPricingCourse(bu.Course)
			}
		}
	}

	for _, p := range b.Payments {
		out.Payments = append(out.Payments, pricing.Payment{Amount: p.Amount, Status: p.Status})
	}
	return out
}

func toPricingCourse(c *model.Course) pricing.Course {
	course := pricing.Course{
		ID:              c.ID,
		Type:            pricing.CourseType(c.CourseType),
		IsFlexible:      c.IsFlexible,
		Price:           c.Price,
		LegacyDiscounts: []byte(c.Discounts),
	}
	for _, interval := range c.Intervals {
		iv := pricing.Interval{ID: interval.ID}
		for _, d := range interval.Discounts {
			iv.Discounts = append(iv.Discounts, pricing.IntervalDiscount{
				ID:            d.ID,
				MinDays:       d.MinDays,
				DiscountType:  d.DiscountType,
				DiscountValue: d.DiscountValue,
				Active:        d.Active,
			})
		}
		course.Intervals = append(course.Intervals, iv)
	}
	return course
}

func basePayload(b *model.Booking) model.SnapshotPayload {
	return model.SnapshotPayload{
		SchemaVersion:              model.SnapshotSchemaVersion,
		BookingID:                  b.ID,
		Currency:                   b.Currency,
		Status:                     b.Status,
		Channel:                    b.Source,
		PaymentMethodID:            b.PaymentMethodID,
		HasCancellationInsurance:   b.HasCancellationInsurance,
		PriceCancellationInsurance: b.PriceCancellationInsurance,
		DiscountsMeta: model.DiscountsMeta{
			DiscountCodeID:     b.DiscountCodeID,
			DiscountCodeValue:  b.DiscountCodeValue,
			DiscountType:       b.DiscountType,
			IntervalDiscountID: b.IntervalDiscountID,
			CourseDiscountID:   b.CourseDiscountID,
			OriginalPrice:      b.OriginalPrice,
			FinalPrice:         b.FinalPrice,
			HasReduction:       b.HasReduction,
			PriceReduction:     b.PriceReduction,
			HasTax:             b.HasTax,
			PriceTax:           b.PriceTax,
		},
	}
}
