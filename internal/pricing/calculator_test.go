package pricing

import "testing"

func flexibleBooking() Booking {
	return Booking{
		ID: 1,
		Courses: map[uint]Course{
			10: {
				ID:              10,
				Type:            CourseCollective,
				IsFlexible:      true,
				Price:           100,
				LegacyDiscounts: []byte(`[{"day":2,"discount":10}]`),
			},
		},
		Lines: []BookingLine{
			{ID: 1, CourseID: 10, ClientID: 1, Date: day(1), Status: 1},
			{ID: 2, CourseID: 10, ClientID: 1, Date: day(2), Status: 1},
		},
	}
}

func TestCalculateBookingTotal_FlexibleCollective(t *testing.T) {
	got := NewCalculator().CalculateBookingTotal(flexibleBooking())

	if got.ActivitiesPrice != 190 {
		t.Fatalf("expected activities 190, got %v", got.ActivitiesPrice)
	}
	if len(got.Discounts) != 0 {
		t.Fatalf("expected no booking-level discounts, got %v", got.Discounts)
	}
	if got.TotalFinal != 190 {
		t.Fatalf("expected total 190, got %v", got.TotalFinal)
	}
}

func TestCalculateBookingTotal_GroupsPerClientAndCourseType(t *testing.T) {
	b := Booking{
		Courses: map[uint]Course{
			1: {ID: 1, Type: CourseCollective, Price: 300},
			2: {ID: 2, Type: CoursePrivate, Price: 999},
		},
		Lines: []BookingLine{
			// fixed collective: once per client
			{CourseID: 1, ClientID: 1, Date: day(1), Status: 1, Price: 300},
			{CourseID: 1, ClientID: 1, Date: day(2), Status: 1, Price: 300},
			{CourseID: 1, ClientID: 2, Date: day(1), Status: 1, Price: 300},
			// private: sum of lines
			{CourseID: 2, ClientID: 1, Date: day(3), Status: 1, Price: 45.5},
			{CourseID: 2, ClientID: 1, Date: day(4), Status: 1, Price: 45.5},
			{CourseID: 2, ClientID: 1, Date: day(5), Status: LineCancelled, Price: 45.5},
		},
	}

	got := NewCalculator().CalculateBookingTotal(b)
	if got.ActivitiesPrice != 691 {
		t.Fatalf("expected 600 + 91 = 691, got %v", got.ActivitiesPrice)
	}
}

func TestCalculateBookingTotal_BookingLevelAdjustments(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(b *Booking)
		discounts []float64
		total     float64
	}{
		{
			name: "percentage code",
			mutate: func(b *Booking) {
				b.DiscountCodeID = uintPtr(5)
				b.DiscountCodeValue = 10
				b.DiscountType = "percentage"
			},
			discounts: []float64{19},
			total:     171,
		},
		{
			name: "fixed code capped at activities",
			mutate: func(b *Booking) {
				b.DiscountCodeID = uintPtr(5)
				b.DiscountCodeValue = 500
				b.DiscountType = "fixed"
			},
			discounts: []float64{190},
			total:     0,
		},
		{
			name: "code then reduction",
			mutate: func(b *Booking) {
				b.DiscountCodeID = uintPtr(5)
				b.DiscountCodeValue = 40
				b.DiscountType = "fixed"
				b.HasReduction = true
				b.PriceReduction = 50
			},
			discounts: []float64{40, 50},
			total:     100,
		},
		{
			name: "code value without code id is ignored",
			mutate: func(b *Booking) {
				b.DiscountCodeValue = 40
			},
			discounts: []float64{},
			total:     190,
		},
		{
			name: "insurance and tax added after discounts",
			mutate: func(b *Booking) {
				b.HasReduction = true
				b.PriceReduction = 500
				b.HasCancellationInsurance = true
				b.PriceCancellationInsurance = 9.5
				b.HasTax = true
				b.PriceTax = 4.25
			},
			discounts: []float64{190},
			total:     13.75,
		},
		{
			name: "interval and course discount ids do not discount again",
			mutate: func(b *Booking) {
				b.IntervalDiscountID = uintPtr(1)
				b.CourseDiscountID = uintPtr(2)
			},
			discounts: []float64{},
			total:     190,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := flexibleBooking()
			tt.mutate(&b)

			got := NewCalculator().CalculateBookingTotal(b)
			if len(got.Discounts) != len(tt.discounts) {
				t.Fatalf("expected discounts %v, got %v", tt.discounts, got.Discounts)
			}
			for i := range tt.discounts {
				if got.Discounts[i] != tt.discounts[i] {
					t.Errorf("discount %d: expected %v, got %v", i, tt.discounts[i], got.Discounts[i])
				}
			}
			if got.TotalFinal != tt.total {
				t.Fatalf("expected total %v, got %v", tt.total, got.TotalFinal)
			}
		})
	}
}

func TestBookingTotal_DiscountTotal(t *testing.T) {
	total := BookingTotal{Discounts: []float64{0.1, 0.2}}
	if got := total.DiscountTotal(); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
}

func TestAnalyzeFinancialReality(t *testing.T) {
	tests := []struct {
		name        string
		recorded    float64
		payments    []Payment
		status      string
		pending     float64
		discrepancy bool
	}{
		{
			name:     "balanced within tolerance",
			recorded: 190,
			payments: []Payment{{Amount: 100, Status: PaymentPaid}, {Amount: 89.999, Status: PaymentPaid}},
			status:   StatusBalanced,
		},
		{
			name:     "underpaid ignores pending and failed",
			recorded: 190,
			payments: []Payment{
				{Amount: 100, Status: PaymentPaid},
				{Amount: 90, Status: "pending"},
				{Amount: 90, Status: "failed"},
			},
			status:  StatusUnderpaid,
			pending: 90,
		},
		{
			name:     "refunds reduce net paid",
			recorded: 190,
			payments: []Payment{
				{Amount: 250, Status: PaymentPaid},
				{Amount: 20, Status: PaymentRefund},
				{Amount: 10, Status: PaymentPartialRefund},
			},
			status: StatusOverpaid,
		},
		{
			name:        "recorded total drifted",
			recorded:    200,
			payments:    []Payment{{Amount: 190, Status: PaymentPaid}},
			status:      StatusBalanced,
			discrepancy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := flexibleBooking()
			b.PriceTotal = tt.recorded
			b.Payments = tt.payments

			calc := NewCalculator()
			got := calc.AnalyzeFinancialReality(b, calc.CalculateBookingTotal(b))
			if got.Status != tt.status {
				t.Errorf("expected status %s, got %s", tt.status, got.Status)
			}
			if got.PendingAmount != tt.pending {
				t.Errorf("expected pending %v, got %v", tt.pending, got.PendingAmount)
			}
			if got.HasDiscrepancy != tt.discrepancy {
				t.Errorf("expected discrepancy %v, got %v", tt.discrepancy, got.HasDiscrepancy)
			}
			if got.CalculatedTotal != 190 {
				t.Errorf("expected calculated 190, got %v", got.CalculatedTotal)
			}
		})
	}
}

func TestContext_ListsCoursesInOrder(t *testing.T) {
	b := flexibleBooking()
	b.Courses[3] = Course{ID: 3, Type: CoursePrivate, Price: 50}
	b.DiscountCodeID = uintPtr(8)

	got := NewCalculator().Context(b)
	if len(got.Courses) != 2 || got.Courses[0].CourseID != 3 || got.Courses[1].CourseID != 10 {
		t.Fatalf("unexpected courses %+v", got.Courses)
	}
	if got.Courses[1].GlobalRules[2].Value != 10 {
		t.Fatalf("expected day 2 rule to be carried, got %+v", got.Courses[1].GlobalRules)
	}
	if got.DiscountCodeID == nil || *got.DiscountCodeID != 8 {
		t.Fatalf("expected discount code id 8")
	}
}
