package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"booking-pricing/internal/client"
	"booking-pricing/internal/config"
	"booking-pricing/internal/lock"
	"booking-pricing/internal/metrics"
	"booking-pricing/internal/model"
	"booking-pricing/internal/pricing"
	"booking-pricing/internal/queue"
	"booking-pricing/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SnapshotCreatedEvent
	err    error
}

func (p *recordingPublisher) PublishSnapshotCreated(_ context.Context, event queue.SnapshotCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type failingLogRepo struct {
	repository.BookingLogRepository
}

func (failingLogRepo) Create(context.Context, *gorm.DB, *model.BookingLog) error {
	return errors.New("log table unavailable")
}

// racingSequenceRepo reports a lost race for the first `conflicts` calls.
type racingSequenceRepo struct {
	repository.SequenceRepository
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (r *racingSequenceRepo) Next(ctx context.Context, tx *gorm.DB, bookingID uint) (int, error) {
	r.mu.Lock()
	r.calls++
	lose := r.calls <= r.conflicts
	r.mu.Unlock()
	if lose {
		return 0, repository.ErrSequenceConflict
	}
	return r.SequenceRepository.Next(ctx, tx, bookingID)
}

type testEnv struct {
	db        *gorm.DB
	locker    *lock.LocalLocker
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	cfg       config.Snapshot

	bookingRepo  repository.BookingRepository
	snapshotRepo repository.SnapshotRepository
	auditRepo    repository.AuditRepository
	logRepo      repository.BookingLogRepository
	sequenceRepo repository.SequenceRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := client.InitDBClient(config.Database{
		Driver: "sqlite",
		URL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	return &testEnv{
		db:        db,
		locker:    lock.NewLocalLocker(),
		publisher: &recordingPublisher{},
		metrics:   metrics.New(prometheus.NewRegistry()),
		cfg: config.Snapshot{
			MaxAttempts:  3,
			LockTimeout:  5 * time.Second,
			LockTTL:      10 * time.Second,
			RetryBackoff: time.Millisecond,
		},
		bookingRepo:  repository.NewBookingRepository(db),
		snapshotRepo: repository.NewSnapshotRepository(db),
		auditRepo:    repository.NewAuditRepository(db),
		logRepo:      repository.NewBookingLogRepository(db),
		sequenceRepo: repository.NewSequenceRepository(db),
	}
}

func (e *testEnv) service() SnapshotService {
	return NewSnapshotService(
		e.db,
		e.bookingRepo,
		e.snapshotRepo,
		e.auditRepo,
		e.logRepo,
		e.sequenceRepo,
		pricing.NewCalculator(),
		e.locker,
		e.publisher,
		e.metrics,
		zerolog.Nop(),
		e.cfg,
	)
}

// seedBooking creates a booking with two dates of a flexible course priced
// 100 per date. Both dates sit in an interval whose day 2 tier is 15 off, so
// the calculated total is 185.
func seedBooking(t *testing.T, db *gorm.DB, basket *string) *model.Booking {
	t.Helper()
	course := model.Course{
		SchoolID:   1,
		Name:       "Flexible kids club",
		CourseType: model.CourseTypeCollective,
		IsFlexible: true,
		Price:      100,
		Currency:   "CHF",
		Discounts:  datatypes.JSON(`[{"day":2,"discount":10}]`),
	}
	mustCreate(t, db, &course)

	interval := model.CourseInterval{CourseID: course.ID, Name: "February"}
	mustCreate(t, db, &interval)
	mustCreate(t, db, &[]model.CourseIntervalDiscount{
		{CourseIntervalID: interval.ID, MinDays: 2, DiscountType: model.DiscountTypeFixedAmount, DiscountValue: 15, Active: true},
		{CourseIntervalID: interval.ID, MinDays: 1, DiscountType: model.DiscountTypePercentage, DiscountValue: 90, Active: false},
	})

	dates := []model.CourseDate{
		{CourseID: course.ID, CourseIntervalID: &interval.ID, Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)},
		{CourseID: course.ID, CourseIntervalID: &interval.ID, Date: time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC)},
	}
	mustCreate(t, db, &dates)

	booking := model.Booking{
		SchoolID:   1,
		Currency:   "CHF",
		Status:     model.BookingStatusActive,
		Source:     "web",
		PriceTotal: 200,
		PaidTotal:  100,
		Basket:     basket,
	}
	mustCreate(t, db, &booking)

	mustCreate(t, db, &[]model.BookingUser{
		{BookingID: booking.ID, ClientID: 1, CourseID: course.ID, CourseDateID: &dates[0].ID, Date: dates[0].Date, Status: 1, Price: 100},
		{BookingID: booking.ID, ClientID: 1, CourseID: course.ID, CourseDateID: &dates[1].ID, Date: dates[1].Date, Status: 1, Price: 85},
		{BookingID: booking.ID, ClientID: 1, CourseID: course.ID, CourseDateID: &dates[1].ID, Date: dates[1].Date, Status: model.BookingUserStatusCancelled, Price: 85},
	})
	mustCreate(t, db, &model.Payment{BookingID: booking.ID, Amount: 100, Status: model.PaymentStatusPaid})

	return &booking
}

func mustCreate(t *testing.T, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func strPtr(s string) *string { return &s }

func uintPtr(v uint) *uint { return &v }

func totalOf(t *testing.T, snapshot *model.BookingPriceSnapshot) float64 {
	t.Helper()
	total := snapshot.Snapshot.Data().Totals.Total()
	if total == nil {
		t.Fatalf("snapshot v%d has no total", snapshot.SequenceNumber)
	}
	return *total
}
