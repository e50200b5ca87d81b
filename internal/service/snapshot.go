package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"booking-pricing/internal/config"
	"booking-pricing/internal/lock"
	"booking-pricing/internal/metrics"
	"booking-pricing/internal/model"
	"booking-pricing/internal/queue"
	"booking-pricing/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultLogDescription = "Snapshot pricing created."

var sourcePattern = regexp.MustCompile(fmt.Sprintf(`^[a-z0-9_]{1,%d}$`, model.MaxSourceLength))

type SnapshotRequest struct {
	BookingID uint
	ActorID   *uint
	// Source defaults per operation when empty.
	Source string
	Note   *string
}

type SnapshotService interface {
	CreateSnapshotFromBasket(ctx context.Context, req SnapshotRequest) (*model.BookingPriceSnapshot, error)
	CreateSnapshotFromCalculator(ctx context.Context, req SnapshotRequest) (*model.BookingPriceSnapshot, error)
	CreateManualSnapshot(ctx context.Context, req SnapshotRequest, overrides map[string]any) (*model.BookingPriceSnapshot, error)
	// GetLatestSnapshot returns nil when the booking has no snapshot yet.
	GetLatestSnapshot(ctx context.Context, bookingID uint) (*model.BookingPriceSnapshot, error)
	GetSnapshot(ctx context.Context, bookingID uint, version int) (*model.BookingPriceSnapshot, error)
	ListSnapshots(ctx context.Context, bookingID uint) ([]*model.BookingPriceSnapshot, error)
	ListAudits(ctx context.Context, bookingID uint) ([]*model.BookingPriceAudit, error)
}

type snapshotServiceImpl struct {
	db           *gorm.DB
	bookingRepo  repository.BookingRepository
	snapshotRepo repository.SnapshotRepository
	auditRepo    repository.AuditRepository
	logRepo      repository.BookingLogRepository
	sequenceRepo repository.SequenceRepository
	calculator   PriceCalculator
	locker       lock.Locker
	publisher    queue.Publisher
	metrics      *metrics.Metrics
	log          zerolog.Logger
	cfg          config.Snapshot
}

func NewSnapshotService(
	db *gorm.DB,
	bookingRepo repository.BookingRepository,
	snapshotRepo repository.SnapshotRepository,
	auditRepo repository.AuditRepository,
	logRepo repository.BookingLogRepository,
	sequenceRepo repository.SequenceRepository,
	calculator PriceCalculator,
	locker lock.Locker,
	publisher queue.Publisher,
	m *metrics.Metrics,
	log zerolog.Logger,
	cfg config.Snapshot,
) SnapshotService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 3 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}

	return &snapshotServiceImpl{
		db:           db,
		bookingRepo:  bookingRepo,
		snapshotRepo: snapshotRepo,
		auditRepo:    auditRepo,
		logRepo:      logRepo,
		sequenceRepo: sequenceRepo,
		calculator:   calculator,
		locker:       locker,
		publisher:    publisher,
		metrics:      m,
		log:          log.With().Str("component", "snapshot").Logger(),
		cfg:          cfg,
	}
}

func (s *snapshotServiceImpl) CreateSnapshotFromBasket(ctx context.Context, req SnapshotRequest) (*model.BookingPriceSnapshot, error) {
	req, err := withSource(req, model.SourceBasket)
	if err != nil {
		return nil, err
	}
	booking, view, err := loadForPricing(ctx, s.bookingRepo, req.BookingID)
	if err != nil {
		return nil, err
	}

	calculated := s.calculator.CalculateBookingTotal(view)
	pricingContext := s.calculator.Context(view)
	reality := s.calculator.AnalyzeFinancialReality(view, calculated)
	basket := DecodeBasket(booking.Basket)

	payload := basePayload(booking)
	payload.Calculated = &calculated
	payload.SetBasket(basket)
	payload.Totals = basketTotals(basket, booking)
	payload.PricingContext = &pricingContext
	payload.FinancialReality = &reality

	return s.persist(ctx, req, payload)
}

func (s *snapshotServiceImpl) CreateSnapshotFromCalculator(ctx context.Context, req SnapshotRequest) (*model.BookingPriceSnapshot, error) {
	req, err := withSource(req, model.SourceReprice)
	if err != nil {
		return nil, err
	}
	booking, view, err := loadForPricing(ctx, s.bookingRepo, req.BookingID)
	if err != nil {
		return nil, err
	}

	calculated := s.calculator.CalculateBookingTotal(view)

	payload := basePayload(booking)
	payload.Calculated = &calculated
	payload.Totals = model.Totals{
		"subtotal":       calculated.ActivitiesPrice,
		"discount_total": calculated.DiscountTotal(),
		"total":          calculated.TotalFinal,
		"paid_total":     booking.PaidTotal,
		"pending_amount": pendingAmount(calculated.TotalFinal, booking.PaidTotal),
	}

	return s.persist(ctx, req, payload)
}

func (s *snapshotServiceImpl) CreateManualSnapshot(ctx context.Context, req SnapshotRequest, overrides map[string]any) (*model.BookingPriceSnapshot, error) {
	req, err := withSource(req, model.SourceManual)
	if err != nil {
		return nil, err
	}
	booking, view, err := loadForPricing(ctx, s.bookingRepo, req.BookingID)
	if err != nil {
		return nil, err
	}
	if overrides == nil {
		overrides = map[string]any{}
	}

	pricingContext := s.calculator.Context(view)

	payload := basePayload(booking)
	payload.SetBasket(DecodeBasket(booking.Basket))
	payload.PricingContext = &pricingContext
	payload.SetManualOverrides(overrides)
	payload.Totals = mergeTotals(bookingTotals(booking), overrides)

	return s.persist(ctx, req, payload)
}

func (s *snapshotServiceImpl) GetLatestSnapshot(ctx context.Context, bookingID uint) (*model.BookingPriceSnapshot, error) {
	return s.snapshotRepo.Latest(ctx, nil, bookingID)
}

func (s *snapshotServiceImpl) GetSnapshot(ctx context.Context, bookingID uint, version int) (*model.BookingPriceSnapshot, error) {
	return s.snapshotRepo.FindByVersion(ctx, bookingID, version)
}

func (s *snapshotServiceImpl) ListSnapshots(ctx context.Context, bookingID uint) ([]*model.BookingPriceSnapshot, error) {
	if err := s.ensureBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.snapshotRepo.ListByBooking(ctx, bookingID)
}

func (s *snapshotServiceImpl) ListAudits(ctx context.Context, bookingID uint) ([]*model.BookingPriceAudit, error) {
	if err := s.ensureBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.auditRepo.ListByBooking(ctx, bookingID)
}

func (s *snapshotServiceImpl) ensureBooking(ctx context.Context, bookingID uint) error {
	exists, err := s.bookingRepo.Exists(ctx, bookingID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrBookingNotFound
	}
	return nil
}

func withSource(req SnapshotRequest, fallback string) (SnapshotRequest, error) {
	if req.Source == "" {
		req.Source = fallback
	}
	if !sourcePattern.MatchString(req.Source) {
		return req, fmt.Errorf("%w: %q", ErrInvalidSource, req.Source)
	}
	return req, nil
}

// persist writes snapshot, audit and log for one booking under the booking
// lock, retrying when the version was taken.
func (s *snapshotServiceImpl) persist(ctx context.Context, req SnapshotRequest, payload model.SnapshotPayload) (*model.BookingPriceSnapshot, error) {
	log := s.log.With().Uint("booking_id", req.BookingID).Str("source", req.Source).Logger()

	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	lease, err := s.locker.Acquire(lockCtx, lockKey(req.BookingID), s.cfg.LockTTL)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, lock.ErrNotAcquired) {
			s.metrics.SnapshotBusy.Inc()
			log.Warn().Dur("waited", s.cfg.LockTimeout).Msg("snapshot lock busy")
			return nil, ErrSnapshotBusy
		}
		return nil, fmt.Errorf("acquire snapshot lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("release snapshot lock")
		}
	}()

	started := time.Now()
	var (
		snapshot *model.BookingPriceSnapshot
		diff     model.AuditDiff
	)
	for attempt := 1; ; attempt++ {
		snapshot, diff, err = s.write(ctx, req, payload)
		if err == nil {
			break
		}
		if !isVersionConflict(err) {
			return nil, err
		}

		s.metrics.SnapshotConflicts.Inc()
		log.Warn().Err(err).Int("attempt", attempt).Msg("snapshot version conflict")
		if attempt >= s.cfg.MaxAttempts {
			return nil, fmt.Errorf("%w: booking %d after %d attempts", ErrSnapshotConflict, req.BookingID, attempt)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}

	s.metrics.SnapshotDuration.Observe(time.Since(started).Seconds())
	s.metrics.SnapshotsCreated.WithLabelValues(req.Source).Inc()
	log.Info().Int("version", snapshot.SequenceNumber).Uint("snapshot_id", snapshot.ID).Msg("price snapshot created")

	s.publishCreated(ctx, snapshot, diff)
	return snapshot, nil
}

// write runs one attempt in a single transaction so the three rows commit or
// roll back together.
func (s *snapshotServiceImpl) write(ctx context.Context, req SnapshotRequest, payload model.SnapshotPayload) (*model.BookingPriceSnapshot, model.AuditDiff, error) {
	var (
		snapshot *model.BookingPriceSnapshot
		diff     model.AuditDiff
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous, err := s.snapshotRepo.Latest(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}

		version, err := s.sequenceRepo.Next(ctx, tx, req.BookingID)
		if err != nil {
			return fmt.Errorf("next snapshot version: %w", err)
		}

		snapshot = &model.BookingPriceSnapshot{
			BookingID:      req.BookingID,
			SequenceNumber: version,
			Source:         req.Source,
			Snapshot:       datatypes.NewJSONType(payload),
			CreatedBy:      req.ActorID,
		}
		if err := s.snapshotRepo.Create(ctx, tx, snapshot); err != nil {
			return err
		}

		var beforeChange *string
		if previous != nil {
			diff.PreviousTotal = previous.Snapshot.Data().Totals.Total()
			raw, err := json.Marshal(previous.Snapshot.Data())
			if err != nil {
				return fmt.Errorf("encode previous snapshot: %w", err)
			}
			encoded := string(raw)
			beforeChange = &encoded
		}
		diff.CurrentTotal = payload.Totals.Total()

		err = s.auditRepo.Create(ctx, tx, &model.BookingPriceAudit{
			BookingID:              req.BookingID,
			BookingPriceSnapshotID: snapshot.ID,
			EventType:              req.Source,
			Note:                   req.Note,
			Diff:                   datatypes.NewJSONType(diff),
			CreatedBy:              req.ActorID,
		})
		if err != nil {
			return err
		}

		description := defaultLogDescription
		if req.Note != nil {
			description = *req.Note
		}
		return s.logRepo.Create(ctx, tx, &model.BookingLog{
			BookingID:    req.BookingID,
			Action:       model.LogActionPrefix + req.Source,
			Description:  description,
			UserID:       req.ActorID,
			BeforeChange: beforeChange,
		})
	})
	if err != nil {
		return nil, model.AuditDiff{}, err
	}

	return snapshot, diff, nil
}

// publishCreated never fails the committed snapshot.
func (s *snapshotServiceImpl) publishCreated(ctx context.Context, snapshot *model.BookingPriceSnapshot, diff model.AuditDiff) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := s.publisher.PublishSnapshotCreated(pubCtx, queue.SnapshotCreatedEvent{
		EventID:       uuid.NewString(),
		BookingID:     snapshot.BookingID,
		SnapshotID:    snapshot.ID,
		Version:       snapshot.SequenceNumber,
		Source:        snapshot.Source,
		PreviousTotal: diff.PreviousTotal,
		CurrentTotal:  diff.CurrentTotal,
		CreatedBy:     snapshot.CreatedBy,
		CreatedAt:     snapshot.CreatedAt,
	})
	if err != nil {
		s.log.Error().Err(err).
			Uint("booking_id", snapshot.BookingID).
			Int("version", snapshot.SequenceNumber).
			Msg("publish snapshot created event")
	}
}

func isVersionConflict(err error) bool {
	return errors.Is(err, repository.ErrSequenceConflict) || errors.Is(err, gorm.ErrDuplicatedKey)
}

func lockKey(bookingID uint) string {
	return fmt.Sprintf("booking-price-snapshot:%d", bookingID)
}
