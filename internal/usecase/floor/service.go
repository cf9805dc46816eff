package floor

import (
	"context"
	"log/slog"
	"time"

	"pitboss/internal/bootstrap/logging"
	"pitboss/internal/errs"
	"pitboss/internal/ports"
)

// CasinoSettings is the property configuration the engine needs at runtime:
// identity, gaming-day derivation, and how long idempotency keys are honored.
type CasinoSettings struct {
	CasinoID        string
	GamingDayCutoff int
	Location        *time.Location
	IdempotencyTTL  time.Duration
}

// Service is the seat-occupancy and rating-slip engine. Every mutation runs
// inside one unit of work; the caller is assumed authenticated and scoped to
// the casino already.
type Service struct {
	repo   ports.FloorRepository
	uow    ports.UnitOfWork
	cache  ports.Cache
	stream ports.AuditStream
	casino CasinoSettings

	// now is swappable in tests.
	now func() time.Time
}

// NewService wires the floor usecases. cache and stream may be nil.
func NewService(repo ports.FloorRepository, uow ports.UnitOfWork, cache ports.Cache, stream ports.AuditStream, casino CasinoSettings) *Service {
	if casino.Location == nil {
		casino.Location = time.UTC
	}
	if casino.IdempotencyTTL <= 0 {
		casino.IdempotencyTTL = 24 * time.Hour
	}
	return &Service{
		repo:   repo,
		uow:    uow,
		cache:  cache,
		stream: stream,
		casino: casino,
		now:    time.Now,
	}
}

type CreateTableInput struct {
	Label     string
	GameType  string
	SeatCount int
	MinBet    int64
	MaxBet    int64
	ActorID   string
	IdemKey   string
}

type CreateSlipInput struct {
	TableID    uint64
	Seat       int
	VisitID    uint64
	PlayerID   string // empty for a ghost session
	AverageBet int64
	ActorID    string
	IdemKey    string
}

type PauseSlipInput struct {
	SlipID  uint64
	ActorID string
	IdemKey string
}

type ResumeSlipInput struct {
	SlipID  uint64
	ActorID string
	IdemKey string
}

type CloseSlipInput struct {
	SlipID     uint64
	ChipsTaken *int64
	ActorID    string
	IdemKey    string
}

type MoveSlipInput struct {
	SlipID      uint64
	DestTableID uint64
	DestSeat    int
	ActorID     string
	IdemKey     string
}

// MoveSlipResult is the two halves of a committed move. Both audit events
// carry CorrelationID.
type MoveSlipResult struct {
	ClosedSlip    ports.RatingSlip
	NewSlip       ports.RatingSlip
	CorrelationID string
}

type StartVisitInput struct {
	PlayerID string
	ActorID  string
	IdemKey  string
}

type EndVisitInput struct {
	VisitID uint64
	ActorID string
	IdemKey string
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string) {
	s.setCacheTTLBestEffort(ctx, key, value, 0)
}

func (s *Service) setCacheTTLBestEffort(ctx context.Context, key string, value string, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, ttl)
}

// getCacheBestEffort treats every cache problem as a miss.
func (s *Service) getCacheBestEffort(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	value, found, err := s.cache.Get(ctx, key)
	if err != nil || !found {
		return "", false
	}
	return value, true
}

func (s *Service) dropCacheBestEffort(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, key)
}

// publishBestEffort mirrors committed audit events to the stream. Called
// only after the transaction committed; failures are logged and swallowed.
func (s *Service) publishBestEffort(ctx context.Context, events []ports.AuditEvent) {
	if s.stream == nil {
		return
	}
	for _, event := range events {
		if err := s.stream.Publish(ctx, event); err != nil {
			logging.Warn(ctx, "audit stream publish failed",
				slog.String("operation", event.Operation),
				slog.Any("err", errs.Loggable(err)),
			)
		}
	}
}
