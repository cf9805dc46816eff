package ports

import (
	"context"
	"errors"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrSlipNotFound  = errors.New("rating slip not found")
	ErrVisitNotFound = errors.New("visit not found")
)

// Table is a physical gaming table. Status is one of the floor.TableStatus
// values; SeatCount is fixed at creation.
type Table struct {
	TableID   uint64
	CasinoID  string
	Label     string
	GameType  string
	Status    string
	SeatCount int
	MinBet    int64
	MaxBet    int64
	CreatedAt string
	UpdatedAt string
}

// RatingSlip is one tracked play session at one seat. SeatNumber is nil only
// after the slip closed and released its seat; PlayerID is nil for ghost
// sessions. Timestamps are RFC3339Nano UTC strings.
type RatingSlip struct {
	SlipID            uint64
	TableID           uint64
	SeatNumber        *int
	VisitID           uint64
	PlayerID          *string
	Status            string
	StartTime         string
	EndTime           *string
	AverageBet        int64
	ChipsTaken        *int64
	CloseReason       *string
	PredecessorSlipID *uint64
	GamingDay         string
	UpdatedAt         string
}

// Visit groups a player's slips over one floor presence within a gaming day.
type Visit struct {
	VisitID   uint64
	PlayerID  string
	CasinoID  string
	GamingDay string
	StartedAt string
	EndedAt   *string
	Resumed   bool
}

// AuditEvent is one append-only compliance record. Move operations emit two
// events sharing a CorrelationID. Outcome is "committed" or "rejected".
type AuditEvent struct {
	AuditEventID  uint64
	Operation     string
	ActorID       string
	SlipID        *uint64
	TableID       *uint64
	CorrelationID string
	Outcome       string
	BeforeState   string
	AfterState    string
	Detail        string
	OccurredAt    string
}

type AuditEventCreate struct {
	Operation     string
	ActorID       string
	SlipID        *uint64
	TableID       *uint64
	CorrelationID string
	Outcome       string
	BeforeState   string
	AfterState    string
	Detail        string
	OccurredAt    string
}

// IdempotencyRecord pins a client key to the fingerprint and stored result of
// the request that first used it.
type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	Operation   string
	ResultJSON  string
	CreatedAt   string
	ExpiresAt   string
}

type FloorReadRepository interface {
	GetTable(ctx context.Context, tableID uint64) (Table, error)
	ListTables(ctx context.Context, casinoID string) ([]Table, error)

	GetSlip(ctx context.Context, slipID uint64) (RatingSlip, error)
	ListActiveSlipsForTable(ctx context.Context, tableID uint64) ([]RatingSlip, error)
	CountNonTerminalSlipsForTable(ctx context.Context, tableID uint64) (int64, error)
	CountNonTerminalSlipsForVisit(ctx context.Context, visitID uint64) (int64, error)

	// SeatMap returns seat number -> occupying slip id for one table.
	SeatMap(ctx context.Context, tableID uint64) (map[int]uint64, error)

	GetVisit(ctx context.Context, visitID uint64) (Visit, error)
	FindVisit(ctx context.Context, playerID string, casinoID string, gamingDay string) (Visit, error)

	ListAuditEventsForSlip(ctx context.Context, slipID uint64, limit int) ([]AuditEvent, error)
	ListAuditEventsForTable(ctx context.Context, tableID uint64, limit int) ([]AuditEvent, error)
}

type FloorRepository interface {
	FloorReadRepository

	CreateTable(ctx context.Context, table Table) (Table, error)
	SetTableStatus(ctx context.Context, tableID uint64, status string, updatedAt string) error

	CreateSlip(ctx context.Context, slip RatingSlip) (RatingSlip, error)
	SetSlipStatus(ctx context.Context, slipID uint64, status string, updatedAt string) error
	CloseSlip(ctx context.Context, slipID uint64, endTime string, chipsTaken *int64, closeReason string) error

	// ReserveSeat atomically claims (tableID, seat) for slipID. It returns
	// false when the seat already holds a non-terminal slip. This is the only
	// write path for the seat-occupancy invariant; callers never pre-check.
	ReserveSeat(ctx context.Context, tableID uint64, seat int, slipID uint64) (bool, error)
	ReleaseSeat(ctx context.Context, tableID uint64, seat int, slipID uint64) error

	// CreateVisit inserts the visit, returning false when a visit for the
	// same (player, casino, gaming day) already exists; the caller re-reads
	// the winner's row.
	CreateVisit(ctx context.Context, visit Visit) (Visit, bool, error)
	ReopenVisit(ctx context.Context, visitID uint64) error
	EndVisit(ctx context.Context, visitID uint64, endedAt string) error

	AppendAuditEvent(ctx context.Context, input AuditEventCreate) (AuditEvent, error)

	GetIdempotencyRecord(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	// PutIdempotencyRecord inserts the record, returning false when the key
	// is already present (concurrent duplicate).
	PutIdempotencyRecord(ctx context.Context, record IdempotencyRecord) (bool, error)
	DeleteIdempotencyRecord(ctx context.Context, key string) error
}
