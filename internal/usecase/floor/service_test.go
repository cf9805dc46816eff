package floor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/infrastructure/cache"
	"pitboss/internal/infrastructure/persistence/sqlite/model"
	"pitboss/internal/infrastructure/persistence/sqlite/repository"
	"pitboss/internal/infrastructure/persistence/sqlite/uow"
	"pitboss/internal/ports"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "floor.sqlite")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Table{},
		&model.RatingSlip{},
		&model.SeatHold{},
		&model.Visit{},
		&model.AuditEvent{},
		&model.IdempotencyRecord{},
		&model.FloorKV{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	repo := repository.NewFloorRepository(db)
	svc := NewService(repo, uow.NewUnitOfWork(db), cache.NewSQLiteCache(db), nil, CasinoSettings{
		CasinoID:        "main",
		GamingDayCutoff: 6,
		Location:        time.UTC,
		IdempotencyTTL:  time.Hour,
	})
	svc.now = func() time.Time {
		return time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	}
	return svc, context.Background()
}

func activeTable(t *testing.T, svc *Service, ctx context.Context, label string) ports.Table {
	t.Helper()

	table, err := svc.CreateTable(ctx, CreateTableInput{
		Label:     label,
		GameType:  "blackjack",
		SeatCount: 7,
		MinBet:    2500,
		MaxBet:    100000,
		ActorID:   "setup",
		IdemKey:   uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("create table %s: %v", label, err)
	}
	table, err = svc.ActivateTable(ctx, table.TableID, "setup", uuid.NewString())
	if err != nil {
		t.Fatalf("activate table %s: %v", label, err)
	}
	return table
}

func startedVisit(t *testing.T, svc *Service, ctx context.Context, playerID string) ports.Visit {
	t.Helper()

	visit, err := svc.StartVisit(ctx, StartVisitInput{
		PlayerID: playerID,
		ActorID:  "setup",
		IdemKey:  uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("start visit for %s: %v", playerID, err)
	}
	return visit
}

func openSlip(t *testing.T, svc *Service, ctx context.Context, tableID uint64, seat int, visitID uint64) ports.RatingSlip {
	t.Helper()

	slip, err := svc.CreateSlip(ctx, CreateSlipInput{
		TableID:    tableID,
		Seat:       seat,
		VisitID:    visitID,
		PlayerID:   "P-100",
		AverageBet: 5000,
		ActorID:    "setup",
		IdemKey:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("open slip at table %d seat %d: %v", tableID, seat, err)
	}
	return slip
}

func countRejections(t *testing.T, events []ports.AuditEvent, operation string) int {
	t.Helper()

	n := 0
	for _, event := range events {
		if event.Operation == operation && event.Outcome == "rejected" {
			n++
		}
	}
	return n
}

func TestCreateSlipOnFreeSeat(t *testing.T) {
	svc, ctx := newTestService(t)
	table := activeTable(t, svc, ctx, "BJ-01")
	visit := startedVisit(t, svc, ctx, "P-100")

	slip, err := svc.CreateSlip(ctx, CreateSlipInput{
		TableID:    table.TableID,
		Seat:       3,
		VisitID:    visit.VisitID,
		PlayerID:   "P-100",
		AverageBet: 5000,
		ActorID:    "sup-1",
		IdemKey:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("CreateSlip() error = %v", err)
	}
	if slip.Status != string(domainfloor.SlipOpen) {
		t.Fatalf("CreateSlip() status = %s, want open", slip.Status)
	}
	if slip.GamingDay != "2026-02-01" {
		t.Fatalf("CreateSlip() gaming day = %s, want 2026-02-01", slip.GamingDay)
	}

	seats, err := svc.SeatMap(ctx, table.TableID)
	if err != nil {
		t.Fatalf("SeatMap() error = %v", err)
	}
	if seats[3] != slip.SlipID {
		t.Fatalf("SeatMap()[3] = %d, want %d", seats[3], slip.SlipID)
	}

	events, err := svc.ListAuditEventsForSlip(ctx, slip.SlipID, 10)
	if err != nil {
		t.Fatalf("ListAuditEventsForSlip() error = %v", err)
	}
	if len(events) != 1 || events[0].Operation != domainfloor.OpCreateSlip || events[0].Outcome != "committed" {
		t.Fatalf("audit trail = %+v", events)
	}
}

func TestCreateSlipSeatConflict(t *testing.T) {
	svc, ctx := newTestService(t)
	table := activeTable(t, svc, ctx, "BJ-01")
	visit := startedVisit(t, svc, ctx, "P-100")
	openSlip(t, svc, ctx, table.TableID, 3, visit.VisitID)

	_, err := svc.CreateSlip(ctx, CreateSlipInput{
		TableID:    table.TableID,
		Seat:       3,
		VisitID:    visit.VisitID,
		PlayerID:   "P-200",
		AverageBet: 1000,
		ActorID:    "sup-2",
		IdemKey:    uuid.NewString(),
	})
	if !errors.Is(err, domainfloor.ErrSeatConflict) {
		t.Fatalf("CreateSlip() error = %v, want ErrSeatConflict", err)
	}

	// The losing slip insert rolled back with the seat claim.
	slips, err := svc.GetActiveSlipsForTable(ctx, table.TableID)
	if err != nil {
		t.Fatalf("GetActiveSlipsForTable() error = %v", err)
	}
	if len(slips) != 1 {
		t.Fatalf("active slips = %d, want 1", len(slips))
	}

	events, err := svc.ListAuditEventsForTable(ctx, table.TableID, 20)
	if err != nil {
		t.Fatalf("ListAuditEventsForTable() error = %v", err)
	}
	if countRejections(t, events, domainfloor.OpCreateSlip) != 1 {
		t.Fatalf("want one rejected slip.create audit event, got %+v", events)
	}
}

func TestCreateSlipGuards(t *testing.T) {
	svc, ctx := newTestService(t)
	table := activeTable(t, svc, ctx, "BJ-01")
	visit := startedVisit(t, svc, ctx, "P-100")

	inactive, err := svc.CreateTable(ctx, CreateTableInput{
		Label: "BJ-02", GameType: "blackjack", SeatCount: 7,
		ActorID: "setup", IdemKey: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	tests := []struct {
		name    string
		input   CreateSlipInput
		wantErr error
	}{
		{
			name: "inactive table",
			input: CreateSlipInput{
				TableID: inactive.TableID, Seat: 1, VisitID: visit.VisitID,
			},
			wantErr: domainfloor.ErrTableNotActive,
		},
		{
			name: "seat out of range",
			input: CreateSlipInput{
				TableID: table.TableID, Seat: 8, VisitID: visit.VisitID,
			},
			wantErr: domainfloor.ErrSeatOutOfRange,
		},
		{
			name: "seat zero",
			input: CreateSlipInput{
				TableID: table.TableID, Seat: 0, VisitID: visit.VisitID,
			},
			wantErr: domainfloor.ErrSeatOutOfRange,
		},
		{
			name: "missing visit",
			input: CreateSlipInput{
				TableID: table.TableID, Seat: 1, VisitID: 404,
			},
			wantErr: ports.ErrVisitNotFound,
		},
		{
			name: "missing table",
			input: CreateSlipInput{
				TableID: 404, Seat: 1, VisitID: visit.VisitID,
			},
			wantErr: ports.ErrTableNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.ActorID = "sup-1"
			tt.input.IdemKey = uuid.NewString()
			if _, err := svc.CreateSlip(ctx, tt.input); !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateSlip() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSlipPauseResumeClose(t *testing.T) {
	svc, ctx := newTestService(t)
	table := activeTable(t, svc, ctx, "BJ-01")
	visit := startedVisit(t, svc, ctx, "P-100")
	slip := openSlip(t, svc, ctx, table.TableID, 3, visit.VisitID)

	paused, err := svc.PauseSlip(ctx, PauseSlipInput{SlipID: slip.SlipID, ActorID: "sup-1", IdemKey: uuid.NewString()})
	if err != nil {
		t.Fatalf("PauseSlip() error = %v", err)
	}
	if paused.Status != string(domainfloor.SlipPaused) {
		t.Fatalf("PauseSlip() status = %s", paused.Status)
	}

	// A paused slip keeps its seat.
	seats, err := svc.SeatMap(ctx, table.TableID)
	if err != nil {
		t.Fatalf("SeatMap() error = %v", err)
	}
	if seats[3] != slip.SlipID {
		t.Fatalf("SeatMap()[3] = %d after pause, want %d", seats[3], slip.SlipID)
	}

	resumed, err := svc.ResumeSlip(ctx, ResumeSlipInput{SlipID: slip.SlipID, ActorID: "sup-1", IdemKey: uuid.NewString()})
	if err != nil {
		t.Fatalf("ResumeSlip() error = %v", err)
	}
	if resumed.Status != string(domainfloor.SlipOpen) {
		t.Fatalf("ResumeSlip() status = %s", resumed.Status)
	}

	chips := int64(12000)
	closed, err := svc.CloseSlip(ctx, CloseSlipInput{SlipID: slip.SlipID, ChipsTaken: &chips, ActorID: "sup-1", IdemKey: uuid.NewString()})
	if err != nil {
		t.Fatalf("CloseSlip() error = %v", err)
	}
	if closed.Status != string(domainfloor.SlipClosed) {
		t.Fatalf("CloseSlip() status = %s", closed.Status)
	}
	if closed.CloseReason == nil || *closed.CloseReason != "settled" {
		t.Fatalf("CloseSlip() close reason = %v", closed.CloseReason)
	}

	seats, err = svc.SeatMap(ctx, table.TableID)
	if err != nil {
		t.Fatalf("SeatMap() error = %v", err)
	}
	if len(seats) != 0 {
		t.Fatalf("SeatMap() after close = %v, want empty", seats)
	}
}

func TestPauseClosedSlipRejected(t *testing.T) {
	svc, ctx := newTestService(t)
	table := activeTable(t, svc, ctx, "BJ-01")
	visit := startedVisit(t, svc, ctx, "P-100")
	slip := openSlip(t, svc, ctx, table.TableID, 3, visit.VisitID)

	if _, err := svc.CloseSlip(ctx, CloseSlipInput{SlipID: slip.SlipID, ActorID: "sup-1", IdemKey: uuid.NewString()}); err != nil {
		t.Fatalf("CloseSlip() error = %v", err)
	}

	_, err := svc.PauseSlip(ctx, PauseSlipInput{SlipID: slip.SlipID, ActorID: "sup-1", IdemKey: uuid.NewString()})
	if !errors.Is(err, domainfloor.ErrInvalidTransition) {
		t.Fatalf("PauseSlip() on closed slip error = %v, want ErrInvalidTransition", err)
	}

	events, err := svc.ListAuditEventsForSlip(ctx, slip.SlipID, 20)
	if err != nil {
		t.Fatalf("ListAuditEventsForSlip() error = %v", err)
	}
	if countRejections(t, events, domainfloor.OpPauseSlip) != 1 {
		t.Fatalf("want one rejected slip.pause audit event, got %+v", events)
	}
}

func TestCloseTableGuardedBySlips(t *testing.T) {
	svc, ctx := newTestService(t)
	table := activeTable(t, svc, ctx, "BJ-01")
	visit := startedVisit(t, svc, ctx, "P-100")
	slip := openSlip(t, svc, ctx, table.TableID, 3, visit.VisitID)

	if _, err := svc.CloseTable(ctx, table.TableID, "sup-1", uuid.NewString()); !errors.Is(err, domainfloor.ErrTableHasOpenSlips) {
		t.Fatalf("CloseTable() error = %v, want ErrTableHasOpenSlips", err)
	}

	if _, err := svc.CloseSlip(ctx, CloseSlipInput{SlipID: slip.SlipID, ActorID: "sup-1", IdemKey: uuid.NewString()}); err != nil {
		t.Fatalf("CloseSlip() error = %v", err)
	}

	closed, err := svc.CloseTable(ctx, table.TableID, "sup-1", uuid.NewString())
	if err != nil {
		t.Fatalf("CloseTable() error = %v", err)
	}
	if closed.Status != string(domainfloor.TableClosed) {
		t.Fatalf("CloseTable() status = %s", closed.Status)
	}

	// Closed tables never reopen.
	if _, err := svc.ActivateTable(ctx, table.TableID, "sup-1", uuid.NewString()); !errors.Is(err, domainfloor.ErrInvalidTransition) {
		t.Fatalf("ActivateTable() on closed table error = %v, want ErrInvalidTransition", err)
	}
}

func TestVisitResumeSameGamingDay(t *testing.T) {
	svc, ctx := newTestService(t)

	first := startedVisit(t, svc, ctx, "P-100")

	ended, err := svc.EndVisit(ctx, EndVisitInput{VisitID: first.VisitID, ActorID: "sup-1", IdemKey: uuid.NewString()})
	if err != nil {
		t.Fatalf("EndVisit() error = %v", err)
	}
	if ended.EndedAt == nil {
		t.Fatal("EndVisit() should stamp EndedAt")
	}

	second := startedVisit(t, svc, ctx, "P-100")
	if second.VisitID != first.VisitID {
		t.Fatalf("StartVisit() same day = visit %d, want reopened visit %d", second.VisitID, first.VisitID)
	}
	if !second.Resumed {
		t.Fatal("StartVisit() same day should mark the visit resumed")
	}
}

func TestEndVisitWithOpenSlipsRejected(t *testing.T) {
	svc, ctx := newTestService(t)
	table := activeTable(t, svc, ctx, "BJ-01")
	visit := startedVisit(t, svc, ctx, "P-100")
	slip := openSlip(t, svc, ctx, table.TableID, 3, visit.VisitID)

	if _, err := svc.EndVisit(ctx, EndVisitInput{VisitID: visit.VisitID, ActorID: "sup-1", IdemKey: uuid.NewString()}); !errors.Is(err, domainfloor.ErrVisitHasOpenSlips) {
		t.Fatalf("EndVisit() error = %v, want ErrVisitHasOpenSlips", err)
	}

	if _, err := svc.CloseSlip(ctx, CloseSlipInput{SlipID: slip.SlipID, ActorID: "sup-1", IdemKey: uuid.NewString()}); err != nil {
		t.Fatalf("CloseSlip() error = %v", err)
	}
	if _, err := svc.EndVisit(ctx, EndVisitInput{VisitID: visit.VisitID, ActorID: "sup-1", IdemKey: uuid.NewString()}); err != nil {
		t.Fatalf("EndVisit() after settling error = %v", err)
	}
}
