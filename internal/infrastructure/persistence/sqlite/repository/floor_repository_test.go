package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"pitboss/internal/infrastructure/persistence/sqlite/model"
	"pitboss/internal/ports"
)

func newTestRepo(t *testing.T) (*FloorRepository, context.Context) {
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
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	return NewFloorRepository(db), context.Background()
}

func seedTable(t *testing.T, repo *FloorRepository, ctx context.Context) ports.Table {
	t.Helper()

	table, err := repo.CreateTable(ctx, ports.Table{
		CasinoID:  "main",
		Label:     "BJ-01",
		GameType:  "blackjack",
		Status:    "active",
		SeatCount: 7,
		MinBet:    2500,
		MaxBet:    100000,
		CreatedAt: "2026-02-01T10:00:00Z",
		UpdatedAt: "2026-02-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return table
}

func seedSlip(t *testing.T, repo *FloorRepository, ctx context.Context, tableID uint64, seat int) ports.RatingSlip {
	t.Helper()

	player := "P-100"
	slip, err := repo.CreateSlip(ctx, ports.RatingSlip{
		TableID:    tableID,
		SeatNumber: &seat,
		VisitID:    1,
		PlayerID:   &player,
		Status:     "open",
		StartTime:  "2026-02-01T10:05:00Z",
		AverageBet: 5000,
		GamingDay:  "2026-02-01",
		UpdatedAt:  "2026-02-01T10:05:00Z",
	})
	if err != nil {
		t.Fatalf("create slip: %v", err)
	}
	return slip
}

func TestReserveSeatIsExclusive(t *testing.T) {
	repo, ctx := newTestRepo(t)
	table := seedTable(t, repo, ctx)

	reserved, err := repo.ReserveSeat(ctx, table.TableID, 3, 10)
	if err != nil {
		t.Fatalf("ReserveSeat() error = %v", err)
	}
	if !reserved {
		t.Fatal("first ReserveSeat() should win the seat")
	}

	reserved, err = repo.ReserveSeat(ctx, table.TableID, 3, 11)
	if err != nil {
		t.Fatalf("ReserveSeat() error = %v", err)
	}
	if reserved {
		t.Fatal("second ReserveSeat() on the same seat should lose")
	}

	// A different seat at the same table is free.
	reserved, err = repo.ReserveSeat(ctx, table.TableID, 4, 11)
	if err != nil {
		t.Fatalf("ReserveSeat() error = %v", err)
	}
	if !reserved {
		t.Fatal("ReserveSeat() on a free seat should win")
	}

	if err := repo.ReleaseSeat(ctx, table.TableID, 3, 10); err != nil {
		t.Fatalf("ReleaseSeat() error = %v", err)
	}

	reserved, err = repo.ReserveSeat(ctx, table.TableID, 3, 12)
	if err != nil {
		t.Fatalf("ReserveSeat() error = %v", err)
	}
	if !reserved {
		t.Fatal("ReserveSeat() after release should win")
	}
}

func TestReleaseSeatRequiresMatchingSlip(t *testing.T) {
	repo, ctx := newTestRepo(t)
	table := seedTable(t, repo, ctx)

	if _, err := repo.ReserveSeat(ctx, table.TableID, 1, 10); err != nil {
		t.Fatalf("ReserveSeat() error = %v", err)
	}

	// Wrong slip id must not free the seat.
	if err := repo.ReleaseSeat(ctx, table.TableID, 1, 99); err != nil {
		t.Fatalf("ReleaseSeat() error = %v", err)
	}

	seats, err := repo.SeatMap(ctx, table.TableID)
	if err != nil {
		t.Fatalf("SeatMap() error = %v", err)
	}
	if seats[1] != 10 {
		t.Fatalf("SeatMap()[1] = %d, want 10", seats[1])
	}
}

func TestSeatMap(t *testing.T) {
	repo, ctx := newTestRepo(t)
	table := seedTable(t, repo, ctx)

	for seat, slipID := range map[int]uint64{2: 20, 5: 21} {
		if _, err := repo.ReserveSeat(ctx, table.TableID, seat, slipID); err != nil {
			t.Fatalf("ReserveSeat() error = %v", err)
		}
	}

	seats, err := repo.SeatMap(ctx, table.TableID)
	if err != nil {
		t.Fatalf("SeatMap() error = %v", err)
	}
	if len(seats) != 2 || seats[2] != 20 || seats[5] != 21 {
		t.Fatalf("SeatMap() = %v", seats)
	}
}

func TestSlipLifecyclePersistence(t *testing.T) {
	repo, ctx := newTestRepo(t)
	table := seedTable(t, repo, ctx)
	slip := seedSlip(t, repo, ctx, table.TableID, 3)

	if err := repo.SetSlipStatus(ctx, slip.SlipID, "paused", "2026-02-01T11:00:00Z"); err != nil {
		t.Fatalf("SetSlipStatus() error = %v", err)
	}

	got, err := repo.GetSlip(ctx, slip.SlipID)
	if err != nil {
		t.Fatalf("GetSlip() error = %v", err)
	}
	if got.Status != "paused" || got.UpdatedAt != "2026-02-01T11:00:00Z" {
		t.Fatalf("GetSlip() = %+v", got)
	}

	chips := int64(12000)
	if err := repo.CloseSlip(ctx, slip.SlipID, "2026-02-01T12:00:00Z", &chips, "settled"); err != nil {
		t.Fatalf("CloseSlip() error = %v", err)
	}

	got, err = repo.GetSlip(ctx, slip.SlipID)
	if err != nil {
		t.Fatalf("GetSlip() error = %v", err)
	}
	if got.Status != "closed" {
		t.Fatalf("GetSlip() status = %s, want closed", got.Status)
	}
	if got.EndTime == nil || *got.EndTime != "2026-02-01T12:00:00Z" {
		t.Fatalf("GetSlip() end time = %v", got.EndTime)
	}
	if got.ChipsTaken == nil || *got.ChipsTaken != 12000 {
		t.Fatalf("GetSlip() chips taken = %v", got.ChipsTaken)
	}
	if got.CloseReason == nil || *got.CloseReason != "settled" {
		t.Fatalf("GetSlip() close reason = %v", got.CloseReason)
	}
}

func TestGetSlipNotFound(t *testing.T) {
	repo, ctx := newTestRepo(t)

	if _, err := repo.GetSlip(ctx, 404); !errors.Is(err, ports.ErrSlipNotFound) {
		t.Fatalf("GetSlip() error = %v, want ErrSlipNotFound", err)
	}
	if err := repo.SetSlipStatus(ctx, 404, "paused", "2026-02-01T11:00:00Z"); !errors.Is(err, ports.ErrSlipNotFound) {
		t.Fatalf("SetSlipStatus() error = %v, want ErrSlipNotFound", err)
	}
}

func TestListActiveSlipsExcludesClosed(t *testing.T) {
	repo, ctx := newTestRepo(t)
	table := seedTable(t, repo, ctx)

	first := seedSlip(t, repo, ctx, table.TableID, 5)
	second := seedSlip(t, repo, ctx, table.TableID, 2)
	if err := repo.SetSlipStatus(ctx, second.SlipID, "paused", "2026-02-01T11:00:00Z"); err != nil {
		t.Fatalf("SetSlipStatus() error = %v", err)
	}
	closed := seedSlip(t, repo, ctx, table.TableID, 7)
	if err := repo.CloseSlip(ctx, closed.SlipID, "2026-02-01T12:00:00Z", nil, "settled"); err != nil {
		t.Fatalf("CloseSlip() error = %v", err)
	}

	slips, err := repo.ListActiveSlipsForTable(ctx, table.TableID)
	if err != nil {
		t.Fatalf("ListActiveSlipsForTable() error = %v", err)
	}
	if len(slips) != 2 {
		t.Fatalf("ListActiveSlipsForTable() = %d slips, want 2", len(slips))
	}
	// Seat order, not insertion order.
	if slips[0].SlipID != second.SlipID || slips[1].SlipID != first.SlipID {
		t.Fatalf("ListActiveSlipsForTable() order = %d, %d", slips[0].SlipID, slips[1].SlipID)
	}

	count, err := repo.CountNonTerminalSlipsForTable(ctx, table.TableID)
	if err != nil {
		t.Fatalf("CountNonTerminalSlipsForTable() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("CountNonTerminalSlipsForTable() = %d, want 2", count)
	}
}

func TestTableStatusUpdate(t *testing.T) {
	repo, ctx := newTestRepo(t)
	table := seedTable(t, repo, ctx)

	if err := repo.SetTableStatus(ctx, table.TableID, "inactive", "2026-02-01T13:00:00Z"); err != nil {
		t.Fatalf("SetTableStatus() error = %v", err)
	}
	got, err := repo.GetTable(ctx, table.TableID)
	if err != nil {
		t.Fatalf("GetTable() error = %v", err)
	}
	if got.Status != "inactive" {
		t.Fatalf("GetTable() status = %s, want inactive", got.Status)
	}

	if err := repo.SetTableStatus(ctx, 404, "closed", "2026-02-01T13:00:00Z"); !errors.Is(err, ports.ErrTableNotFound) {
		t.Fatalf("SetTableStatus() error = %v, want ErrTableNotFound", err)
	}
}

func TestVisitFindAndReopen(t *testing.T) {
	repo, ctx := newTestRepo(t)

	visit, inserted, err := repo.CreateVisit(ctx, ports.Visit{
		PlayerID:  "P-100",
		CasinoID:  "main",
		GamingDay: "2026-02-01",
		StartedAt: "2026-02-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("CreateVisit() error = %v", err)
	}
	if !inserted {
		t.Fatal("CreateVisit() should insert a fresh visit")
	}

	found, err := repo.FindVisit(ctx, "P-100", "main", "2026-02-01")
	if err != nil {
		t.Fatalf("FindVisit() error = %v", err)
	}
	if found.VisitID != visit.VisitID {
		t.Fatalf("FindVisit() = visit %d, want %d", found.VisitID, visit.VisitID)
	}

	if _, err := repo.FindVisit(ctx, "P-100", "main", "2026-02-02"); !errors.Is(err, ports.ErrVisitNotFound) {
		t.Fatalf("FindVisit() on other day error = %v, want ErrVisitNotFound", err)
	}

	if err := repo.EndVisit(ctx, visit.VisitID, "2026-02-01T18:00:00Z"); err != nil {
		t.Fatalf("EndVisit() error = %v", err)
	}
	ended, err := repo.GetVisit(ctx, visit.VisitID)
	if err != nil {
		t.Fatalf("GetVisit() error = %v", err)
	}
	if ended.EndedAt == nil || *ended.EndedAt != "2026-02-01T18:00:00Z" {
		t.Fatalf("GetVisit() ended at = %v", ended.EndedAt)
	}

	if err := repo.ReopenVisit(ctx, visit.VisitID); err != nil {
		t.Fatalf("ReopenVisit() error = %v", err)
	}
	reopened, err := repo.GetVisit(ctx, visit.VisitID)
	if err != nil {
		t.Fatalf("GetVisit() error = %v", err)
	}
	if reopened.EndedAt != nil {
		t.Fatalf("GetVisit() ended at = %v, want nil after reopen", reopened.EndedAt)
	}
	if !reopened.Resumed {
		t.Fatal("GetVisit() resumed should be true after reopen")
	}
}

func TestCreateVisitOnePerPlayerPerGamingDay(t *testing.T) {
	repo, ctx := newTestRepo(t)

	visit := ports.Visit{
		PlayerID:  "P-100",
		CasinoID:  "main",
		GamingDay: "2026-02-01",
		StartedAt: "2026-02-01T10:00:00Z",
	}

	first, inserted, err := repo.CreateVisit(ctx, visit)
	if err != nil {
		t.Fatalf("CreateVisit() error = %v", err)
	}
	if !inserted {
		t.Fatal("first CreateVisit() should insert")
	}

	// Same player, casino, and gaming day: the unique index decides.
	_, inserted, err = repo.CreateVisit(ctx, visit)
	if err != nil {
		t.Fatalf("CreateVisit() duplicate error = %v", err)
	}
	if inserted {
		t.Fatal("duplicate CreateVisit() for the same gaming day should not insert")
	}

	winner, err := repo.FindVisit(ctx, "P-100", "main", "2026-02-01")
	if err != nil {
		t.Fatalf("FindVisit() error = %v", err)
	}
	if winner.VisitID != first.VisitID {
		t.Fatalf("FindVisit() = visit %d, want the first insert %d", winner.VisitID, first.VisitID)
	}

	nextDay := visit
	nextDay.GamingDay = "2026-02-02"
	if _, inserted, err = repo.CreateVisit(ctx, nextDay); err != nil || !inserted {
		t.Fatalf("CreateVisit() next gaming day = inserted %v, err %v", inserted, err)
	}
	otherPlayer := visit
	otherPlayer.PlayerID = "P-200"
	if _, inserted, err = repo.CreateVisit(ctx, otherPlayer); err != nil || !inserted {
		t.Fatalf("CreateVisit() other player = inserted %v, err %v", inserted, err)
	}
}

func TestAuditEventListingAndLimit(t *testing.T) {
	repo, ctx := newTestRepo(t)

	slipID := uint64(10)
	tableID := uint64(1)
	for i, op := range []string{"slip.create", "slip.pause", "slip.resume"} {
		_, err := repo.AppendAuditEvent(ctx, ports.AuditEventCreate{
			Operation:     op,
			ActorID:       "floor-supervisor",
			SlipID:        &slipID,
			TableID:       &tableID,
			CorrelationID: "c-1",
			Outcome:       "committed",
			OccurredAt:    fmt.Sprintf("2026-02-01T10:00:%02dZ", i),
		})
		if err != nil {
			t.Fatalf("AppendAuditEvent() error = %v", err)
		}
	}

	events, err := repo.ListAuditEventsForSlip(ctx, slipID, 10)
	if err != nil {
		t.Fatalf("ListAuditEventsForSlip() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("ListAuditEventsForSlip() = %d events, want 3", len(events))
	}
	// Newest first.
	if events[0].Operation != "slip.resume" || events[2].Operation != "slip.create" {
		t.Fatalf("ListAuditEventsForSlip() order = %s ... %s", events[0].Operation, events[2].Operation)
	}

	limited, err := repo.ListAuditEventsForTable(ctx, tableID, 2)
	if err != nil {
		t.Fatalf("ListAuditEventsForTable() error = %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("ListAuditEventsForTable() = %d events, want 2", len(limited))
	}
}

func TestIdempotencyRecordInsertOnce(t *testing.T) {
	repo, ctx := newTestRepo(t)

	record := ports.IdempotencyRecord{
		Key:         "k-1",
		Fingerprint: "f-1",
		Operation:   "slip.create",
		ResultJSON:  `{"SlipID":1}`,
		CreatedAt:   "2026-02-01T10:00:00Z",
		ExpiresAt:   "2026-02-02T10:00:00Z",
	}

	inserted, err := repo.PutIdempotencyRecord(ctx, record)
	if err != nil {
		t.Fatalf("PutIdempotencyRecord() error = %v", err)
	}
	if !inserted {
		t.Fatal("first PutIdempotencyRecord() should insert")
	}

	duplicate := record
	duplicate.ResultJSON = `{"SlipID":2}`
	inserted, err = repo.PutIdempotencyRecord(ctx, duplicate)
	if err != nil {
		t.Fatalf("PutIdempotencyRecord() error = %v", err)
	}
	if inserted {
		t.Fatal("second PutIdempotencyRecord() with the same key should not insert")
	}

	got, found, err := repo.GetIdempotencyRecord(ctx, "k-1")
	if err != nil {
		t.Fatalf("GetIdempotencyRecord() error = %v", err)
	}
	if !found {
		t.Fatal("GetIdempotencyRecord() should find the record")
	}
	if got.ResultJSON != `{"SlipID":1}` {
		t.Fatalf("GetIdempotencyRecord() result = %s, want the first writer's result", got.ResultJSON)
	}

	if err := repo.DeleteIdempotencyRecord(ctx, "k-1"); err != nil {
		t.Fatalf("DeleteIdempotencyRecord() error = %v", err)
	}
	if _, found, err = repo.GetIdempotencyRecord(ctx, "k-1"); err != nil || found {
		t.Fatalf("GetIdempotencyRecord() after delete = found %v, err %v", found, err)
	}
}
