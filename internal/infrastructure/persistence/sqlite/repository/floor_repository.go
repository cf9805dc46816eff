package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pitboss/internal/errs"
	"pitboss/internal/infrastructure/persistence/sqlite/model"
	"pitboss/internal/ports"
)

// FloorRepository implements ports.FloorRepository over gorm/sqlite.
type FloorRepository struct {
	db *gorm.DB
}

var _ ports.FloorRepository = (*FloorRepository)(nil)

func NewFloorRepository(db *gorm.DB) *FloorRepository {
	return &FloorRepository{db: db}
}

func (r *FloorRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// --- tables ---

func (r *FloorRepository) GetTable(ctx context.Context, tableID uint64) (ports.Table, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Table{}, err
	}

	var row model.Table
	if err := db.Where("table_id = ?", tableID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Table{}, ports.ErrTableNotFound
		}
		return ports.Table{}, errs.Wrap(err, "query table")
	}
	return mapTable(row), nil
}

func (r *FloorRepository) ListTables(ctx context.Context, casinoID string) ([]ports.Table, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Table{})
	if casinoID = strings.TrimSpace(casinoID); casinoID != "" {
		query = query.Where("casino_id = ?", casinoID)
	}

	var rows []model.Table
	if err := query.Order("table_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query tables")
	}

	items := make([]ports.Table, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapTable(row))
	}
	return items, nil
}

func (r *FloorRepository) CreateTable(ctx context.Context, table ports.Table) (ports.Table, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Table{}, err
	}

	row := model.Table{
		CasinoID:  table.CasinoID,
		Label:     table.Label,
		GameType:  table.GameType,
		Status:    table.Status,
		SeatCount: table.SeatCount,
		MinBet:    table.MinBet,
		MaxBet:    table.MaxBet,
		CreatedAt: table.CreatedAt,
		UpdatedAt: table.UpdatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Table{}, errs.Wrap(err, "insert table")
	}
	return mapTable(row), nil
}

func (r *FloorRepository) SetTableStatus(ctx context.Context, tableID uint64, status string, updatedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.Table{}).
		Where("table_id = ?", tableID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return errs.Wrap(res.Error, "update table status")
	}
	if res.RowsAffected == 0 {
		return ports.ErrTableNotFound
	}
	return nil
}

// --- rating slips ---

func (r *FloorRepository) GetSlip(ctx context.Context, slipID uint64) (ports.RatingSlip, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.RatingSlip{}, err
	}

	var row model.RatingSlip
	if err := db.Where("slip_id = ?", slipID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.RatingSlip{}, ports.ErrSlipNotFound
		}
		return ports.RatingSlip{}, errs.Wrap(err, "query rating slip")
	}
	return mapSlip(row), nil
}

func (r *FloorRepository) ListActiveSlipsForTable(ctx context.Context, tableID uint64) ([]ports.RatingSlip, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.RatingSlip
	if err := db.
		Where("table_id = ? AND status IN ?", tableID, nonTerminalStatuses).
		Order("seat_number asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query active slips")
	}

	items := make([]ports.RatingSlip, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapSlip(row))
	}
	return items, nil
}

func (r *FloorRepository) CountNonTerminalSlipsForTable(ctx context.Context, tableID uint64) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.RatingSlip{}).
		Where("table_id = ? AND status IN ?", tableID, nonTerminalStatuses).
		Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count table slips")
	}
	return count, nil
}

func (r *FloorRepository) CountNonTerminalSlipsForVisit(ctx context.Context, visitID uint64) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.RatingSlip{}).
		Where("visit_id = ? AND status IN ?", visitID, nonTerminalStatuses).
		Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count visit slips")
	}
	return count, nil
}

func (r *FloorRepository) CreateSlip(ctx context.Context, slip ports.RatingSlip) (ports.RatingSlip, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.RatingSlip{}, err
	}

	row := model.RatingSlip{
		TableID:           slip.TableID,
		SeatNumber:        slip.SeatNumber,
		VisitID:           slip.VisitID,
		PlayerID:          slip.PlayerID,
		Status:            slip.Status,
		StartTime:         slip.StartTime,
		EndTime:           slip.EndTime,
		AverageBet:        slip.AverageBet,
		ChipsTaken:        slip.ChipsTaken,
		CloseReason:       slip.CloseReason,
		PredecessorSlipID: slip.PredecessorSlipID,
		GamingDay:         slip.GamingDay,
		UpdatedAt:         slip.UpdatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.RatingSlip{}, errs.Wrap(err, "insert rating slip")
	}
	return mapSlip(row), nil
}

func (r *FloorRepository) SetSlipStatus(ctx context.Context, slipID uint64, status string, updatedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.RatingSlip{}).
		Where("slip_id = ?", slipID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return errs.Wrap(res.Error, "update slip status")
	}
	if res.RowsAffected == 0 {
		return ports.ErrSlipNotFound
	}
	return nil
}

func (r *FloorRepository) CloseSlip(ctx context.Context, slipID uint64, endTime string, chipsTaken *int64, closeReason string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"status":       "closed",
		"end_time":     endTime,
		"close_reason": closeReason,
		"updated_at":   endTime,
	}
	if chipsTaken != nil {
		updates["chips_taken"] = *chipsTaken
	}

	res := db.Model(&model.RatingSlip{}).
		Where("slip_id = ?", slipID).
		Updates(updates)
	if res.Error != nil {
		return errs.Wrap(res.Error, "close rating slip")
	}
	if res.RowsAffected == 0 {
		return ports.ErrSlipNotFound
	}
	return nil
}

// --- seat occupancy index ---

// ReserveSeat claims (tableID, seat) via a conditional insert against the
// seat_holds primary key. Exactly one concurrent caller gets the row; the
// rest see zero rows affected and report a conflict to the usecase, which
// aborts its transaction.
func (r *FloorRepository) ReserveSeat(ctx context.Context, tableID uint64, seat int, slipID uint64) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	row := model.SeatHold{
		TableID:    tableID,
		SeatNumber: seat,
		SlipID:     slipID,
		ClaimedAt:  nowUTCString(),
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, errs.Wrap(res.Error, "reserve seat")
	}
	return res.RowsAffected == 1, nil
}

func (r *FloorRepository) ReleaseSeat(ctx context.Context, tableID uint64, seat int, slipID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.
		Where("table_id = ? AND seat_number = ? AND slip_id = ?", tableID, seat, slipID).
		Delete(&model.SeatHold{}).Error; err != nil {
		return errs.Wrap(err, "release seat")
	}
	return nil
}

func (r *FloorRepository) SeatMap(ctx context.Context, tableID uint64) (map[int]uint64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.SeatHold
	if err := db.
		Where("table_id = ?", tableID).
		Order("seat_number asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query seat holds")
	}

	seats := make(map[int]uint64, len(rows))
	for _, row := range rows {
		seats[row.SeatNumber] = row.SlipID
	}
	return seats, nil
}

// --- visits ---

func (r *FloorRepository) GetVisit(ctx context.Context, visitID uint64) (ports.Visit, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Visit{}, err
	}

	var row model.Visit
	if err := db.Where("visit_id = ?", visitID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Visit{}, ports.ErrVisitNotFound
		}
		return ports.Visit{}, errs.Wrap(err, "query visit")
	}
	return mapVisit(row), nil
}

func (r *FloorRepository) FindVisit(ctx context.Context, playerID string, casinoID string, gamingDay string) (ports.Visit, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Visit{}, err
	}

	var row model.Visit
	if err := db.
		Where("player_id = ? AND casino_id = ? AND gaming_day = ?", playerID, casinoID, gamingDay).
		Order("visit_id desc").
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Visit{}, ports.ErrVisitNotFound
		}
		return ports.Visit{}, errs.Wrap(err, "query visit by gaming day")
	}
	return mapVisit(row), nil
}

// CreateVisit is a conditional insert against the per-gaming-day unique
// index, same shape as ReserveSeat: zero rows affected means another visit
// for the same (player, casino, gaming day) already exists.
func (r *FloorRepository) CreateVisit(ctx context.Context, visit ports.Visit) (ports.Visit, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Visit{}, false, err
	}

	row := model.Visit{
		PlayerID:  visit.PlayerID,
		CasinoID:  visit.CasinoID,
		GamingDay: visit.GamingDay,
		StartedAt: visit.StartedAt,
		EndedAt:   visit.EndedAt,
		Resumed:   visit.Resumed,
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return ports.Visit{}, false, errs.Wrap(res.Error, "insert visit")
	}
	if res.RowsAffected == 0 {
		return ports.Visit{}, false, nil
	}
	return mapVisit(row), true, nil
}

func (r *FloorRepository) ReopenVisit(ctx context.Context, visitID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.Visit{}).
		Where("visit_id = ?", visitID).
		Updates(map[string]any{
			"ended_at": nil,
			"resumed":  true,
		})
	if res.Error != nil {
		return errs.Wrap(res.Error, "reopen visit")
	}
	if res.RowsAffected == 0 {
		return ports.ErrVisitNotFound
	}
	return nil
}

func (r *FloorRepository) EndVisit(ctx context.Context, visitID uint64, endedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.Visit{}).
		Where("visit_id = ?", visitID).
		Update("ended_at", endedAt)
	if res.Error != nil {
		return errs.Wrap(res.Error, "end visit")
	}
	if res.RowsAffected == 0 {
		return ports.ErrVisitNotFound
	}
	return nil
}

// --- audit ---

func (r *FloorRepository) AppendAuditEvent(ctx context.Context, input ports.AuditEventCreate) (ports.AuditEvent, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.AuditEvent{}, err
	}

	row := model.AuditEvent{
		Operation:     input.Operation,
		ActorID:       input.ActorID,
		SlipID:        input.SlipID,
		TableID:       input.TableID,
		CorrelationID: input.CorrelationID,
		Outcome:       input.Outcome,
		BeforeState:   input.BeforeState,
		AfterState:    input.AfterState,
		Detail:        input.Detail,
		OccurredAt:    input.OccurredAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.AuditEvent{}, errs.Wrap(err, "append audit event")
	}
	return mapAuditEvent(row), nil
}

func (r *FloorRepository) ListAuditEventsForSlip(ctx context.Context, slipID uint64, limit int) ([]ports.AuditEvent, error) {
	return r.listAuditEvents(ctx, "slip_id = ?", slipID, limit)
}

func (r *FloorRepository) ListAuditEventsForTable(ctx context.Context, tableID uint64, limit int) ([]ports.AuditEvent, error) {
	return r.listAuditEvents(ctx, "table_id = ?", tableID, limit)
}

func (r *FloorRepository) listAuditEvents(ctx context.Context, cond string, id uint64, limit int) ([]ports.AuditEvent, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.AuditEvent{}).Where(cond, id).Order("audit_event_id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.AuditEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query audit events")
	}

	items := make([]ports.AuditEvent, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAuditEvent(row))
	}
	return items, nil
}

// --- idempotency ---

func (r *FloorRepository) GetIdempotencyRecord(ctx context.Context, key string) (ports.IdempotencyRecord, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.IdempotencyRecord{}, false, err
	}

	var row model.IdempotencyRecord
	if err := db.Where("key = ?", key).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, errs.Wrap(err, "query idempotency record")
	}

	return ports.IdempotencyRecord{
		Key:         row.Key,
		Fingerprint: row.Fingerprint,
		Operation:   row.Operation,
		ResultJSON:  row.ResultJSON,
		CreatedAt:   row.CreatedAt,
		ExpiresAt:   row.ExpiresAt,
	}, true, nil
}

func (r *FloorRepository) PutIdempotencyRecord(ctx context.Context, record ports.IdempotencyRecord) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	row := model.IdempotencyRecord{
		Key:         record.Key,
		Fingerprint: record.Fingerprint,
		Operation:   record.Operation,
		ResultJSON:  record.ResultJSON,
		CreatedAt:   record.CreatedAt,
		ExpiresAt:   record.ExpiresAt,
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, errs.Wrap(res.Error, "insert idempotency record")
	}
	return res.RowsAffected == 1, nil
}

func (r *FloorRepository) DeleteIdempotencyRecord(ctx context.Context, key string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Where("key = ?", key).Delete(&model.IdempotencyRecord{}).Error; err != nil {
		return errs.Wrap(err, "delete idempotency record")
	}
	return nil
}

// --- mapping ---

var nonTerminalStatuses = []string{"open", "paused"}

func mapTable(row model.Table) ports.Table {
	return ports.Table{
		TableID:   row.TableID,
		CasinoID:  row.CasinoID,
		Label:     row.Label,
		GameType:  row.GameType,
		Status:    row.Status,
		SeatCount: row.SeatCount,
		MinBet:    row.MinBet,
		MaxBet:    row.MaxBet,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func mapSlip(row model.RatingSlip) ports.RatingSlip {
	return ports.RatingSlip{
		SlipID:            row.SlipID,
		TableID:           row.TableID,
		SeatNumber:        row.SeatNumber,
		VisitID:           row.VisitID,
		PlayerID:          row.PlayerID,
		Status:            row.Status,
		StartTime:         row.StartTime,
		EndTime:           row.EndTime,
		AverageBet:        row.AverageBet,
		ChipsTaken:        row.ChipsTaken,
		CloseReason:       row.CloseReason,
		PredecessorSlipID: row.PredecessorSlipID,
		GamingDay:         row.GamingDay,
		UpdatedAt:         row.UpdatedAt,
	}
}

func mapVisit(row model.Visit) ports.Visit {
	return ports.Visit{
		VisitID:   row.VisitID,
		PlayerID:  row.PlayerID,
		CasinoID:  row.CasinoID,
		GamingDay: row.GamingDay,
		StartedAt: row.StartedAt,
		EndedAt:   row.EndedAt,
		Resumed:   row.Resumed,
	}
}

func mapAuditEvent(row model.AuditEvent) ports.AuditEvent {
	return ports.AuditEvent{
		AuditEventID:  row.AuditEventID,
		Operation:     row.Operation,
		ActorID:       row.ActorID,
		SlipID:        row.SlipID,
		TableID:       row.TableID,
		CorrelationID: row.CorrelationID,
		Outcome:       row.Outcome,
		BeforeState:   row.BeforeState,
		AfterState:    row.AfterState,
		Detail:        row.Detail,
		OccurredAt:    row.OccurredAt,
	}
}
