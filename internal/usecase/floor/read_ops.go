package floor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/errs"
	"pitboss/internal/ports"
)

// Reads are naturally idempotent and skip the guard entirely. The hint
// lookups below never decide correctness: mutations always go through the
// repository and the seat-hold insert.

// occupancyHintTTL bounds staleness when another process mutates the floor
// without this one seeing the invalidation.
const occupancyHintTTL = 30 * time.Second

func (s *Service) GetSlip(ctx context.Context, slipID uint64) (ports.RatingSlip, error) {
	if err := s.checkRead(ctx); err != nil {
		return ports.RatingSlip{}, err
	}
	return s.repo.GetSlip(ctx, slipID)
}

// GetActiveSlipsForTable lists the table's non-terminal slips in seat order.
func (s *Service) GetActiveSlipsForTable(ctx context.Context, tableID uint64) ([]ports.RatingSlip, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetTable(ctx, tableID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveSlipsForTable(ctx, tableID)
}

// SeatMap returns seat number -> occupying slip id for one table. Served
// from the occupancy hint when present; every occupancy mutation drops the
// hint, so a hit is at worst as stale as the last commit.
func (s *Service) SeatMap(ctx context.Context, tableID uint64) (map[int]uint64, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetTable(ctx, tableID); err != nil {
		return nil, err
	}

	if cached, ok := s.getCacheBestEffort(ctx, cacheTableOccupancyKey(tableID)); ok {
		var seats map[int]uint64
		if err := json.Unmarshal([]byte(cached), &seats); err == nil {
			return seats, nil
		}
	}

	seats, err := s.repo.SeatMap(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(seats); err == nil {
		s.setCacheTTLBestEffort(ctx, cacheTableOccupancyKey(tableID), string(payload), occupancyHintTTL)
	}
	return seats, nil
}

// SlipStatus answers the floor's cheapest question, "is this slip still
// live", from the status hint when possible, backfilling it on a miss.
func (s *Service) SlipStatus(ctx context.Context, slipID uint64) (string, error) {
	if err := s.checkRead(ctx); err != nil {
		return "", err
	}

	if cached, ok := s.getCacheBestEffort(ctx, cacheSlipStatusKey(slipID)); ok {
		if _, err := domainfloor.ParseSlipStatus(cached); err == nil {
			return cached, nil
		}
	}

	slip, err := s.repo.GetSlip(ctx, slipID)
	if err != nil {
		return "", err
	}
	s.setCacheBestEffort(ctx, cacheSlipStatusKey(slipID), slip.Status)
	return slip.Status, nil
}

func (s *Service) GetTable(ctx context.Context, tableID uint64) (ports.Table, error) {
	if err := s.checkRead(ctx); err != nil {
		return ports.Table{}, err
	}
	return s.repo.GetTable(ctx, tableID)
}

func (s *Service) ListTables(ctx context.Context) ([]ports.Table, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListTables(ctx, s.casino.CasinoID)
}

func (s *Service) GetVisit(ctx context.Context, visitID uint64) (ports.Visit, error) {
	if err := s.checkRead(ctx); err != nil {
		return ports.Visit{}, err
	}
	return s.repo.GetVisit(ctx, visitID)
}

func (s *Service) ListAuditEventsForSlip(ctx context.Context, slipID uint64, limit int) ([]ports.AuditEvent, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListAuditEventsForSlip(ctx, slipID, limit)
}

func (s *Service) ListAuditEventsForTable(ctx context.Context, tableID uint64, limit int) ([]ports.AuditEvent, error) {
	if err := s.checkRead(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListAuditEventsForTable(ctx, tableID, limit)
}

func (s *Service) checkRead(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errors.New("floor repository is required")
	}
	return nil
}
