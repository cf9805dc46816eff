package floor

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/errs"
	"pitboss/internal/ports"
)

// CreateTable registers a new physical table. Tables start inactive; a
// separate activation opens them for slips.
func (s *Service) CreateTable(ctx context.Context, input CreateTableInput) (ports.Table, error) {
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return ports.Table{}, errors.New("table label is required")
	}
	gameType := strings.TrimSpace(input.GameType)
	if gameType == "" {
		return ports.Table{}, errors.New("game type is required")
	}
	if input.SeatCount < 1 {
		return ports.Table{}, errors.New("seat count must be positive")
	}

	fingerprint := domainfloor.Fingerprint(domainfloor.OpCreateTable,
		label,
		gameType,
		intString(input.SeatCount),
		int64String(input.MinBet),
		int64String(input.MaxBet),
	)

	var table ports.Table
	var events []ports.AuditEvent

	replayed, err := s.runIdempotent(ctx, domainfloor.OpCreateTable, input.IdemKey, fingerprint, &table, func(txCtx context.Context) error {
		now := s.nowUTCString()
		created, err := s.repo.CreateTable(txCtx, ports.Table{
			CasinoID:  s.casino.CasinoID,
			Label:     label,
			GameType:  gameType,
			Status:    string(domainfloor.TableInactive),
			SeatCount: input.SeatCount,
			MinBet:    input.MinBet,
			MaxBet:    input.MaxBet,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}

		event, err := appendAuditTx(txCtx, s.repo, ports.AuditEventCreate{
			Operation:     domainfloor.OpCreateTable,
			ActorID:       input.ActorID,
			TableID:       uintPtr(created.TableID),
			CorrelationID: uuid.NewString(),
			BeforeState:   "",
			AfterState:    created.Status,
			Detail:        label + " (" + gameType + ")",
			OccurredAt:    now,
		})
		if err != nil {
			return err
		}

		table = created
		events = append(events, event)
		return nil
	})
	if err != nil {
		return ports.Table{}, err
	}
	if replayed {
		return table, nil
	}

	s.publishBestEffort(ctx, events)
	return table, nil
}

// ActivateTable opens an inactive table for new slips.
func (s *Service) ActivateTable(ctx context.Context, tableID uint64, actorID string, idemKey string) (ports.Table, error) {
	return s.transitionTable(ctx, domainfloor.OpActivateTable, tableID, domainfloor.TableActive, actorID, idemKey)
}

// DeactivateTable stops an active table from accepting new slips. Existing
// slips keep running.
func (s *Service) DeactivateTable(ctx context.Context, tableID uint64, actorID string, idemKey string) (ports.Table, error) {
	return s.transitionTable(ctx, domainfloor.OpDeactivateTable, tableID, domainfloor.TableInactive, actorID, idemKey)
}

// CloseTable permanently retires a table. Rejected while any non-terminal
// slip remains; the floor closes those explicitly first, never by cascade.
func (s *Service) CloseTable(ctx context.Context, tableID uint64, actorID string, idemKey string) (ports.Table, error) {
	return s.transitionTable(ctx, domainfloor.OpCloseTable, tableID, domainfloor.TableClosed, actorID, idemKey)
}

func (s *Service) transitionTable(ctx context.Context, operation string, tableID uint64, target domainfloor.TableStatus, actorID string, idemKey string) (ports.Table, error) {
	fingerprint := domainfloor.Fingerprint(operation, uintString(tableID))

	var table ports.Table
	var events []ports.AuditEvent

	replayed, err := s.runIdempotent(ctx, operation, idemKey, fingerprint, &table, func(txCtx context.Context) error {
		current, err := s.repo.GetTable(txCtx, tableID)
		if err != nil {
			return err
		}

		from, err := domainfloor.ParseTableStatus(current.Status)
		if err != nil {
			return err
		}
		if err := domainfloor.ValidateTableTransition(from, target); err != nil {
			return err
		}

		if target == domainfloor.TableClosed {
			open, err := s.repo.CountNonTerminalSlipsForTable(txCtx, tableID)
			if err != nil {
				return err
			}
			if open > 0 {
				return errs.Wrapf(domainfloor.ErrTableHasOpenSlips, "table %d has %d open slips", tableID, open)
			}
		}

		now := s.nowUTCString()
		if err := s.repo.SetTableStatus(txCtx, tableID, string(target), now); err != nil {
			return err
		}

		event, err := appendAuditTx(txCtx, s.repo, ports.AuditEventCreate{
			Operation:     operation,
			ActorID:       actorID,
			TableID:       uintPtr(tableID),
			CorrelationID: uuid.NewString(),
			BeforeState:   string(from),
			AfterState:    string(target),
			OccurredAt:    now,
		})
		if err != nil {
			return err
		}

		current.Status = string(target)
		current.UpdatedAt = now
		table = current
		events = append(events, event)
		return nil
	})
	if err != nil {
		return ports.Table{}, s.rejectionRecorded(ctx, operation, actorID, nil, uintPtr(tableID), "", err)
	}
	if replayed {
		return table, nil
	}

	s.publishBestEffort(ctx, events)
	return table, nil
}
