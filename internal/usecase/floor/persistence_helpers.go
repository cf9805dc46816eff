package floor

import (
	"context"
	"errors"
	"log/slog"

	"pitboss/internal/bootstrap/logging"
	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/errs"
	"pitboss/internal/ports"
)

const (
	outcomeCommitted = "committed"
	outcomeRejected  = "rejected"
)

func appendAuditTx(ctx context.Context, repo ports.FloorRepository, input ports.AuditEventCreate) (ports.AuditEvent, error) {
	if input.Outcome == "" {
		input.Outcome = outcomeCommitted
	}
	event, err := repo.AppendAuditEvent(ctx, input)
	if err != nil {
		return ports.AuditEvent{}, errs.Wrap(err, "append audit event")
	}
	return event, nil
}

// rejectionRecorded writes the compliance record for a rejected mutation and
// passes the original error through. The mutation's transaction has already
// rolled back, so the rejection is committed on its own; a failure to record
// it is logged, never surfaced over the original cause.
func (s *Service) rejectionRecorded(ctx context.Context, operation string, actorID string, slipID *uint64, tableID *uint64, beforeState string, cause error) error {
	if cause == nil || !isRejection(cause) {
		return cause
	}

	if _, err := s.repo.AppendAuditEvent(ctx, ports.AuditEventCreate{
		Operation:     operation,
		ActorID:       actorID,
		SlipID:        slipID,
		TableID:       tableID,
		CorrelationID: "",
		Outcome:       outcomeRejected,
		BeforeState:   beforeState,
		AfterState:    beforeState,
		Detail:        cause.Error(),
		OccurredAt:    s.nowUTCString(),
	}); err != nil {
		logging.Warn(ctx, "record rejection audit failed",
			slog.String("operation", operation),
			slog.Any("err", errs.Loggable(err)),
		)
	}
	return cause
}

// isRejection reports whether an error is a typed rejection worth a
// compliance record, as opposed to an infrastructure failure.
func isRejection(err error) bool {
	for _, target := range []error{
		domainfloor.ErrInvalidTransition,
		domainfloor.ErrTableNotActive,
		domainfloor.ErrSeatConflict,
		domainfloor.ErrSeatOutOfRange,
		domainfloor.ErrTableHasOpenSlips,
		domainfloor.ErrVisitHasOpenSlips,
		ports.ErrSlipNotFound,
		ports.ErrTableNotFound,
		ports.ErrVisitNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// loadNonTerminalSlipTx fetches a slip and rejects terminal or missing ones.
func loadNonTerminalSlipTx(ctx context.Context, repo ports.FloorRepository, slipID uint64) (ports.RatingSlip, error) {
	slip, err := repo.GetSlip(ctx, slipID)
	if err != nil {
		return ports.RatingSlip{}, err
	}

	status, err := domainfloor.ParseSlipStatus(slip.Status)
	if err != nil {
		return ports.RatingSlip{}, err
	}
	if status.IsTerminal() {
		return ports.RatingSlip{}, errs.Wrapf(domainfloor.ErrInvalidTransition, "slip %d is closed", slipID)
	}
	return slip, nil
}

// loadActiveTableTx fetches a table and rejects anything not accepting slips.
func loadActiveTableTx(ctx context.Context, repo ports.FloorRepository, tableID uint64) (ports.Table, error) {
	table, err := repo.GetTable(ctx, tableID)
	if err != nil {
		return ports.Table{}, err
	}
	if table.Status != string(domainfloor.TableActive) {
		return ports.Table{}, errs.Wrapf(domainfloor.ErrTableNotActive, "table %d is %s", tableID, table.Status)
	}
	return table, nil
}
