package floor

import (
	"context"

	"github.com/google/uuid"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/ports"
)

type slipTransition struct {
	operation string
	slipID    uint64
	target    domainfloor.SlipStatus
	actorID   string
	idemKey   string
}

// transitionSlip is the shared pause/resume path: guard the transition,
// flip the status, append one audit event, all in one transaction.
func (s *Service) transitionSlip(ctx context.Context, t slipTransition) (ports.RatingSlip, error) {
	fingerprint := domainfloor.Fingerprint(t.operation, uintString(t.slipID))

	var slip ports.RatingSlip
	var events []ports.AuditEvent

	replayed, err := s.runIdempotent(ctx, t.operation, t.idemKey, fingerprint, &slip, func(txCtx context.Context) error {
		current, err := s.repo.GetSlip(txCtx, t.slipID)
		if err != nil {
			return err
		}

		from, err := domainfloor.ParseSlipStatus(current.Status)
		if err != nil {
			return err
		}
		if err := domainfloor.ValidateSlipTransition(from, t.target); err != nil {
			return err
		}

		now := s.nowUTCString()
		if err := s.repo.SetSlipStatus(txCtx, t.slipID, string(t.target), now); err != nil {
			return err
		}

		event, err := appendAuditTx(txCtx, s.repo, ports.AuditEventCreate{
			Operation:     t.operation,
			ActorID:       t.actorID,
			SlipID:        uintPtr(t.slipID),
			TableID:       uintPtr(current.TableID),
			CorrelationID: uuid.NewString(),
			BeforeState:   string(from),
			AfterState:    string(t.target),
			OccurredAt:    now,
		})
		if err != nil {
			return err
		}

		current.Status = string(t.target)
		current.UpdatedAt = now
		slip = current
		events = append(events, event)
		return nil
	})
	if err != nil {
		return ports.RatingSlip{}, s.rejectionRecorded(ctx, t.operation, t.actorID, uintPtr(t.slipID), nil, "", err)
	}
	if replayed {
		return slip, nil
	}

	s.setCacheBestEffort(ctx, cacheSlipStatusKey(slip.SlipID), slip.Status)
	s.publishBestEffort(ctx, events)
	return slip, nil
}
