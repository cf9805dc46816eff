package floor

import (
	"context"

	"github.com/google/uuid"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/ports"
)

const closeReasonSettled = "settled"

// CloseSlip terminates a slip and releases its seat. Closed is terminal;
// settlement chips are recorded when provided.
func (s *Service) CloseSlip(ctx context.Context, input CloseSlipInput) (ports.RatingSlip, error) {
	fingerprint := domainfloor.Fingerprint(domainfloor.OpCloseSlip,
		uintString(input.SlipID),
		optInt64String(input.ChipsTaken),
	)

	var slip ports.RatingSlip
	var events []ports.AuditEvent

	replayed, err := s.runIdempotent(ctx, domainfloor.OpCloseSlip, input.IdemKey, fingerprint, &slip, func(txCtx context.Context) error {
		current, err := loadNonTerminalSlipTx(txCtx, s.repo, input.SlipID)
		if err != nil {
			return err
		}

		now := s.nowUTCString()
		if err := s.repo.CloseSlip(txCtx, input.SlipID, now, input.ChipsTaken, closeReasonSettled); err != nil {
			return err
		}
		if current.SeatNumber != nil {
			if err := s.repo.ReleaseSeat(txCtx, current.TableID, *current.SeatNumber, current.SlipID); err != nil {
				return err
			}
		}

		event, err := appendAuditTx(txCtx, s.repo, ports.AuditEventCreate{
			Operation:     domainfloor.OpCloseSlip,
			ActorID:       input.ActorID,
			SlipID:        uintPtr(input.SlipID),
			TableID:       uintPtr(current.TableID),
			CorrelationID: uuid.NewString(),
			BeforeState:   current.Status,
			AfterState:    string(domainfloor.SlipClosed),
			Detail:        "chips_taken=" + optInt64String(input.ChipsTaken),
			OccurredAt:    now,
		})
		if err != nil {
			return err
		}

		current.Status = string(domainfloor.SlipClosed)
		current.EndTime = strPtr(now)
		current.CloseReason = strPtr(closeReasonSettled)
		current.ChipsTaken = input.ChipsTaken
		current.UpdatedAt = now
		slip = current
		events = append(events, event)
		return nil
	})
	if err != nil {
		return ports.RatingSlip{}, s.rejectionRecorded(ctx, domainfloor.OpCloseSlip, input.ActorID, uintPtr(input.SlipID), nil, "", err)
	}
	if replayed {
		return slip, nil
	}

	s.setCacheBestEffort(ctx, cacheSlipStatusKey(slip.SlipID), slip.Status)
	s.dropCacheBestEffort(ctx, cacheTableOccupancyKey(slip.TableID))
	s.publishBestEffort(ctx, events)
	return slip, nil
}
