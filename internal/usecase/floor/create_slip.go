package floor

import (
	"context"

	"github.com/google/uuid"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/errs"
	"pitboss/internal/ports"
)

// CreateSlip opens a new rating slip at a seat. The seat claim is a
// conditional insert in the same transaction as the slip row, so two
// simultaneous requests for one seat cannot both succeed.
func (s *Service) CreateSlip(ctx context.Context, input CreateSlipInput) (ports.RatingSlip, error) {
	fingerprint := domainfloor.Fingerprint(domainfloor.OpCreateSlip,
		uintString(input.TableID),
		intString(input.Seat),
		uintString(input.VisitID),
		input.PlayerID,
		int64String(input.AverageBet),
	)

	var slip ports.RatingSlip
	var events []ports.AuditEvent

	replayed, err := s.runIdempotent(ctx, domainfloor.OpCreateSlip, input.IdemKey, fingerprint, &slip, func(txCtx context.Context) error {
		table, err := loadActiveTableTx(txCtx, s.repo, input.TableID)
		if err != nil {
			return err
		}
		if err := domainfloor.ValidateSeat(input.Seat, table.SeatCount); err != nil {
			return err
		}
		if _, err := s.repo.GetVisit(txCtx, input.VisitID); err != nil {
			return err
		}

		now := s.nowUTC()
		var playerID *string
		if input.PlayerID != "" {
			playerID = strPtr(input.PlayerID)
		}

		created, err := s.repo.CreateSlip(txCtx, ports.RatingSlip{
			TableID:    input.TableID,
			SeatNumber: intPtr(input.Seat),
			VisitID:    input.VisitID,
			PlayerID:   playerID,
			Status:     string(domainfloor.SlipOpen),
			StartTime:  formatInstant(now),
			AverageBet: input.AverageBet,
			GamingDay:  domainfloor.GamingDay(s.casino.GamingDayCutoff, s.casino.Location, now),
			UpdatedAt:  formatInstant(now),
		})
		if err != nil {
			return err
		}

		reserved, err := s.repo.ReserveSeat(txCtx, input.TableID, input.Seat, created.SlipID)
		if err != nil {
			return err
		}
		if !reserved {
			return errs.Wrapf(domainfloor.ErrSeatConflict, "%s", seatLabel(input.TableID, input.Seat))
		}

		event, err := appendAuditTx(txCtx, s.repo, ports.AuditEventCreate{
			Operation:     domainfloor.OpCreateSlip,
			ActorID:       input.ActorID,
			SlipID:        uintPtr(created.SlipID),
			TableID:       uintPtr(input.TableID),
			CorrelationID: uuid.NewString(),
			BeforeState:   "",
			AfterState:    created.Status,
			Detail:        seatLabel(input.TableID, input.Seat),
			OccurredAt:    formatInstant(now),
		})
		if err != nil {
			return err
		}

		slip = created
		events = append(events, event)
		return nil
	})
	if err != nil {
		return ports.RatingSlip{}, s.rejectionRecorded(ctx, domainfloor.OpCreateSlip, input.ActorID, nil, uintPtr(input.TableID), "", err)
	}
	if replayed {
		return slip, nil
	}

	s.setCacheBestEffort(ctx, cacheSlipStatusKey(slip.SlipID), slip.Status)
	s.dropCacheBestEffort(ctx, cacheTableOccupancyKey(input.TableID))
	s.publishBestEffort(ctx, events)
	return slip, nil
}
