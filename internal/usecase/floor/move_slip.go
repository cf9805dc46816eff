package floor

import (
	"context"

	"github.com/google/uuid"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/errs"
	"pitboss/internal/ports"
)

const closeReasonMoved = "moved"

// MoveSlip transfers a live session to another seat, possibly at another
// table, as one indivisible unit: the source slip closes, a successor slip
// opens at the destination, and both seat-index writes commit together. A
// destination conflict aborts everything, leaving the source untouched.
func (s *Service) MoveSlip(ctx context.Context, input MoveSlipInput) (MoveSlipResult, error) {
	fingerprint := domainfloor.Fingerprint(domainfloor.OpMoveSlip,
		uintString(input.SlipID),
		uintString(input.DestTableID),
		intString(input.DestSeat),
	)

	var result MoveSlipResult
	var events []ports.AuditEvent

	replayed, err := s.runIdempotent(ctx, domainfloor.OpMoveSlip, input.IdemKey, fingerprint, &result, func(txCtx context.Context) error {
		source, err := loadNonTerminalSlipTx(txCtx, s.repo, input.SlipID)
		if err != nil {
			return err
		}
		// Moving onto the slip's own seat is a no-op request, not a conflict
		// with another session.
		if source.TableID == input.DestTableID && source.SeatNumber != nil && *source.SeatNumber == input.DestSeat {
			return errs.Wrapf(domainfloor.ErrInvalidTransition, "slip %d already holds %s", source.SlipID, seatLabel(input.DestTableID, input.DestSeat))
		}

		destTable, err := loadActiveTableTx(txCtx, s.repo, input.DestTableID)
		if err != nil {
			return err
		}
		if err := domainfloor.ValidateSeat(input.DestSeat, destTable.SeatCount); err != nil {
			return err
		}

		now := s.nowUTC()
		nowStr := formatInstant(now)
		correlationID := uuid.NewString()

		if err := s.repo.CloseSlip(txCtx, source.SlipID, nowStr, nil, closeReasonMoved); err != nil {
			return err
		}

		successor, err := s.repo.CreateSlip(txCtx, ports.RatingSlip{
			TableID:           input.DestTableID,
			SeatNumber:        intPtr(input.DestSeat),
			VisitID:           source.VisitID,
			PlayerID:          source.PlayerID,
			Status:            string(domainfloor.SlipOpen),
			StartTime:         nowStr,
			AverageBet:        source.AverageBet,
			PredecessorSlipID: uintPtr(source.SlipID),
			GamingDay:         domainfloor.GamingDay(s.casino.GamingDayCutoff, s.casino.Location, now),
			UpdatedAt:         nowStr,
		})
		if err != nil {
			return err
		}

		// The binding destination check. A conflict here rolls back the
		// source close and the successor insert in one stroke.
		reserved, err := s.repo.ReserveSeat(txCtx, input.DestTableID, input.DestSeat, successor.SlipID)
		if err != nil {
			return err
		}
		if !reserved {
			return errs.Wrapf(domainfloor.ErrSeatConflict, "%s", seatLabel(input.DestTableID, input.DestSeat))
		}

		if source.SeatNumber != nil {
			if err := s.repo.ReleaseSeat(txCtx, source.TableID, *source.SeatNumber, source.SlipID); err != nil {
				return err
			}
		}

		sourceEvent, err := appendAuditTx(txCtx, s.repo, ports.AuditEventCreate{
			Operation:     domainfloor.OpMoveSlip,
			ActorID:       input.ActorID,
			SlipID:        uintPtr(source.SlipID),
			TableID:       uintPtr(source.TableID),
			CorrelationID: correlationID,
			BeforeState:   source.Status,
			AfterState:    string(domainfloor.SlipClosed),
			Detail:        "closed by move to " + seatLabel(input.DestTableID, input.DestSeat),
			OccurredAt:    nowStr,
		})
		if err != nil {
			return err
		}

		destEvent, err := appendAuditTx(txCtx, s.repo, ports.AuditEventCreate{
			Operation:     domainfloor.OpMoveSlip,
			ActorID:       input.ActorID,
			SlipID:        uintPtr(successor.SlipID),
			TableID:       uintPtr(input.DestTableID),
			CorrelationID: correlationID,
			BeforeState:   "",
			AfterState:    successor.Status,
			Detail:        "opened by move from " + seatLabel(source.TableID, derefInt(source.SeatNumber)),
			OccurredAt:    nowStr,
		})
		if err != nil {
			return err
		}

		closed := source
		closed.Status = string(domainfloor.SlipClosed)
		closed.EndTime = strPtr(nowStr)
		closed.CloseReason = strPtr(closeReasonMoved)
		closed.UpdatedAt = nowStr

		result = MoveSlipResult{
			ClosedSlip:    closed,
			NewSlip:       successor,
			CorrelationID: correlationID,
		}
		events = append(events, sourceEvent, destEvent)
		return nil
	})
	if err != nil {
		return MoveSlipResult{}, s.rejectionRecorded(ctx, domainfloor.OpMoveSlip, input.ActorID, uintPtr(input.SlipID), uintPtr(input.DestTableID), "", err)
	}
	if replayed {
		return result, nil
	}

	s.setCacheBestEffort(ctx, cacheSlipStatusKey(result.ClosedSlip.SlipID), result.ClosedSlip.Status)
	s.setCacheBestEffort(ctx, cacheSlipStatusKey(result.NewSlip.SlipID), result.NewSlip.Status)
	s.dropCacheBestEffort(ctx, cacheTableOccupancyKey(result.ClosedSlip.TableID))
	s.dropCacheBestEffort(ctx, cacheTableOccupancyKey(result.NewSlip.TableID))
	s.publishBestEffort(ctx, events)
	return result, nil
}
