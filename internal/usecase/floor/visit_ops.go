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

// StartVisit begins or resumes a player's floor presence for the current
// gaming day. A visit that already ended today is reopened rather than
// duplicated, so a player stepping out for an hour keeps one visit record.
func (s *Service) StartVisit(ctx context.Context, input StartVisitInput) (ports.Visit, error) {
	playerID := strings.TrimSpace(input.PlayerID)
	if playerID == "" {
		return ports.Visit{}, errors.New("player id is required")
	}

	fingerprint := domainfloor.Fingerprint(domainfloor.OpStartVisit, playerID)

	var visit ports.Visit
	var events []ports.AuditEvent

	replayed, err := s.runIdempotent(ctx, domainfloor.OpStartVisit, input.IdemKey, fingerprint, &visit, func(txCtx context.Context) error {
		now := s.nowUTC()
		gamingDay := domainfloor.GamingDay(s.casino.GamingDayCutoff, s.casino.Location, now)

		existing, err := s.repo.FindVisit(txCtx, playerID, s.casino.CasinoID, gamingDay)
		if err != nil && !errors.Is(err, ports.ErrVisitNotFound) {
			return err
		}

		if err == nil {
			if existing.EndedAt == nil {
				// Already on the floor today.
				visit = existing
				return nil
			}
			if err := s.repo.ReopenVisit(txCtx, existing.VisitID); err != nil {
				return err
			}
			existing.EndedAt = nil
			existing.Resumed = true
			visit = existing
		} else {
			created, inserted, createErr := s.repo.CreateVisit(txCtx, ports.Visit{
				PlayerID:  playerID,
				CasinoID:  s.casino.CasinoID,
				GamingDay: gamingDay,
				StartedAt: formatInstant(now),
			})
			if createErr != nil {
				return createErr
			}
			if !inserted {
				// Lost a same-day race; the winner's row is the visit and
				// already carries its own start event.
				winner, findErr := s.repo.FindVisit(txCtx, playerID, s.casino.CasinoID, gamingDay)
				if findErr != nil {
					return findErr
				}
				visit = winner
				return nil
			}
			visit = created
		}

		event, err := appendAuditTx(txCtx, s.repo, ports.AuditEventCreate{
			Operation:     domainfloor.OpStartVisit,
			ActorID:       input.ActorID,
			CorrelationID: uuid.NewString(),
			BeforeState:   "",
			AfterState:    "started",
			Detail:        "player " + playerID + " gaming day " + gamingDay,
			OccurredAt:    formatInstant(now),
		})
		if err != nil {
			return err
		}

		events = append(events, event)
		return nil
	})
	if err != nil {
		return ports.Visit{}, err
	}
	if replayed {
		return visit, nil
	}

	s.publishBestEffort(ctx, events)
	return visit, nil
}

// EndVisit closes a player's floor presence. Rejected while the visit still
// has non-terminal slips; those must settle first.
func (s *Service) EndVisit(ctx context.Context, input EndVisitInput) (ports.Visit, error) {
	fingerprint := domainfloor.Fingerprint(domainfloor.OpEndVisit, uintString(input.VisitID))

	var visit ports.Visit
	var events []ports.AuditEvent

	replayed, err := s.runIdempotent(ctx, domainfloor.OpEndVisit, input.IdemKey, fingerprint, &visit, func(txCtx context.Context) error {
		current, err := s.repo.GetVisit(txCtx, input.VisitID)
		if err != nil {
			return err
		}
		if current.EndedAt != nil {
			visit = current
			return nil
		}

		open, err := s.repo.CountNonTerminalSlipsForVisit(txCtx, input.VisitID)
		if err != nil {
			return err
		}
		if open > 0 {
			return errs.Wrapf(domainfloor.ErrVisitHasOpenSlips, "visit %d has %d open slips", input.VisitID, open)
		}

		now := s.nowUTCString()
		if err := s.repo.EndVisit(txCtx, input.VisitID, now); err != nil {
			return err
		}

		event, err := appendAuditTx(txCtx, s.repo, ports.AuditEventCreate{
			Operation:     domainfloor.OpEndVisit,
			ActorID:       input.ActorID,
			CorrelationID: uuid.NewString(),
			BeforeState:   "started",
			AfterState:    "ended",
			Detail:        "visit " + uintString(input.VisitID),
			OccurredAt:    now,
		})
		if err != nil {
			return err
		}

		current.EndedAt = strPtr(now)
		visit = current
		events = append(events, event)
		return nil
	})
	if err != nil {
		return ports.Visit{}, s.rejectionRecorded(ctx, domainfloor.OpEndVisit, input.ActorID, nil, nil, "", err)
	}
	if replayed {
		return visit, nil
	}

	s.publishBestEffort(ctx, events)
	return visit, nil
}
