package floor

import (
	"context"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/ports"
)

// ResumeSlip reopens a paused slip.
func (s *Service) ResumeSlip(ctx context.Context, input ResumeSlipInput) (ports.RatingSlip, error) {
	return s.transitionSlip(ctx, slipTransition{
		operation: domainfloor.OpResumeSlip,
		slipID:    input.SlipID,
		target:    domainfloor.SlipOpen,
		actorID:   input.ActorID,
		idemKey:   input.IdemKey,
	})
}
