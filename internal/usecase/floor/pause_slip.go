package floor

import (
	"context"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/ports"
)

// PauseSlip suspends an open slip. The seat stays claimed: a paused session
// still occupies its chair on the floor.
func (s *Service) PauseSlip(ctx context.Context, input PauseSlipInput) (ports.RatingSlip, error) {
	return s.transitionSlip(ctx, slipTransition{
		operation: domainfloor.OpPauseSlip,
		slipID:    input.SlipID,
		target:    domainfloor.SlipPaused,
		actorID:   input.ActorID,
		idemKey:   input.IdemKey,
	})
}
