package floor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domainfloor "pitboss/internal/domain/floor"
	"pitboss/internal/errs"
	"pitboss/internal/ports"
)

// errConcurrentDuplicate aborts a transaction that lost the race to insert
// an idempotency record. The winner's stored result is returned instead.
var errConcurrentDuplicate = errors.New("idempotency record inserted concurrently")

// runIdempotent wraps a mutating operation with the at-most-once guard.
//
// out must be a pointer to the operation's result type. On a fresh key,
// mutate runs inside one transaction, fills out, and the serialized result
// is stored under the key in the same transaction. On a replay with a
// matching fingerprint the stored result is decoded into out and mutate is
// never called. A replay with a different fingerprint is a key conflict.
func (s *Service) runIdempotent(ctx context.Context, operation string, key string, fingerprint string, out any, mutate func(txCtx context.Context) error) (replayed bool, err error) {
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return false, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return false, errors.New("floor repository is required")
	}
	if s.uow == nil {
		return false, errors.New("floor unit of work is required")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return false, domainfloor.ErrIdempotencyKeyRequired
	}

	if replayed, err := s.replayStoredResult(ctx, operation, key, fingerprint, out); replayed || err != nil {
		return replayed, err
	}

	now := s.nowUTC()
	txErr := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := mutate(txCtx); err != nil {
			return err
		}

		resultJSON, err := json.Marshal(out)
		if err != nil {
			return errs.Wrap(err, "marshal idempotency result")
		}

		inserted, err := s.repo.PutIdempotencyRecord(txCtx, ports.IdempotencyRecord{
			Key:         key,
			Fingerprint: fingerprint,
			Operation:   operation,
			ResultJSON:  string(resultJSON),
			CreatedAt:   formatInstant(now),
			ExpiresAt:   formatInstant(now.Add(s.casino.IdempotencyTTL)),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return errConcurrentDuplicate
		}
		return nil
	})

	if errors.Is(txErr, errConcurrentDuplicate) {
		// Another request with the same key committed first; honor its result.
		replayed, err := s.replayStoredResult(ctx, operation, key, fingerprint, out)
		if err != nil {
			return false, err
		}
		if !replayed {
			return false, fmt.Errorf("%w: %s", domainfloor.ErrIdempotencyKeyConflict, key)
		}
		return true, nil
	}

	return false, txErr
}

func (s *Service) replayStoredResult(ctx context.Context, operation string, key string, fingerprint string, out any) (bool, error) {
	record, found, err := s.repo.GetIdempotencyRecord(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if s.recordExpired(record) {
		_ = s.repo.DeleteIdempotencyRecord(ctx, key)
		return false, nil
	}

	if record.Fingerprint != fingerprint || record.Operation != operation {
		return false, fmt.Errorf("%w: %s", domainfloor.ErrIdempotencyKeyConflict, key)
	}

	if err := json.Unmarshal([]byte(record.ResultJSON), out); err != nil {
		return false, errs.Wrap(err, "decode stored idempotency result")
	}
	return true, nil
}

func (s *Service) recordExpired(record ports.IdempotencyRecord) bool {
	expiresAt, err := time.Parse(time.RFC3339Nano, record.ExpiresAt)
	if err != nil {
		return true
	}
	return !expiresAt.After(s.nowUTC())
}
