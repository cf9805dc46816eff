package floor

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Mutating operation names. They key audit events and idempotency
// fingerprints, so renaming one invalidates stored replays.
const (
	OpCreateSlip      = "slip.create"
	OpPauseSlip       = "slip.pause"
	OpResumeSlip      = "slip.resume"
	OpCloseSlip       = "slip.close"
	OpMoveSlip        = "slip.move"
	OpCreateTable     = "table.create"
	OpActivateTable   = "table.activate"
	OpDeactivateTable = "table.deactivate"
	OpCloseTable      = "table.close"
	OpStartVisit      = "visit.start"
	OpEndVisit        = "visit.end"
)

// Fingerprint derives a stable digest of an operation and its payload
// fields. Two requests with the same idempotency key must produce the same
// fingerprint to be treated as a replay; anything else is a key conflict.
func Fingerprint(operation string, fields ...string) string {
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, strings.TrimSpace(operation))
	for _, field := range fields {
		parts = append(parts, strings.TrimSpace(field))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
