package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLayout(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "floor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write layout: %v", err)
	}
	return path
}

func TestLoadLayout(t *testing.T) {
	path := writeLayout(t, `
tables:
  - label: BJ-01
    game: blackjack
    seats: 7
    min_bet: 2500
    max_bet: 100000
    active: true
  - label: RO-01
    game: roulette
    seats: 9
`)

	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(l.Tables) != 2 {
		t.Fatalf("Load() tables = %d", len(l.Tables))
	}
	if l.Tables[0].Label != "BJ-01" || l.Tables[0].Seats != 7 || !l.Tables[0].Active {
		t.Fatalf("Load() first table = %+v", l.Tables[0])
	}
	if l.Tables[1].Active {
		t.Fatalf("Load() active should default to false")
	}
}

func TestLoadLayoutRejectsDuplicates(t *testing.T) {
	path := writeLayout(t, `
tables:
  - label: BJ-01
    game: blackjack
    seats: 7
  - label: BJ-01
    game: blackjack
    seats: 7
`)

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "duplicate label") {
		t.Fatalf("Load() error = %v, want duplicate label", err)
	}
}

func TestLoadLayoutRejectsBadSeats(t *testing.T) {
	path := writeLayout(t, `
tables:
  - label: BJ-01
    game: blackjack
    seats: 0
`)

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "seats must be positive") {
		t.Fatalf("Load() error = %v, want seats must be positive", err)
	}
}

func TestLoadLayoutRejectsInvertedBets(t *testing.T) {
	path := writeLayout(t, `
tables:
  - label: BJ-01
    game: blackjack
    seats: 7
    min_bet: 5000
    max_bet: 1000
`)

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "min_bet exceeds max_bet") {
		t.Fatalf("Load() error = %v, want min_bet exceeds max_bet", err)
	}
}
