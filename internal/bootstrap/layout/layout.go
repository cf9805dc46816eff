package layout

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pitboss/internal/errs"
)

// Table is one entry of a floor layout seed file.
type Table struct {
	Label  string `yaml:"label"`
	Game   string `yaml:"game"`
	Seats  int    `yaml:"seats"`
	MinBet int64  `yaml:"min_bet"`
	MaxBet int64  `yaml:"max_bet"`
	Active bool   `yaml:"active"`
}

// Layout describes the physical tables to seed a fresh floor database with.
type Layout struct {
	Tables []Table `yaml:"tables"`
}

func Load(path string) (Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, errs.Wrapf(err, "read layout file %q", path)
	}

	var l Layout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return Layout{}, errs.Wrapf(err, "parse layout file %q", path)
	}

	if err := l.validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func (l Layout) validate() error {
	seen := make(map[string]struct{}, len(l.Tables))
	for i, table := range l.Tables {
		label := strings.TrimSpace(table.Label)
		if label == "" {
			return fmt.Errorf("layout table %d: label is required", i)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("layout table %q: duplicate label", label)
		}
		seen[label] = struct{}{}

		if strings.TrimSpace(table.Game) == "" {
			return fmt.Errorf("layout table %q: game is required", label)
		}
		if table.Seats < 1 {
			return fmt.Errorf("layout table %q: seats must be positive", label)
		}
		if table.MinBet < 0 || table.MaxBet < 0 {
			return fmt.Errorf("layout table %q: bets cannot be negative", label)
		}
		if table.MaxBet > 0 && table.MinBet > table.MaxBet {
			return fmt.Errorf("layout table %q: min_bet exceeds max_bet", label)
		}
	}
	return nil
}
