package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity grades how far a played move fell short of the engine's
// preferred one. Higher values are strictly worse.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityInaccuracy
	SeverityMistake
	SeverityBlunder
)

func (s Severity) String() string {
	switch s {
	case SeverityInaccuracy:
		return "inaccuracy"
	case SeverityMistake:
		return "mistake"
	case SeverityBlunder:
		return "blunder"
	default:
		return "none"
	}
}

// ParseSeverity maps a display name back to its grade.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return SeverityNone, nil
	case "inaccuracy":
		return SeverityInaccuracy, nil
	case "mistake":
		return SeverityMistake, nil
	case "blunder":
		return SeverityBlunder, nil
	}
	return SeverityNone, fmt.Errorf("unknown severity %q", name)
}

// MarshalJSON encodes the severity as its display name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a display name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Thresholds holds the centipawn-loss cutoffs for each grade. A loss
// is graded against the worst cutoff it reaches, so raising a loss
// never lowers its grade.
type Thresholds struct {
	Inaccuracy int
	Mistake    int
	Blunder    int
}

// Classify grades a centipawn loss.
func (t Thresholds) Classify(cpLoss int) Severity {
	switch {
	case cpLoss >= t.Blunder:
		return SeverityBlunder
	case cpLoss >= t.Mistake:
		return SeverityMistake
	case cpLoss >= t.Inaccuracy:
		return SeverityInaccuracy
	default:
		return SeverityNone
	}
}
