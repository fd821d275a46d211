package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is an ordered wildfire danger classification.
type Level int

// Levels in ascending order of danger.
const (
	LevelNoRisk Level = iota
	LevelNormal
	LevelLow
	LevelMedium
	LevelHigh
	LevelVeryHigh
	LevelExtreme
)

var levelNames = [...]string{
	LevelNoRisk:   "no risk",
	LevelNormal:   "normal",
	LevelLow:      "low",
	LevelMedium:   "medium",
	LevelHigh:     "high",
	LevelVeryHigh: "very high",
	LevelExtreme:  "extreme",
}

func (l Level) String() string {
	if l < LevelNoRisk || l > LevelExtreme {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts the canonical names case-insensitively. Underscores and
// dashes are treated as spaces so "very_high" and "very-high" work in URLs.
func ParseLevel(s string) (Level, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	for i, name := range levelNames {
		if name == norm {
			return Level(i), nil
		}
	}
	return LevelNoRisk, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// MaxLevel returns the more dangerous of a and b.
func MaxLevel(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}

// MarshalJSON encodes the level as its canonical name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a canonical level name.
func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
