package match

import (
	"fmt"
	"strings"
)

// ExperienceLevel is an ordered seniority tier
type ExperienceLevel int

const (
	LevelUnknown ExperienceLevel = iota
	LevelEntry
	LevelMid
	LevelSenior
	LevelExpert
)

var levelNames = map[ExperienceLevel]string{
	LevelEntry:  "Entry",
	LevelMid:    "Mid",
	LevelSenior: "Senior",
	LevelExpert: "Expert",
}

// ParseExperienceLevel parses a tier name, ignoring case and surrounding space
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	name := strings.TrimSpace(s)
	for level, known := range levelNames {
		if strings.EqualFold(name, known) {
			return level, nil
		}
	}
	return LevelUnknown, fmt.Errorf("unknown experience level %q", s)
}

func (l ExperienceLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler
func (l ExperienceLevel) MarshalText() ([]byte, error) {
	if l == LevelUnknown {
		return []byte{}, nil
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes to
// LevelUnknown.
func (l *ExperienceLevel) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*l = LevelUnknown
		return nil
	}
	level, err := ParseExperienceLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// Known reports whether l is one of the four tiers
func (l ExperienceLevel) Known() bool {
	return l >= LevelEntry && l <= LevelExpert
}
