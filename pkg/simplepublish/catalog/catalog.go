// Package catalog provides read-only lists of service candidates for the
// matching engine.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tendant/simple-publish/pkg/simplepublish/match"
)

// Demo returns the built-in demonstration catalog. Each call returns a
// fresh copy.
func Demo() []match.Candidate {
	return []match.Candidate{
		{
			Title:           "Full-stack web development",
			Description:     "React front ends backed by Go or Node services",
			SkillSet:        []string{"React", "TypeScript", "Go", "PostgreSQL"},
			ExperienceLevel: match.LevelSenior,
			RateRange:       match.RateRange{Min: 60, Max: 90},
			RemoteCapable:   true,
		},
		{
			Title:           "Mobile app development",
			Description:     "Cross-platform iOS and Android apps",
			SkillSet:        []string{"Flutter", "Dart", "Firebase"},
			ExperienceLevel: match.LevelMid,
			RateRange:       match.RateRange{Min: 40, Max: 70},
			RemoteCapable:   true,
		},
		{
			Title:           "Smart contract auditing",
			Description:     "Security review of Solidity contracts",
			SkillSet:        []string{"Solidity", "Security", "Ethereum"},
			ExperienceLevel: match.LevelExpert,
			RateRange:       match.RateRange{Min: 120, Max: 200},
			RemoteCapable:   true,
		},
		{
			Title:           "UI and UX design",
			Description:     "Product design, prototypes and design systems",
			SkillSet:        []string{"Figma", "Prototyping", "User Research"},
			ExperienceLevel: match.LevelMid,
			RateRange:       match.RateRange{Min: 45, Max: 80},
			RemoteCapable:   false,
		},
		{
			Title:           "Data pipeline engineering",
			Description:     "Batch and streaming pipelines on cloud warehouses",
			SkillSet:        []string{"Python", "SQL", "Airflow", "Go"},
			ExperienceLevel: match.LevelSenior,
			RateRange:       match.RateRange{Min: 70, Max: 110},
			RemoteCapable:   true,
		},
		{
			Title:           "Technical writing",
			Description:     "API references and developer guides",
			SkillSet:        []string{"Documentation", "Markdown", "APIs"},
			ExperienceLevel: match.LevelEntry,
			RateRange:       match.RateRange{Min: 25, Max: 45},
			RemoteCapable:   true,
		},
	}
}

type file struct {
	Candidates []match.Candidate `json:"candidates" yaml:"candidates"`
}

// Parse decodes a catalog document. Both a bare list and an object with a
// candidates key are accepted. YAML is a superset of JSON, so JSON input
// parses as well.
func Parse(data []byte) ([]match.Candidate, error) {
	var list []match.Candidate
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, validate(list)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return f.Candidates, validate(f.Candidates)
}

// LoadFile reads a catalog from a YAML or JSON file
func LoadFile(path string) ([]match.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var list []match.Candidate
		if err := json.Unmarshal(data, &list); err == nil {
			return list, validate(list)
		}
	}

	candidates, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candidates, nil
}

func validate(candidates []match.Candidate) error {
	for i, c := range candidates {
		if strings.TrimSpace(c.Title) == "" {
			return fmt.Errorf("candidate %d has no title", i)
		}
		if c.RateRange.Min > c.RateRange.Max {
			return fmt.Errorf("candidate %q has rate range min above max", c.Title)
		}
	}
	return nil
}
