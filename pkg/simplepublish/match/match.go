// Package match scores service candidates against job requirements and
// ranks them. Everything here is pure and safe for concurrent use.
package match

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Component weights
const (
	SkillWeight = 60

	ExperienceExact = 20
	ExperienceBelow = 10
	ExperienceAbove = 5

	BudgetWithin  = 15
	BudgetOutside = 5

	RemoteMatch = 5

	MaxTotal = 100

	// DefaultTopK is used by Rank when topK is not positive
	DefaultTopK = 3
)

// RateRange is a candidate's hourly rate span
type RateRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Candidate is a service offering that can be matched against a job
type Candidate struct {
	Title           string          `json:"title" yaml:"title"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	SkillSet        []string        `json:"skillSet" yaml:"skillSet"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel" yaml:"experienceLevel"`
	RateRange       RateRange       `json:"rateRange" yaml:"rateRange"`
	RemoteCapable   bool            `json:"remoteCapable" yaml:"remoteCapable"`
}

// Requirements is what a job asks of a candidate
type Requirements struct {
	SkillSet        []string        `json:"skillSet"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
	BudgetMin       float64         `json:"budgetMin"`
	BudgetMax       float64         `json:"budgetMax"`
	Remote          bool            `json:"remote"`
}

// RequirementsFromJob derives matching requirements from published job fields
func RequirementsFromJob(job *simplepublish.JobFields) (Requirements, error) {
	if job == nil {
		return Requirements{}, &simplepublish.FieldError{Field: "job", Reason: "required"}
	}

	level, err := ParseExperienceLevel(job.ExperienceLevel)
	if err != nil {
		return Requirements{}, &simplepublish.FieldError{Field: "experienceLevel", Reason: err.Error()}
	}

	lo, hi, err := job.Budget()
	if err != nil {
		return Requirements{}, err
	}
	if lo > hi {
		return Requirements{}, &simplepublish.FieldError{Field: "budgetMax", Reason: "must be greater than or equal to budgetMin"}
	}

	return Requirements{
		SkillSet:        append([]string(nil), job.Skills...),
		ExperienceLevel: level,
		BudgetMin:       lo,
		BudgetMax:       hi,
		Remote:          job.Remote,
	}, nil
}

// Breakdown holds the per-component points of a score
type Breakdown struct {
	Skill      int `json:"skill"`
	Experience int `json:"experience"`
	Budget     int `json:"budget"`
	Remote     int `json:"remote"`
}

// Sum adds the components
func (b Breakdown) Sum() int {
	return b.Skill + b.Experience + b.Budget + b.Remote
}

// MatchScore is the computed fit of one candidate. It is never persisted.
type MatchScore struct {
	Candidate     Candidate `json:"candidate"`
	Index         int       `json:"index"`
	Total         int       `json:"total"`
	Breakdown     Breakdown `json:"breakdown"`
	MatchedSkills []string  `json:"matchedSkills"`
}

func (s MatchScore) String() string {
	return fmt.Sprintf("%s: %d (skill %d, experience %d, budget %d, remote %d)",
		s.Candidate.Title, s.Total, s.Breakdown.Skill, s.Breakdown.Experience, s.Breakdown.Budget, s.Breakdown.Remote)
}

// Score computes how well candidate fits req. Index is left at zero.
func Score(req Requirements, candidate Candidate) MatchScore {
	required := skillSet(req.SkillSet)
	offered := skillSet(candidate.SkillSet)

	matched := make([]string, 0, len(required))
	for key, name := range required {
		if _, ok := offered[key]; ok {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)

	b := Breakdown{
		Skill:      skillPoints(len(matched), len(required)),
		Experience: experiencePoints(req.ExperienceLevel, candidate.ExperienceLevel),
		Budget:     budgetPoints(req, candidate.RateRange),
	}
	if req.Remote && candidate.RemoteCapable {
		b.Remote = RemoteMatch
	}

	return MatchScore{
		Candidate:     candidate,
		Total:         min(MaxTotal, b.Sum()),
		Breakdown:     b,
		MatchedSkills: matched,
	}
}

// Rank scores every candidate and returns at most topK of them ordered by
// total, highest first. Equal totals keep their input order.
func Rank(req Requirements, candidates []Candidate, topK int) []MatchScore {
	if topK <= 0 {
		topK = DefaultTopK
	}

	scores := make([]MatchScore, len(candidates))
	for i, c := range candidates {
		scores[i] = Score(req, c)
		scores[i].Index = i
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Total > scores[j].Total
	})

	if len(scores) > topK {
		scores = scores[:topK]
	}
	return scores
}

// skillPoints rounds half away from zero
func skillPoints(matched, required int) int {
	ratio := float64(matched) / float64(max(1, required))
	return min(SkillWeight, int(math.Round(ratio*SkillWeight)))
}

// experiencePoints treats an unknown tier on either side as not comparable
func experiencePoints(required, offered ExperienceLevel) int {
	switch {
	case !required.Known() || !offered.Known():
		return ExperienceAbove
	case offered == required:
		return ExperienceExact
	case offered < required:
		return ExperienceBelow
	default:
		return ExperienceAbove
	}
}

func budgetPoints(req Requirements, rate RateRange) int {
	if rate.Min >= req.BudgetMin && rate.Max <= req.BudgetMax && rate.Min <= rate.Max {
		return BudgetWithin
	}
	return BudgetOutside
}

// skillSet normalizes names for comparison, keeping the first spelling seen
func skillSet(skills []string) map[string]string {
	set := make(map[string]string, len(skills))
	for _, s := range skills {
		name := strings.TrimSpace(s)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := set[key]; !ok {
			set[key] = name
		}
	}
	return set
}
