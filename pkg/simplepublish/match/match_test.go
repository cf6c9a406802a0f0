package match

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

func seniorRemoteJob() Requirements {
	return Requirements{
		SkillSet:        []string{"A", "B"},
		ExperienceLevel: LevelSenior,
		BudgetMin:       50,
		BudgetMax:       100,
		Remote:          true,
	}
}

func TestScore_PerfectMatch(t *testing.T) {
	c := Candidate{
		Title:           "full match",
		SkillSet:        []string{"A", "B", "C"},
		ExperienceLevel: LevelSenior,
		RateRange:       RateRange{Min: 50, Max: 100},
		RemoteCapable:   true,
	}

	s := Score(seniorRemoteJob(), c)
	assert.Equal(t, Breakdown{Skill: 60, Experience: 20, Budget: 15, Remote: 5}, s.Breakdown)
	assert.Equal(t, 100, s.Total)
	assert.Equal(t, []string{"A", "B"}, s.MatchedSkills)
}

func TestScore_NoMatch(t *testing.T) {
	c := Candidate{
		Title:           "no match",
		SkillSet:        []string{"X"},
		ExperienceLevel: LevelExpert,
		RateRange:       RateRange{Min: 150, Max: 200},
		RemoteCapable:   false,
	}

	s := Score(seniorRemoteJob(), c)
	assert.Equal(t, Breakdown{Skill: 0, Experience: 5, Budget: 5, Remote: 0}, s.Breakdown)
	assert.Equal(t, 10, s.Total)
	assert.Empty(t, s.MatchedSkills)
}

func TestScore_Components(t *testing.T) {
	req := seniorRemoteJob()

	t.Run("skill rounds half away from zero", func(t *testing.T) {
		r := req
		r.SkillSet = []string{"a", "b", "c", "d", "e", "f", "g", "h"}
		// 1/8 * 60 = 7.5
		s := Score(r, Candidate{SkillSet: []string{"a"}})
		assert.Equal(t, 8, s.Breakdown.Skill)

		// 1/3 * 60 = 20
		r.SkillSet = []string{"a", "b", "c"}
		s = Score(r, Candidate{SkillSet: []string{"a"}})
		assert.Equal(t, 20, s.Breakdown.Skill)
	})

	t.Run("skills compare case-insensitively", func(t *testing.T) {
		s := Score(req, Candidate{SkillSet: []string{" a ", "b", "B"}})
		assert.Equal(t, 60, s.Breakdown.Skill)
	})

	t.Run("duplicate required skills count once", func(t *testing.T) {
		r := req
		r.SkillSet = []string{"A", "a", "B"}
		s := Score(r, Candidate{SkillSet: []string{"A"}})
		assert.Equal(t, 30, s.Breakdown.Skill)
	})

	t.Run("empty required skills score zero", func(t *testing.T) {
		r := req
		r.SkillSet = nil
		s := Score(r, Candidate{SkillSet: []string{"A"}})
		assert.Equal(t, 0, s.Breakdown.Skill)
	})

	t.Run("experience", func(t *testing.T) {
		tests := []struct {
			offered ExperienceLevel
			want    int
		}{
			{LevelEntry, 10},
			{LevelMid, 10},
			{LevelSenior, 20},
			{LevelExpert, 5},
			{LevelUnknown, 5},
		}
		for _, tt := range tests {
			s := Score(req, Candidate{ExperienceLevel: tt.offered})
			assert.Equal(t, tt.want, s.Breakdown.Experience, tt.offered.String())
		}
	})

	t.Run("budget", func(t *testing.T) {
		tests := []struct {
			rate RateRange
			want int
		}{
			{RateRange{50, 100}, 15},
			{RateRange{60, 90}, 15},
			{RateRange{40, 90}, 5},
			{RateRange{60, 110}, 5},
			{RateRange{90, 60}, 5},
		}
		for _, tt := range tests {
			s := Score(req, Candidate{RateRange: tt.rate})
			assert.Equal(t, tt.want, s.Breakdown.Budget, "%v", tt.rate)
		}
	})

	t.Run("remote only counts when required", func(t *testing.T) {
		assert.Equal(t, 5, Score(req, Candidate{RemoteCapable: true}).Breakdown.Remote)
		assert.Equal(t, 0, Score(req, Candidate{RemoteCapable: false}).Breakdown.Remote)

		r := req
		r.Remote = false
		assert.Equal(t, 0, Score(r, Candidate{RemoteCapable: true}).Breakdown.Remote)
	})
}

func TestScore_PureAndBounded(t *testing.T) {
	req := seniorRemoteJob()
	candidates := []Candidate{
		{},
		{SkillSet: []string{"A", "B"}, ExperienceLevel: LevelSenior, RateRange: RateRange{50, 100}, RemoteCapable: true},
		{SkillSet: []string{"A"}, ExperienceLevel: LevelMid, RateRange: RateRange{0, 1000}},
	}
	empty := Requirements{}

	for _, c := range candidates {
		first := Score(req, c)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Score(req, c))
		}
		for _, s := range []MatchScore{first, Score(empty, c)} {
			assert.GreaterOrEqual(t, s.Total, 0)
			assert.LessOrEqual(t, s.Total, MaxTotal)
		}
	}
}

func TestRank(t *testing.T) {
	req := seniorRemoteJob()
	candidates := []Candidate{
		{Title: "low", SkillSet: []string{"X"}, ExperienceLevel: LevelExpert},
		{Title: "tie-1", SkillSet: []string{"A"}, ExperienceLevel: LevelSenior},
		{Title: "top", SkillSet: []string{"A", "B"}, ExperienceLevel: LevelSenior, RateRange: RateRange{50, 100}, RemoteCapable: true},
		{Title: "tie-2", SkillSet: []string{"B"}, ExperienceLevel: LevelSenior},
		{Title: "tie-3", SkillSet: []string{"a"}, ExperienceLevel: LevelSenior},
	}

	t.Run("default top three", func(t *testing.T) {
		ranked := Rank(req, candidates, 0)
		require.Len(t, ranked, 3)
		assert.Equal(t, "top", ranked[0].Candidate.Title)
		assert.Equal(t, 2, ranked[0].Index)
		assert.Equal(t, "tie-1", ranked[1].Candidate.Title)
		assert.Equal(t, "tie-2", ranked[2].Candidate.Title)
	})

	t.Run("ties keep input order", func(t *testing.T) {
		ranked := Rank(req, candidates, 10)
		require.Len(t, ranked, len(candidates))

		titles := make([]string, len(ranked))
		for i, s := range ranked {
			titles[i] = s.Candidate.Title
			if i > 0 {
				assert.GreaterOrEqual(t, ranked[i-1].Total, s.Total)
			}
		}
		assert.Equal(t, []string{"top", "tie-1", "tie-2", "tie-3", "low"}, titles)
	})

	t.Run("negative topK uses default", func(t *testing.T) {
		assert.Len(t, Rank(req, candidates, -1), DefaultTopK)
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Empty(t, Rank(req, nil, 3))
	})

	t.Run("input is not reordered", func(t *testing.T) {
		Rank(req, candidates, 5)
		assert.Equal(t, "low", candidates[0].Title)
	})
}

func TestRequirementsFromJob(t *testing.T) {
	job := &simplepublish.JobFields{
		Title:           "Go developer",
		Description:     "Build services",
		Skills:          []string{"Go", "SQL"},
		ExperienceLevel: "senior",
		BudgetMin:       "50",
		BudgetMax:       "100.5",
		Remote:          true,
	}

	req, err := RequirementsFromJob(job)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL"}, req.SkillSet)
	assert.Equal(t, LevelSenior, req.ExperienceLevel)
	assert.Equal(t, 50.0, req.BudgetMin)
	assert.Equal(t, 100.5, req.BudgetMax)
	assert.True(t, req.Remote)

	t.Run("invalid", func(t *testing.T) {
		_, err := RequirementsFromJob(nil)
		assert.ErrorIs(t, err, simplepublish.ErrValidation)

		bad := *job
		bad.ExperienceLevel = "Guru"
		_, err = RequirementsFromJob(&bad)
		assert.ErrorIs(t, err, simplepublish.ErrValidation)

		bad = *job
		bad.BudgetMin = "cheap"
		_, err = RequirementsFromJob(&bad)
		assert.ErrorIs(t, err, simplepublish.ErrValidation)

		bad = *job
		bad.BudgetMin = "200"
		_, err = RequirementsFromJob(&bad)
		var fe *simplepublish.FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "budgetMax", fe.Field)
	})
}

func TestExperienceLevel(t *testing.T) {
	level, err := ParseExperienceLevel(" EXPERT ")
	require.NoError(t, err)
	assert.Equal(t, LevelExpert, level)

	_, err = ParseExperienceLevel("junior")
	assert.Error(t, err)

	var c Candidate
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","experienceLevel":"mid"}`), &c))
	assert.Equal(t, LevelMid, c.ExperienceLevel)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"experienceLevel":"Mid"`)

	assert.Error(t, json.Unmarshal([]byte(`{"experienceLevel":"guru"}`), &c))
}
