package matcher_test

import (
	"fmt"
	"testing"

	"github.com/myrjola/tripguide/internal/matcher"
	"github.com/myrjola/tripguide/internal/models"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func expert(id string, tags map[string][]string) models.ExpertRecord {
	return models.ExpertRecord{ID: id, Name: "Expert " + id, Bio: "", ContactRef: "", Tags: tags}
}

func ids(results []models.MatchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Expert.ID
	}
	return out
}

func TestFindExpertsSingleActivity(t *testing.T) {
	t.Parallel()
	pool := []models.ExpertRecord{
		expert("E1", map[string][]string{"activity": {"diving"}}),
		expert("E2", map[string][]string{"activity": {"hiking"}, "region": {"utah"}}),
		expert("E3", map[string][]string{"activity": {"food"}}),
	}
	res := matcher.FindExperts(matcher.Query{Activities: []string{"hiking"}}, pool) //nolint:exhaustruct // one dimension

	require.Equal(t, 1, res.TotalFound)
	require.Equal(t, "E2", res.Experts[0].Expert.ID)
	require.Positive(t, res.Experts[0].Score)
	require.Equal(t, models.TagSet{"activity:hiking"}, res.Experts[0].MatchedTags)
	require.Nil(t, res.Fallback)
	require.Equal(t, []matcher.Step{{Dimension: "pool", Remaining: 3}, {Dimension: "activities", Remaining: 1}}, res.Steps)
}

func TestFindExpertsScoring(t *testing.T) {
	t.Parallel()
	full := expert("full", map[string][]string{
		"region":     {"utah"},
		"activity":   {"hiking", "canyoneering"},
		"traveler":   {"family"},
		"experience": {"beginner"},
		"language":   {"english", "spanish"},
		"credential": {"certified-guide"},
	})
	tests := []struct {
		name  string
		query matcher.Query
		want  int
	}{
		{
			name:  "empty query scores bonuses only",
			query: matcher.Query{}, //nolint:exhaustruct // empty on purpose
			want:  3,
		},
		{
			name:  "destination through synonym",
			query: matcher.Query{Destination: "Zion National Park"}, //nolint:exhaustruct // one dimension
			want:  10 + 3,
		},
		{
			name: "everything",
			query: matcher.Query{
				Destination:     "Utah",
				Activities:      []string{"Hiking", "canyoning"},
				TravelerType:    "Family",
				ExperienceLevel: "novice",
				Languages:       []string{"English", "Spanish", "German"},
			},
			want: 10 + 2*8 + 6 + 5 + 2*7 + 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := matcher.FindExperts(tt.query, []models.ExpertRecord{full})
			require.Equal(t, 1, res.TotalFound)
			require.Equal(t, tt.want, res.Experts[0].Score)
		})
	}
}

func TestFindExpertsRanking(t *testing.T) {
	t.Parallel()
	pool := []models.ExpertRecord{
		expert("hiker", map[string][]string{"activity": {"hiking"}}),
		expert("hiker-skier", map[string][]string{"activity": {"hiking", "skiing"}}),
		expert("skier", map[string][]string{"activity": {"skiing"}}),
	}
	res := matcher.FindExperts(matcher.Query{Activities: []string{"hiking", "skiing"}}, pool) //nolint:exhaustruct,lll // activities only
	require.Equal(t, []string{"hiker-skier", "hiker", "skier"}, ids(res.Experts))
	require.Equal(t, models.TagSet{"activity:hiking", "activity:skiing"}, res.Experts[0].MatchedTags)
}

func TestFindExpertsStableForEqualScores(t *testing.T) {
	t.Parallel()
	categories := map[string][]string{
		"activity":   {"hiking", "skiing", "diving"},
		"region":     {"utah", "alps"},
		"credential": {"certified-guide", "avalanche-safety"},
	}
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		pool := make([]models.ExpertRecord, n)
		for i := range pool {
			tags := map[string][]string{}
			for _, category := range []string{"activity", "region", "credential"} {
				values := categories[category]
				tags[category] = rapid.SliceOfDistinct(rapid.SampledFrom(values), func(s string) string { return s }).
					Draw(t, fmt.Sprintf("%s_%d", category, i))
			}
			pool[i] = expert(fmt.Sprintf("E%d", i), tags)
		}
		query := matcher.Query{ //nolint:exhaustruct // drawn dimensions only
			Activities: rapid.SliceOfDistinct(rapid.SampledFrom(categories["activity"]), func(s string) string { return s }).
				Draw(t, "activities"),
		}

		res := matcher.FindExperts(query, pool)
		position := make(map[string]int, len(pool))
		for i, e := range pool {
			position[e.ID] = i
		}
		for i := 1; i < len(res.Experts); i++ {
			prev, cur := res.Experts[i-1], res.Experts[i]
			if prev.Score < cur.Score {
				t.Fatalf("not sorted by score: %v", ids(res.Experts))
			}
			if prev.Score == cur.Score && position[prev.Expert.ID] > position[cur.Expert.ID] {
				t.Fatalf("equal scores out of pool order: %s before %s", prev.Expert.ID, cur.Expert.ID)
			}
		}
		if res.TotalFound != len(res.Experts) {
			t.Fatalf("total %d != %d experts", res.TotalFound, len(res.Experts))
		}
	})
}

func TestFindExpertsFallback(t *testing.T) {
	t.Parallel()
	pool := []models.ExpertRecord{
		expert("E1", map[string][]string{"region": {"alps"}, "activity": {"climbing"}}),
	}
	res := matcher.FindExperts(matcher.Query{ //nolint:exhaustruct // no languages
		Destination:     "Zion",
		Activities:      []string{"hiking", "climbing"},
		TravelerType:    "",
		ExperienceLevel: "Advanced",
	}, pool)
	require.Zero(t, res.TotalFound)
	require.Empty(t, res.Experts)
	require.Equal(t, &matcher.FallbackSuggestions{
		BroadenedDestination:  "utah",
		AlternativeActivities: []string{"canyoneering"},
		AdjustedExperience:    "intermediate",
	}, res.Fallback)
	require.Equal(t, []matcher.Step{
		{Dimension: "pool", Remaining: 1},
		{Dimension: "destination", Remaining: 0},
		{Dimension: "activities", Remaining: 0},
		{Dimension: "experience", Remaining: 0},
	}, res.Steps)

	broadened := res.Fallback.Apply(matcher.Query{Destination: "Zion"}) //nolint:exhaustruct // destination only
	require.Equal(t, "utah", broadened.Destination)
	require.Equal(t, "intermediate", broadened.ExperienceLevel)
}

func TestFindExpertsNoFallbackAvailable(t *testing.T) {
	t.Parallel()
	res := matcher.FindExperts(matcher.Query{Destination: "Atlantis"}, nil) //nolint:exhaustruct // destination only
	require.Zero(t, res.TotalFound)
	require.Nil(t, res.Fallback)

	res = matcher.FindExperts(matcher.Query{}, nil) //nolint:exhaustruct // empty query
	require.Zero(t, res.TotalFound)
	require.Nil(t, res.Fallback)
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()
	sub := models.Submission{ //nolint:exhaustruct // entries only
		FlowType: models.FlowDestinationKnown,
		Entries: []models.AnsweredQuestion{
			{QuestionID: "destination", Dimension: "destination", Values: []string{"Moab"}},
			{QuestionID: "activities", Dimension: "activities", Values: []string{"Hiking", "canyoning"}},
			{QuestionID: "experience", Dimension: "experience", Values: []string{"Beginner"}},
			{QuestionID: "wishes", Dimension: "", Values: []string{"spanish please"}},
		},
	}
	tags := models.TagSet{"activity:hiking", "activity:photography", "region:utah", "traveler:family", "language:spanish"}

	require.Equal(t, matcher.Query{
		Destination:     "moab",
		Activities:      []string{"hiking", "canyoning", "photography"},
		TravelerType:    "family",
		ExperienceLevel: "beginner",
		Languages:       []string{"spanish"},
	}, matcher.BuildQuery(sub, tags))

	require.True(t, matcher.BuildQuery(models.Submission{}, nil).IsEmpty()) //nolint:exhaustruct // empty submission
}
