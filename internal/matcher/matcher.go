package matcher

import (
	"sort"

	"github.com/myrjola/tripguide/internal/models"
)

const (
	pointsDestination = 10
	pointsActivity    = 8
	pointsTraveler    = 6
	pointsExperience  = 5
	pointsLanguage    = 7
)

// Query holds the optional matching dimensions. Empty fields do not filter.
type Query struct {
	Destination     string
	Activities      []string
	TravelerType    string
	ExperienceLevel string
	Languages       []string
}

func (q Query) IsEmpty() bool {
	return normaliseTerm(q.Destination) == "" && len(q.Activities) == 0 && normaliseTerm(q.TravelerType) == "" &&
		normaliseTerm(q.ExperienceLevel) == "" && len(q.Languages) == 0
}

// Step records the pool size after one filtering dimension.
type Step struct {
	Dimension string
	Remaining int
}

// FallbackSuggestions are hints for a broader search when nothing matched. They are advice, not candidates.
type FallbackSuggestions struct {
	BroadenedDestination  string
	AlternativeActivities []string
	AdjustedExperience    string
}

// Apply returns q with the suggestions applied.
func (f FallbackSuggestions) Apply(q Query) Query {
	if f.BroadenedDestination != "" {
		q.Destination = f.BroadenedDestination
	}
	if len(f.AlternativeActivities) > 0 {
		q.Activities = f.AlternativeActivities
	}
	if f.AdjustedExperience != "" {
		q.ExperienceLevel = f.AdjustedExperience
	}
	return q
}

type Result struct {
	Experts    []models.MatchResult
	TotalFound int
	Steps      []Step
	// Fallback is set when nothing matched and at least one suggestion exists.
	Fallback *FallbackSuggestions
}

type expandedQuery struct {
	destination models.TagSet
	activities  []models.TagSet
	traveler    models.TagSet
	experience  models.TagSet
	languages   []models.TagSet
}

func expandQuery(q Query) expandedQuery {
	eq := expandedQuery{
		destination: expandDestination(q.Destination),
		activities:  nil,
		traveler:    expand(travelerSynonyms, "traveler", q.TravelerType),
		experience:  expand(experienceSynonyms, "experience", q.ExperienceLevel),
		languages:   nil,
	}
	for _, a := range q.Activities {
		if tags := expand(activitySynonyms, "activity", a); len(tags) > 0 {
			eq.activities = append(eq.activities, tags)
		}
	}
	for _, l := range q.Languages {
		if tags := expand(nil, "language", l); len(tags) > 0 {
			eq.languages = append(eq.languages, tags)
		}
	}
	return eq
}

// candidate caches the flattened tags of an expert.
type candidate struct {
	expert models.ExpertRecord
	tags   models.TagSet
}

// FindExperts filters pool by the query dimensions, scores the survivors and ranks them by descending score. Equal
// scores keep the pool order. The pool is not modified.
func FindExperts(q Query, pool []models.ExpertRecord) Result {
	eq := expandQuery(q)

	candidates := make([]candidate, len(pool))
	for i, e := range pool {
		candidates[i] = candidate{expert: e, tags: e.AllTags()}
	}
	steps := []Step{{Dimension: "pool", Remaining: len(candidates)}}

	narrow := func(dimension string, terms models.TagSet) {
		if len(terms) == 0 {
			return
		}
		kept := candidates[:0:0]
		for _, c := range candidates {
			if len(c.tags.Intersect(terms)) > 0 {
				kept = append(kept, c)
			}
		}
		candidates = kept
		steps = append(steps, Step{Dimension: dimension, Remaining: len(candidates)})
	}
	narrow("destination", eq.destination)
	var anyActivity models.TagSet
	for _, a := range eq.activities {
		anyActivity.Add(a...)
	}
	narrow("activities", anyActivity)
	narrow("traveler_type", eq.traveler)
	narrow("experience", eq.experience)

	results := make([]models.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, score(c, eq))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	result := Result{
		Experts:    results,
		TotalFound: len(results),
		Steps:      steps,
		Fallback:   nil,
	}
	if len(results) == 0 {
		result.Fallback = suggest(q)
	}
	return result
}

func score(c candidate, eq expandedQuery) models.MatchResult {
	res := models.MatchResult{Expert: c.expert, Score: 0, MatchedTags: nil}
	match := func(terms models.TagSet, points int) {
		if hits := c.tags.Intersect(terms); len(hits) > 0 {
			res.Score += points
			res.MatchedTags.Add(hits...)
		}
	}
	match(eq.destination, pointsDestination)
	for _, a := range eq.activities {
		match(a, pointsActivity)
	}
	match(eq.traveler, pointsTraveler)
	match(eq.experience, pointsExperience)
	for _, l := range eq.languages {
		match(l, pointsLanguage)
	}
	for _, b := range bonusTags {
		if c.tags.Contains(b.tag) {
			res.Score += b.points
		}
	}
	return res
}

func suggest(q Query) *FallbackSuggestions {
	key, _ := destinationKey(q.Destination)
	f := FallbackSuggestions{
		BroadenedDestination:  broaderDestination[key],
		AlternativeActivities: nil,
		AdjustedExperience:    towardsMiddle[normaliseTerm(q.ExperienceLevel)],
	}

	asked := make(map[string]bool, len(q.Activities))
	for _, a := range q.Activities {
		asked[normaliseTerm(a)] = true
	}
	seen := make(map[string]bool)
	for _, a := range q.Activities {
		for _, alt := range adjacentActivities[normaliseTerm(a)] {
			if !asked[alt] && !seen[alt] {
				seen[alt] = true
				f.AlternativeActivities = append(f.AlternativeActivities, alt)
			}
		}
	}

	if f.BroadenedDestination == "" && len(f.AlternativeActivities) == 0 && f.AdjustedExperience == "" {
		return nil
	}
	return &f
}
