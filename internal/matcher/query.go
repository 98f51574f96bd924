package matcher

import (
	"github.com/myrjola/tripguide/internal/catalog"
	"github.com/myrjola/tripguide/internal/models"
)

// BuildQuery derives a query from the answers that feed matching dimensions, topped up with extracted tags.
// Direct answers win over tags for single valued dimensions.
func BuildQuery(sub models.Submission, tags models.TagSet) Query {
	first := func(values ...[]string) string {
		for _, vs := range values {
			for _, v := range vs {
				if normaliseTerm(v) != "" {
					return normaliseTerm(v)
				}
			}
		}
		return ""
	}
	union := func(values ...[]string) []string {
		var out []string
		seen := make(map[string]bool)
		for _, vs := range values {
			for _, v := range vs {
				v = normaliseTerm(v)
				if v != "" && !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
		}
		return out
	}

	return Query{
		Destination: first(
			sub.DimensionValues(catalog.DimensionDestination),
			tags.Category("region"),
			tags.Category("country"),
		),
		Activities:      union(sub.DimensionValues(catalog.DimensionActivities), tags.Category("activity")),
		TravelerType:    first(sub.DimensionValues(catalog.DimensionTravelerType), tags.Category("traveler")),
		ExperienceLevel: first(sub.DimensionValues(catalog.DimensionExperience), tags.Category("experience")),
		Languages:       union(sub.DimensionValues(catalog.DimensionLanguages), tags.Category("language")),
	}
}
