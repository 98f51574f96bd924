package matcher

import (
	"strings"

	"github.com/myrjola/tripguide/internal/models"
)

var destinationSynonyms = map[string][]models.Tag{
	"utah":          {"region:utah", "country:us"},
	"zion":          {"region:utah", "country:us"},
	"moab":          {"region:utah", "country:us"},
	"usa":           {"country:us"},
	"us":            {"country:us"},
	"united states": {"country:us"},
	"alps":          {"region:alps"},
	"chamonix":      {"region:alps", "country:france"},
	"zermatt":       {"region:alps", "country:switzerland"},
	"switzerland":   {"country:switzerland", "region:alps"},
	"iceland":       {"country:iceland"},
	"japan":         {"country:japan"},
	"patagonia":     {"region:patagonia", "country:argentina", "country:chile"},
}

var activitySynonyms = map[string][]models.Tag{
	"hiking":       {"activity:hiking"},
	"hike":         {"activity:hiking"},
	"trekking":     {"activity:hiking"},
	"skiing":       {"activity:skiing"},
	"ski":          {"activity:skiing"},
	"snowboarding": {"activity:skiing"},
	"climbing":     {"activity:climbing"},
	"bouldering":   {"activity:climbing"},
	"canyoneering": {"activity:canyoneering"},
	"canyoning":    {"activity:canyoneering"},
	"diving":       {"activity:diving"},
	"scuba":        {"activity:diving"},
	"snorkeling":   {"activity:diving"},
	"cycling":      {"activity:cycling"},
	"biking":       {"activity:cycling"},
	"food":         {"activity:food"},
	"culinary":     {"activity:food"},
	"culture":      {"activity:culture"},
	"history":      {"activity:culture"},
	"museums":      {"activity:culture"},
}

var travelerSynonyms = map[string][]models.Tag{
	"solo":    {"traveler:solo"},
	"couple":  {"traveler:couple"},
	"family":  {"traveler:family"},
	"friends": {"traveler:group"},
	"group":   {"traveler:group"},
}

var experienceSynonyms = map[string][]models.Tag{
	"beginner":     {"experience:beginner"},
	"novice":       {"experience:beginner"},
	"intermediate": {"experience:intermediate"},
	"advanced":     {"experience:advanced"},
	"expert":       {"experience:advanced"},
}

// bonusTags reward credentials that matter for safety regardless of the query.
var bonusTags = []struct {
	tag    models.Tag
	points int
}{
	{tag: "credential:certified-guide", points: 3},
	{tag: "credential:wilderness-first-aid", points: 2},
	{tag: "credential:avalanche-safety", points: 2},
}

// broaderDestination steps a specific place up one level.
var broaderDestination = map[string]string{
	"zion":        "utah",
	"moab":        "utah",
	"utah":        "usa",
	"chamonix":    "alps",
	"zermatt":     "alps",
	"switzerland": "alps",
}

var adjacentActivities = map[string][]string{
	"hiking":       {"climbing", "canyoneering"},
	"skiing":       {"hiking"},
	"climbing":     {"hiking", "canyoneering"},
	"canyoneering": {"hiking", "climbing"},
	"diving":       {"kayaking", "surfing"},
	"surfing":      {"kayaking", "diving"},
	"kayaking":     {"surfing"},
	"cycling":      {"hiking"},
	"food":         {"culture"},
	"culture":      {"food", "photography"},
	"wildlife":     {"photography", "hiking"},
	"photography":  {"wildlife"},
}

// towardsMiddle steps an experience level one level towards intermediate.
var towardsMiddle = map[string]string{
	"beginner": "intermediate",
	"novice":   "intermediate",
	"advanced": "intermediate",
	"expert":   "intermediate",
}

// normaliseTerm lowercases and collapses whitespace.
func normaliseTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

// expand maps a literal query term to the tags that count as a match. Unknown terms match their literal tag.
func expand(table map[string][]models.Tag, category, term string) models.TagSet {
	term = normaliseTerm(term)
	if term == "" {
		return nil
	}
	if tags, ok := table[term]; ok {
		return append(models.TagSet(nil), tags...)
	}
	return models.TagSet{models.NewTag(category, term)}
}

// destinationKey finds the synonym table entry for a free-text destination such as "Zion National Park". The longest
// entry occurring as whole words wins.
func destinationKey(term string) (string, bool) {
	term = normaliseTerm(term)
	if _, ok := destinationSynonyms[term]; ok {
		return term, true
	}
	padded := " " + strings.Map(func(r rune) rune {
		if strings.ContainsRune(",.;:!?()/", r) {
			return ' '
		}
		return r
	}, term) + " "
	best := ""
	for key := range destinationSynonyms {
		if strings.Contains(padded, " "+key+" ") && (len(key) > len(best) || len(key) == len(best) && key < best) {
			best = key
		}
	}
	return best, best != ""
}

func expandDestination(term string) models.TagSet {
	term = normaliseTerm(term)
	if term == "" {
		return nil
	}
	if key, ok := destinationKey(term); ok {
		return append(models.TagSet(nil), destinationSynonyms[key]...)
	}
	return models.TagSet{models.NewTag("region", term), models.NewTag("country", term), models.NewTag("city", term)}
}
