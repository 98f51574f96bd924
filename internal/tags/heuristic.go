package tags

import (
	"context"
	"strings"

	"github.com/myrjola/tripguide/internal/models"
)

// Extractor turns a completed submission into matching tags. Implementations never fail; the worst case is a
// fixed default set.
type Extractor interface {
	Extract(ctx context.Context, sub models.Submission) models.TagSet
}

// Rule fires Tag when Pattern occurs in the lowercase answer corpus.
type Rule struct {
	Pattern string
	Tag     models.Tag
}

// DefaultRules is evaluated in order. Several rules may produce the same tag.
var DefaultRules = []Rule{
	// Activities.
	{Pattern: "hik", Tag: "activity:hiking"},
	{Pattern: "trek", Tag: "activity:hiking"},
	{Pattern: "ski", Tag: "activity:skiing"},
	{Pattern: "snowboard", Tag: "activity:skiing"},
	{Pattern: "climb", Tag: "activity:climbing"},
	{Pattern: "boulder", Tag: "activity:climbing"},
	{Pattern: "canyon", Tag: "activity:canyoneering"},
	{Pattern: "scuba", Tag: "activity:diving"},
	{Pattern: "diving", Tag: "activity:diving"},
	{Pattern: "snorkel", Tag: "activity:diving"},
	{Pattern: "surf", Tag: "activity:surfing"},
	{Pattern: "cycl", Tag: "activity:cycling"},
	{Pattern: "bik", Tag: "activity:cycling"},
	{Pattern: "kayak", Tag: "activity:kayaking"},
	{Pattern: "paddl", Tag: "activity:kayaking"},
	{Pattern: "food", Tag: "activity:food"},
	{Pattern: "culinar", Tag: "activity:food"},
	{Pattern: "wine", Tag: "activity:food"},
	{Pattern: "museum", Tag: "activity:culture"},
	{Pattern: "histor", Tag: "activity:culture"},
	{Pattern: "cultur", Tag: "activity:culture"},
	{Pattern: "wildlife", Tag: "activity:wildlife"},
	{Pattern: "safari", Tag: "activity:wildlife"},
	{Pattern: "photo", Tag: "activity:photography"},
	// Places.
	{Pattern: "utah", Tag: "region:utah"},
	{Pattern: "zion", Tag: "region:utah"},
	{Pattern: "moab", Tag: "region:utah"},
	{Pattern: "alps", Tag: "region:alps"},
	{Pattern: "switzerland", Tag: "country:switzerland"},
	{Pattern: "chamonix", Tag: "region:alps"},
	{Pattern: "patagonia", Tag: "region:patagonia"},
	{Pattern: "iceland", Tag: "country:iceland"},
	{Pattern: "japan", Tag: "country:japan"},
	{Pattern: "mountain", Tag: "terrain:mountains"},
	{Pattern: "desert", Tag: "terrain:desert"},
	{Pattern: "coast", Tag: "terrain:coast"},
	{Pattern: "beach", Tag: "terrain:coast"},
	// Who is travelling.
	{Pattern: "solo", Tag: "traveler:solo"},
	{Pattern: "family", Tag: "traveler:family"},
	{Pattern: "kids", Tag: "traveler:family"},
	{Pattern: "couple", Tag: "traveler:couple"},
	{Pattern: "honeymoon", Tag: "traveler:couple"},
	{Pattern: "friends", Tag: "traveler:group"},
	// Experience.
	{Pattern: "beginner", Tag: "experience:beginner"},
	{Pattern: "first time", Tag: "experience:beginner"},
	{Pattern: "intermediate", Tag: "experience:intermediate"},
	{Pattern: "advanced", Tag: "experience:advanced"},
	// Languages.
	{Pattern: "english", Tag: "language:english"},
	{Pattern: "spanish", Tag: "language:spanish"},
	{Pattern: "german", Tag: "language:german"},
	{Pattern: "french", Tag: "language:french"},
	{Pattern: "japanese", Tag: "language:japanese"},
}

// DefaultFlowTags are substituted when no rule fires.
var DefaultFlowTags = map[models.FlowType]models.TagSet{
	models.FlowOpenEnded:        {"activity:culture", "activity:food", "experience:intermediate"},
	models.FlowDestinationKnown: {"activity:culture", "experience:intermediate"},
}

// Heuristic extracts tags with substring rules. It is deterministic and needs no network.
type Heuristic struct {
	rules    []Rule
	defaults map[models.FlowType]models.TagSet
}

func NewHeuristic() *Heuristic {
	return &Heuristic{rules: DefaultRules, defaults: DefaultFlowTags}
}

// FromText applies the rules to text without falling back to defaults.
func (h *Heuristic) FromText(text string) models.TagSet {
	corpus := strings.ToLower(text)
	var out models.TagSet
	for _, r := range h.rules {
		if strings.Contains(corpus, r.Pattern) {
			out.Add(r.Tag)
		}
	}
	return out
}

// Defaults returns the fallback tags of a flow type.
func (h *Heuristic) Defaults(ft models.FlowType) models.TagSet {
	out := make(models.TagSet, len(h.defaults[ft]))
	copy(out, h.defaults[ft])
	return out
}

func (h *Heuristic) Extract(_ context.Context, sub models.Submission) models.TagSet {
	if tags := h.FromText(sub.Corpus()); len(tags) > 0 {
		return tags
	}
	return h.Defaults(sub.FlowType)
}

// Vocabulary lists every tag the rules and defaults can produce.
func (h *Heuristic) Vocabulary() models.TagSet {
	var out models.TagSet
	for _, r := range h.rules {
		out.Add(r.Tag)
	}
	for _, ft := range []models.FlowType{models.FlowOpenEnded, models.FlowDestinationKnown} {
		out.Add(h.defaults[ft]...)
	}
	return out
}
