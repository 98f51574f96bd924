package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/tripguide/internal/ai"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
)

const (
	minDelegatedTags = 5
	maxDelegatedTags = 8
)

// Completer is the generation service call the delegated strategy needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Delegated asks the generation service to pick tags from a vocabulary. Whatever it answers is filtered to the
// vocabulary, and any failure falls back to the heuristic rules restricted to the vocabulary.
type Delegated struct {
	completer  Completer
	vocabulary models.TagSet
	fallback   *Heuristic
	logger     *slog.Logger
}

func NewDelegated(completer Completer, vocabulary models.TagSet, fallback *Heuristic, logger *slog.Logger) *Delegated {
	return &Delegated{
		completer:  completer,
		vocabulary: vocabulary,
		fallback:   fallback,
		logger:     logger.With("source", "tags.Delegated"),
	}
}

func (d *Delegated) Extract(ctx context.Context, sub models.Submission) models.TagSet {
	tags, err := d.delegate(ctx, sub)
	if err == nil {
		return tags
	}
	d.logger.LogAttrs(ctx, slog.LevelWarn, "falling back to heuristic tags", errors.SlogError(err))
	return d.fallbackTags(ctx, sub)
}

func (d *Delegated) delegate(ctx context.Context, sub models.Submission) (models.TagSet, error) {
	if len(d.vocabulary) == 0 {
		return nil, errors.New("empty vocabulary")
	}
	system := fmt.Sprintf(
		"You match travellers with travel experts. Pick between %d and %d tags that describe the traveller. "+
			"Only use tags from this list: %s. Answer with a JSON array of strings and nothing else.",
		minDelegatedTags, maxDelegatedTags, strings.Join(d.vocabulary.Strings(), ", "),
	)
	content, err := d.completer.Complete(ctx, system, sub.Text())
	if err != nil {
		return nil, errors.Wrap(err, "delegate tag selection")
	}
	raw, err := ParseList(content)
	if err != nil {
		return nil, errors.Wrap(err, "parse tag selection")
	}

	var out models.TagSet
	for _, r := range raw {
		tag, ok := models.ParseTag(r)
		if !ok || !d.vocabulary.Contains(tag) {
			continue
		}
		out.Add(tag)
		if len(out) == maxDelegatedTags {
			break
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no known tags in selection", slog.Int("returned", len(raw)))
	}
	return out, nil
}

func (d *Delegated) fallbackTags(ctx context.Context, sub models.Submission) models.TagSet {
	if len(d.vocabulary) == 0 {
		return d.fallback.Extract(ctx, sub)
	}
	if tags := d.fallback.FromText(sub.Corpus()).Intersect(d.vocabulary); len(tags) > 0 {
		return tags
	}
	defaults := d.fallback.Defaults(sub.FlowType)
	if tags := defaults.Intersect(d.vocabulary); len(tags) > 0 {
		return tags
	}
	return standIn(defaults, d.vocabulary)
}

// standIn picks the first vocabulary tag of each category the defaults use. Matching needs at least one tag, so a
// vocabulary sharing no category with the defaults yields its first tag.
func standIn(defaults, vocabulary models.TagSet) models.TagSet {
	var out models.TagSet
	for _, def := range defaults {
		for _, tag := range vocabulary {
			if tag.Category() == def.Category() {
				out.Add(tag)
				break
			}
		}
	}
	if len(out) == 0 {
		out.Add(vocabulary[0])
	}
	return out
}

// ParseList reads a list of strings from a model answer. JSON arrays are preferred, optionally wrapped in a code
// fence; otherwise the answer is split on newlines and commas with list markers removed.
func ParseList(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if start, end := strings.Index(content, "["), strings.LastIndex(content, "]"); start >= 0 && end > start {
		var list []string
		if err := json.Unmarshal([]byte(content[start:end+1]), &list); err == nil {
			return list, nil
		}
	}

	var list []string
	for _, line := range strings.FieldsFunc(content, func(r rune) bool { return r == '\n' || r == ',' }) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			continue
		}
		item := strings.Trim(line, "-*•\"'` ")
		if item == "" {
			continue
		}
		list = append(list, item)
	}
	if len(list) == 0 {
		return nil, &ai.Error{Kind: ai.KindMalformed, StatusCode: 0, Err: errors.New("no list in answer")}
	}
	return list, nil
}
