package models

import "sort"

// ExpertRecord is a travel expert from the directory.
type ExpertRecord struct {
	ID         string `db:"id" yaml:"id"`
	Name       string `db:"name" yaml:"name"`
	Bio        string `db:"bio" yaml:"bio"`
	ContactRef string `db:"contact_ref" yaml:"contact"`
	// Tags maps a category such as "activity" to its values such as "hiking".
	Tags map[string][]string `db:"-" yaml:"tags"`
}

// AllTags flattens Tags into "category:value" tags ordered by category.
func (e ExpertRecord) AllTags() TagSet {
	categories := make([]string, 0, len(e.Tags))
	for category := range e.Tags {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	var out TagSet
	for _, category := range categories {
		for _, value := range e.Tags[category] {
			out.Add(NewTag(category, value))
		}
	}
	return out
}

// MatchResult is a scored expert for one query.
type MatchResult struct {
	Expert ExpertRecord
	Score  int
	// MatchedTags are the expert tags that contributed to the score in discovery order.
	MatchedTags TagSet
}
