package models

import (
	"slices"
	"strings"
)

// Tag is a namespaced "category:value" token, the matching currency between travellers and experts.
type Tag string

// NewTag normalises category and value into a Tag.
func NewTag(category, value string) Tag {
	return Tag(normaliseTagPart(category) + ":" + normaliseTagPart(value))
}

// ParseTag normalises a raw "category:value" string. The second result is false when raw has no category.
func ParseTag(raw string) (Tag, bool) {
	category, value, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || strings.TrimSpace(category) == "" || strings.TrimSpace(value) == "" {
		return "", false
	}
	return NewTag(category, value), true
}

func normaliseTagPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}

func (t Tag) Category() string {
	category, _, _ := strings.Cut(string(t), ":")
	return category
}

func (t Tag) Value() string {
	_, value, _ := strings.Cut(string(t), ":")
	return value
}

func (t Tag) String() string {
	return string(t)
}

// TagSet is an insertion-ordered set of tags.
type TagSet []Tag

// Add appends the tags not already present.
func (s *TagSet) Add(tags ...Tag) {
	for _, t := range tags {
		if !s.Contains(t) {
			*s = append(*s, t)
		}
	}
}

func (s TagSet) Contains(t Tag) bool {
	return slices.Contains(s, t)
}

// Intersect keeps the tags of s that are also in other, preserving the order of s.
func (s TagSet) Intersect(other TagSet) TagSet {
	var out TagSet
	for _, t := range s {
		if other.Contains(t) {
			out.Add(t)
		}
	}
	return out
}

// Category returns the values of the tags in category.
func (s TagSet) Category(category string) []string {
	var out []string
	for _, t := range s {
		if t.Category() == category {
			out = append(out, t.Value())
		}
	}
	return out
}

func (s TagSet) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = string(t)
	}
	return out
}
