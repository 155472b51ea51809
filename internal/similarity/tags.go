package similarity

import (
	"sort"
	"strings"

	"github.com/hunterwarburton/ferret/internal/config"
)

// Tagger assigns topical domain tags to normalized query text.
type Tagger struct {
	tags         []config.DomainTag
	incompatible map[string]map[string]bool
}

// NewTagger builds a Tagger from the loaded rule set.
func NewTagger(rules *config.Rules) *Tagger {
	incompatible := make(map[string]map[string]bool)
	add := func(a, b string) {
		if incompatible[a] == nil {
			incompatible[a] = make(map[string]bool)
		}
		incompatible[a][b] = true
	}
	for _, pair := range rules.IncompatibleTags {
		if len(pair) != 2 {
			continue
		}
		add(pair[0], pair[1])
		add(pair[1], pair[0])
	}
	return &Tagger{tags: rules.DomainTags, incompatible: incompatible}
}

// Tags returns the sorted domain tags whose keywords appear in the
// normalized text.
func (t *Tagger) Tags(normalized string) []string {
	padded := " " + normalized + " "
	var tags []string
	for _, dt := range t.tags {
		for _, kw := range dt.Keywords {
			if strings.Contains(padded, " "+kw+" ") {
				tags = append(tags, dt.Tag)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// Compatible reports whether two tag sets may describe the same query.
// Empty tag sets are compatible with everything: absence of evidence
// is not a veto.
func (t *Tagger) Compatible(a, b []string) bool {
	for _, ta := range a {
		for _, tb := range b {
			if t.incompatible[ta][tb] {
				return false
			}
		}
	}
	return true
}
