package label

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultFamilies maps common phrasings onto the five base families
var defaultFamilies = map[string][]string{
	"health": {
		"gym", "exercise", "workout", "fitness", "run", "running", "yoga",
		"doctor", "dentist", "medicine", "medication", "wellness", "therapy",
	},
	"errand": {
		"grocery", "groceries", "shopping", "pharmacy", "post office",
		"laundry", "bank", "chores", "pickup",
	},
	"work": {
		"office", "meeting", "meetings", "project", "job", "client", "standup",
		"deadline", "report",
	},
	"career": {
		"interview", "resume", "cv", "networking", "job search",
		"promotion", "portfolio", "course",
	},
	"personal": {
		"family", "home", "hobby", "hobbies", "friends", "birthday",
		"vacation", "travel",
	},
}

// Resolution is a synonym hit
type Resolution struct {
	Label   string // Presentable label to return
	Family  string // Normalized family key
	Created bool   // Label is synthesized, not drawn from the existing set
}

// Synonyms resolves normalized phrases to canonical families
type Synonyms struct {
	families    map[string]string
	allowCreate bool
}

// NewSynonyms builds a resolver from the built-in table overlaid with extra.
// Both phrases and families in extra are normalized before use, so an extra
// entry replaces a built-in one with the same key.
func NewSynonyms(extra map[string]string, allowCreate bool) *Synonyms {
	families := make(map[string]string)
	for family, phrases := range defaultFamilies {
		for _, p := range phrases {
			families[Normalize(p)] = family
		}
		families[family] = family
	}
	for phrase, family := range extra {
		k, f := Normalize(phrase), Normalize(family)
		if k == "" || f == "" {
			continue
		}
		families[k] = f
	}
	return &Synonyms{families: families, allowCreate: allowCreate}
}

// AllowCreate reports whether unmatched families may become new labels
func (s *Synonyms) AllowCreate() bool {
	return s.allowCreate
}

// Family returns the family for a normalized key
func (s *Synonyms) Family(key string) (string, bool) {
	f, ok := s.families[key]
	return f, ok
}

// Resolve maps key through its family onto an existing candidate, or onto a
// freshly titled label when creation is allowed.
func (s *Synonyms) Resolve(key string, existing []Candidate) (Resolution, bool) {
	family, ok := s.families[key]
	if !ok {
		return Resolution{}, false
	}
	for _, c := range existing {
		if c.Key == family {
			return Resolution{Label: c.Label, Family: family}, true
		}
	}
	if !s.allowCreate {
		return Resolution{Family: family}, false
	}
	return Resolution{Label: Title(family), Family: family, Created: true}, true
}

// LoadSynonymFile reads a YAML mapping of phrase -> family
func LoadSynonymFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms: %w", err)
	}
	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse synonyms %s: %w", path, err)
	}
	return entries, nil
}
