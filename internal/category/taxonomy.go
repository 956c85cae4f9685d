// Package category holds the category taxonomy and the title classifier.
package category

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"chanfeed/internal/errs"
)

//go:embed default_taxonomy.json
var defaultTaxonomy []byte

// Entry maps one category name to the keywords that select it.
type Entry struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Taxonomy is an ordered, immutable list of category entries. Declaration
// order decides the primary category of a video.
type Taxonomy struct {
	entries []Entry
}

// New validates entries and returns a Taxonomy holding a private copy.
func New(entries []Entry) (*Taxonomy, error) {
	seen := make(map[string]bool, len(entries))
	copied := make([]Entry, 0, len(entries))

	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: taxonomy entry %d has no name", errs.ErrValidation, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate taxonomy entry %q", errs.ErrValidation, name)
		}
		seen[name] = true

		keywords := make([]string, 0, len(e.Keywords))
		for _, k := range e.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("%w: taxonomy entry %q has no keywords", errs.ErrValidation, name)
		}
		copied = append(copied, Entry{Name: name, Keywords: keywords})
	}

	return &Taxonomy{entries: copied}, nil
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t, err := Parse(defaultTaxonomy)
	if err != nil {
		panic("category: invalid built-in taxonomy: " + err.Error())
	}
	return t
}

// Parse decodes a JSON array of entries.
func Parse(data []byte) (*Taxonomy, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse taxonomy: %v", errs.ErrValidation, err)
	}
	return New(entries)
}

// Load reads a taxonomy document from path. An empty path selects Default.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Entries returns a copy of the entries in declaration order.
func (t *Taxonomy) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = Entry{Name: e.Name, Keywords: append([]string(nil), e.Keywords...)}
	}
	return out
}

// Names returns the category names in declaration order.
func (t *Taxonomy) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of entries.
func (t *Taxonomy) Len() int { return len(t.entries) }
