package category

import (
	"regexp"
	"strings"
	"unicode"
)

// matcher reports whether a lowercased title contains one keyword.
type matcher func(lowerTitle string) bool

type compiledEntry struct {
	name     string
	matchers []matcher
}

// Classifier maps video titles to taxonomy categories. It is safe for
// concurrent use.
type Classifier struct {
	entries []compiledEntry
}

// NewClassifier precompiles the keyword matchers of t.
func NewClassifier(t *Taxonomy) *Classifier {
	c := &Classifier{entries: make([]compiledEntry, 0, len(t.entries))}
	for _, e := range t.entries {
		ce := compiledEntry{name: e.Name}
		for _, k := range e.Keywords {
			ce.matchers = append(ce.matchers, compileKeyword(k))
		}
		c.entries = append(c.entries, ce)
	}
	return c
}

// Classify returns the categories whose keywords occur in title, in
// taxonomy order. The first element is the primary category. The
// description is not matched: boilerplate descriptions produce too many
// false positives.
func (c *Classifier) Classify(title, description string) []string {
	lower := strings.ToLower(title)

	var matched []string
	for _, e := range c.entries {
		for _, m := range e.matchers {
			if m(lower) {
				matched = append(matched, e.name)
				break
			}
		}
	}
	return matched
}

// compileKeyword picks substring matching for phrases and non-Latin
// keywords, and whole-word matching for single Latin tokens.
func compileKeyword(keyword string) matcher {
	lowerKeyword := strings.ToLower(keyword)
	substring := func(lowerTitle string) bool {
		return strings.Contains(lowerTitle, lowerKeyword)
	}

	if !isLatinToken(keyword) {
		return substring
	}

	re, err := wordPattern(keyword)
	if err != nil {
		return substring
	}
	return func(lowerTitle string) bool {
		return re.MatchString(lowerTitle)
	}
}

// wordPattern is a variable so tests can simulate a construction failure.
var wordPattern = func(keyword string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
}

// isLatinToken reports whether keyword has no whitespace and no letters
// outside the Latin script.
func isLatinToken(keyword string) bool {
	for _, r := range keyword {
		if unicode.IsSpace(r) {
			return false
		}
		if unicode.IsLetter(r) && !unicode.In(r, unicode.Latin) {
			return false
		}
	}
	return true
}
