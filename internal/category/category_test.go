package category

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"testing"

	"chanfeed/internal/errs"
)

func testTaxonomy(t *testing.T) *Taxonomy {
	t.Helper()
	tax, err := New([]Entry{
		{Name: "AI", Keywords: []string{"ai", "GPT"}},
		{Name: "Automation", Keywords: []string{"n8n", "자동화", "no code"}},
		{Name: "Coding", Keywords: []string{"Flow", "cursor"}},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tax
}

func TestClassify(t *testing.T) {
	c := NewClassifier(testTaxonomy(t))

	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{"whole word", "What AI means for you", []string{"AI"}},
		{"case insensitive", "new gpt release", []string{"AI"}},
		{"hyphenated token", "AI-powered editor", []string{"AI"}},
		{"no match inside longer word", "Fresh air and rain", nil},
		{"no match inside compound", "TensorFlow tutorial", nil},
		{"standalone flow", "My Flow setup", []string{"Coding"}},
		{"korean substring", "업무자동화 꿀팁", []string{"Automation"}},
		{"phrase substring", "Building apps with No Code", []string{"Automation"}},
		{"multiple in taxonomy order", "n8n + GPT in Cursor", []string{"AI", "Automation", "Coding"}},
		{"empty title", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.title, "")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestClassifyIgnoresDescription(t *testing.T) {
	c := NewClassifier(testTaxonomy(t))

	got := c.Classify("Weekend vlog", "Subscribe for more AI and n8n content")
	if len(got) != 0 {
		t.Errorf("Classify() = %v, want no categories from description", got)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(testTaxonomy(t))

	first := c.Classify("GPT meets n8n", "")
	for i := 0; i < 20; i++ {
		if got := c.Classify("GPT meets n8n", ""); !reflect.DeepEqual(got, first) {
			t.Fatalf("Classify() run %d = %v, want %v", i, got, first)
		}
	}
}

func TestClassifyPatternFailureFallsBack(t *testing.T) {
	orig := wordPattern
	wordPattern = func(keyword string) (*regexp.Regexp, error) {
		if keyword == "GPT" {
			return nil, errors.New("bad pattern")
		}
		return orig(keyword)
	}
	defer func() { wordPattern = orig }()

	c := NewClassifier(testTaxonomy(t))

	// GPT falls back to substring, so it now matches inside a longer word,
	// while the other keywords keep whole-word matching.
	if got := c.Classify("ChatGPT tips", ""); !reflect.DeepEqual(got, []string{"AI"}) {
		t.Errorf("Classify() = %v, want [AI]", got)
	}
	if got := c.Classify("TensorFlow", ""); len(got) != 0 {
		t.Errorf("Classify() = %v, want none", got)
	}
}

func TestIsLatinToken(t *testing.T) {
	tests := []struct {
		keyword string
		want    bool
	}{
		{"ai", true},
		{"n8n", true},
		{"café", true},
		{"no code", false},
		{"자동화", false},
		{"AI자동화", false},
	}
	for _, tt := range tests {
		if got := isLatinToken(tt.keyword); got != tt.want {
			t.Errorf("isLatinToken(%q) = %v, want %v", tt.keyword, got, tt.want)
		}
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty name", []Entry{{Name: " ", Keywords: []string{"x"}}}},
		{"duplicate", []Entry{{Name: "A", Keywords: []string{"x"}}, {Name: "A", Keywords: []string{"y"}}}},
		{"no keywords", []Entry{{Name: "A", Keywords: []string{"", " "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.entries); !errors.Is(err, errs.ErrValidation) {
				t.Errorf("New() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTaxonomyIsImmutable(t *testing.T) {
	entries := []Entry{{Name: "A", Keywords: []string{"x"}}}
	tax, err := New(entries)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	entries[0].Keywords[0] = "mutated"
	got := tax.Entries()
	got[0].Name = "changed"

	if e := tax.Entries()[0]; e.Name != "A" || e.Keywords[0] != "x" {
		t.Errorf("taxonomy changed through aliasing: %+v", e)
	}
}

func TestDefaultAndLoad(t *testing.T) {
	def := Default()
	if def.Len() == 0 {
		t.Fatal("Default() has no entries")
	}

	loaded, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if !reflect.DeepEqual(loaded.Names(), def.Names()) {
		t.Errorf("Load(\"\") names = %v, want %v", loaded.Names(), def.Names())
	}

	path := filepath.Join(t.TempDir(), "taxonomy.json")
	os.WriteFile(path, []byte(`[{"name":"Only","keywords":["one"]}]`), 0644)
	custom, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(custom.Names(), []string{"Only"}) {
		t.Errorf("Names() = %v", custom.Names())
	}

	os.WriteFile(path, []byte(`{}`), 0644)
	if _, err := Load(path); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Load() malformed error = %v, want ErrValidation", err)
	}
}
