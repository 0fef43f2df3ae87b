package drift

import (
	"reflect"
	"testing"
)

func TestHasObligation(t *testing.T) {
	tests := []struct {
		sentence string
		want     bool
	}{
		{"You must use PostgreSQL for storage", true},
		{"The API should return JSON", true},
		{"We need to support pagination", true},
		{"It needs to handle retries", true},
		{"Make sure errors are logged", true},
		{"Don't commit secrets", true},
		{"Never store plaintext passwords", true},
		{"Avoid global state", true},
		{"The weather is nice today", false},
		{"I refactored the parser", false},
	}

	for _, tt := range tests {
		if got := hasObligation(tt.sentence); got != tt.want {
			t.Errorf("hasObligation(%q) = %v, want %v", tt.sentence, got, tt.want)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "terminal punctuation",
			text: "First part. Second part! Third?",
			want: []string{"First part", "Second part", "Third"},
		},
		{
			name: "newlines split",
			text: "line one\nline two",
			want: []string{"line one", "line two"},
		},
		{
			name: "trailing remainder kept",
			text: "no terminator here",
			want: []string{"no terminator here"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only fragments dropped",
			text: "...  ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSentences(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("Use the PostgreSQL-backed store, the store is fast", 3)
	want := []string{"postgresql", "backed", "store", "fast"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractKeywords() = %v, want %v", got, want)
	}
}

func TestThemesIn(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "database vocabulary", text: "the sqlite table schema changed", want: []string{"database"}},
		{name: "no vocabulary", text: "the quick brown fox", want: nil},
		{name: "substring does not match", text: "the testament was long", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := themesIn(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("themesIn(%q) = %v, want themes %v", tt.text, got, tt.want)
			}
			for _, theme := range tt.want {
				if _, ok := got[theme]; !ok {
					t.Errorf("themesIn(%q) missing theme %q", tt.text, theme)
				}
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	set := func(items ...string) map[string]struct{} {
		m := make(map[string]struct{})
		for _, s := range items {
			m[s] = struct{}{}
		}
		return m
	}

	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{name: "both empty", a: set(), b: set(), want: 1},
		{name: "identical", a: set("api", "testing"), b: set("api", "testing"), want: 1},
		{name: "disjoint", a: set("api"), b: set("database"), want: 0},
		{name: "half overlap", a: set("api", "testing"), b: set("api"), want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jaccard(tt.a, tt.b); got != tt.want {
				t.Errorf("jaccard() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContradictionTemplates_SubjectCapture(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		earlier string
		later   string
		wantE   string
		wantL   string
	}{
		{
			name:    "replacement",
			tmpl:    "replacement",
			earlier: "We will use Redis for caching",
			later:   "Let's use Memcached instead",
			wantE:   "Redis",
			wantL:   "Memcached",
		},
		{
			name:    "reversal",
			tmpl:    "reversal",
			earlier: "We decided on GraphQL",
			later:   "I switched to REST",
			wantE:   "GraphQL",
			wantL:   "REST",
		},
		{
			name:    "polarity",
			tmpl:    "polarity",
			earlier: "Always validate uploads",
			later:   "Never trust uploads",
			wantE:   "validate uploads",
			wantL:   "trust uploads",
		},
	}

	byName := make(map[string]contradictionTemplate)
	for _, tmpl := range contradictionTemplates {
		byName[tmpl.name] = tmpl
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, ok := byName[tt.tmpl]
			if !ok {
				t.Fatalf("template %q not found", tt.tmpl)
			}
			em := tmpl.earlier.FindStringSubmatch(tt.earlier)
			if em == nil || em[1] != tt.wantE {
				t.Errorf("earlier capture = %v, want %q", em, tt.wantE)
			}
			lm := tmpl.later.FindStringSubmatch(tt.later)
			if lm == nil || lm[1] != tt.wantL {
				t.Errorf("later capture = %v, want %q", lm, tt.wantL)
			}
		})
	}
}
