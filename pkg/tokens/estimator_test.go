package tokens

import (
	"errors"
	"strings"
	"testing"
)

func TestHeuristicEstimate(t *testing.T) {
	est := NewDefaultEstimator()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "single char rounds up", text: "a", want: 1},
		{name: "exact multiple", text: "abcd", want: 1},
		{name: "partial second token", text: "abcde", want: 2},
		{name: "two tokens", text: "abcdefgh", want: 2},
		{name: "hundred chars", text: strings.Repeat("x", 100), want: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := est.Estimate(tt.text)
			if got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestHeuristicEstimateDeterministic(t *testing.T) {
	est := NewDefaultEstimator()
	text := "The quick brown fox jumps over the lazy dog."

	first := est.Estimate(text)
	for i := 0; i < 10; i++ {
		if got := est.Estimate(text); got != first {
			t.Fatalf("estimate changed between calls: %d then %d", first, got)
		}
	}
}

func TestHeuristicEstimateMonotonic(t *testing.T) {
	est := NewDefaultEstimator()
	text := strings.Repeat("context budget accounting ", 20)

	prev := 0
	for i := 0; i <= len(text); i++ {
		got := est.Estimate(text[:i])
		if got < prev {
			t.Fatalf("estimate decreased at length %d: %d < %d", i, got, prev)
		}
		prev = got
	}
}

func TestNewHeuristicEstimatorValidation(t *testing.T) {
	tests := []struct {
		name  string
		ratio int
		valid bool
	}{
		{name: "positive", ratio: 4, valid: true},
		{name: "one", ratio: 1, valid: true},
		{name: "zero", ratio: 0, valid: false},
		{name: "negative", ratio: -3, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := NewHeuristicEstimator(tt.ratio)
			if tt.valid {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if est == nil {
					t.Fatal("expected estimator, got nil")
				}
				return
			}
			if err == nil {
				t.Fatal("expected error for invalid ratio")
			}
			if !errors.Is(err, ErrInvalidRatio) {
				t.Errorf("expected ErrInvalidRatio, got %v", err)
			}
		})
	}
}

func TestHeuristicEstimateCustomRatio(t *testing.T) {
	est, err := NewHeuristicEstimator(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := est.Estimate("abcdef"); got != 3 {
		t.Errorf("Estimate with ratio 2 = %d, want 3", got)
	}
}

func TestBPEEstimatorFallback(t *testing.T) {
	// Zero-value estimator has no codec: must defer to the heuristic.
	var est BPEEstimator
	text := "fallback path exercises the heuristic ratio"

	want := NewDefaultEstimator().Estimate(text)
	if got := est.Estimate(text); got != want {
		t.Errorf("fallback Estimate = %d, want heuristic %d", got, want)
	}
}

func TestBPEEstimator(t *testing.T) {
	est, err := NewBPEEstimator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := est.Estimate(""); got != 0 {
		t.Errorf("Estimate(empty) = %d, want 0", got)
	}

	text := "Use PostgreSQL for persistence."
	first := est.Estimate(text)
	if first <= 0 {
		t.Fatalf("Estimate(%q) = %d, want > 0", text, first)
	}
	if second := est.Estimate(text); second != first {
		t.Errorf("estimate not deterministic: %d then %d", first, second)
	}
}
