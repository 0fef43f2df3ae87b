package tokens

import (
	"errors"
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// DefaultCharsPerToken is the reference heuristic ratio: roughly four
// characters of English/source text per token.
const DefaultCharsPerToken = 4

// ErrInvalidRatio is returned when an estimator is configured with a
// non-positive characters-per-token ratio.
var ErrInvalidRatio = errors.New("chars-per-token ratio must be positive")

// Estimator converts text to an approximate token count. Implementations
// must be deterministic: the same input always yields the same count.
type Estimator interface {
	Estimate(text string) int
}

// HeuristicEstimator estimates tokens from text length using a fixed
// characters-per-token ratio. Counts round up so non-empty text never
// costs zero tokens; the estimate is monotonic in text length.
type HeuristicEstimator struct {
	charsPerToken int
}

// NewHeuristicEstimator creates an estimator with the given ratio.
func NewHeuristicEstimator(charsPerToken int) (*HeuristicEstimator, error) {
	if charsPerToken <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRatio, charsPerToken)
	}
	return &HeuristicEstimator{charsPerToken: charsPerToken}, nil
}

// NewDefaultEstimator returns a heuristic estimator with the reference
// ratio of DefaultCharsPerToken.
func NewDefaultEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{charsPerToken: DefaultCharsPerToken}
}

// Estimate returns the approximate token count for text.
func (e *HeuristicEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	ratio := e.charsPerToken
	if ratio <= 0 {
		ratio = DefaultCharsPerToken
	}
	return (len(text) + ratio - 1) / ratio
}

// BPEEstimator counts tokens with a byte-pair encoding codec. Encoding
// failures fall back to the heuristic so the estimator never errors at
// call time.
type BPEEstimator struct {
	codec    tokenizer.Codec
	fallback *HeuristicEstimator
}

// NewBPEEstimator creates a BPE estimator using the GPT-4 encoding, which
// approximates the tokenizers of current coding models closely enough for
// budget accounting.
func NewBPEEstimator() (*BPEEstimator, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to load BPE codec: %w", err)
	}
	return &BPEEstimator{
		codec:    codec,
		fallback: NewDefaultEstimator(),
	}, nil
}

// Estimate returns the BPE token count for text, or the heuristic estimate
// when the codec is unavailable or encoding fails.
func (e *BPEEstimator) Estimate(text string) int {
	if e.codec == nil {
		return e.fallbackEstimate(text)
	}
	count, err := e.codec.Count(text)
	if err != nil {
		return e.fallbackEstimate(text)
	}
	return count
}

func (e *BPEEstimator) fallbackEstimate(text string) int {
	if e.fallback == nil {
		return NewDefaultEstimator().Estimate(text)
	}
	return e.fallback.Estimate(text)
}
