package compaction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

func TestSummarize_EmptyInput(t *testing.T) {
	s := NewSummarizer(DefaultConfig())
	assert.Nil(t, s.Summarize(nil))
	assert.Nil(t, s.Summarize([]health.Chunk{}))
}

func TestSummarize_GroupsByTypeInFirstSeenOrder(t *testing.T) {
	s := NewSummarizer(DefaultConfig())

	chunks := []health.Chunk{
		health.NewChunk("The handler validates request payloads before dispatch.", 14, health.ChunkTypeCode, 0.4, false),
		health.NewChunk("We talked through the rollout sequencing at standup.", 13, health.ChunkTypeMessage, 0.4, false),
		health.NewChunk("The handler also normalizes header casing on ingress.", 13, health.ChunkTypeCode, 0.4, false),
	}

	got := s.Summarize(chunks)

	require.Len(t, got, 2)
	assert.Equal(t, health.ChunkTypeCode, got[0].Type)
	assert.True(t, strings.HasPrefix(got[0].Text, "[Summary - code] "), "got %q", got[0].Text)
	assert.Equal(t, health.ChunkTypeMessage, got[1].Type)
	assert.True(t, strings.HasPrefix(got[1].Text, "[Summary - message] "), "got %q", got[1].Text)
}

func TestSummarize_SelectsTopSentencesInOriginalOrder(t *testing.T) {
	s := NewSummarizer(DefaultConfig())

	content := strings.Join([]string{
		"We decided on PostgreSQL for the primary persistence layer.",
		"The cache warms lazily.",
		"Call loadConfig() before the server starts accepting traffic.",
		"It rained all day yesterday in the hills far away.",
	}, " ")

	got := s.Summarize([]health.Chunk{
		health.NewChunk(content, 60, health.ChunkTypeMessage, 0.4, false),
	})

	require.Len(t, got, 1)
	text := got[0].Text

	// The three highest scoring sentences survive, the flat one does not.
	assert.Contains(t, text, "We decided on PostgreSQL")
	assert.Contains(t, text, "loadConfig()")
	assert.Contains(t, text, "It rained all day")
	assert.NotContains(t, text, "cache warms")

	// Selected sentences keep their original relative order.
	decidedAt := strings.Index(text, "We decided")
	callAt := strings.Index(text, "Call loadConfig")
	rainedAt := strings.Index(text, "It rained")
	assert.True(t, decidedAt < callAt && callAt < rainedAt, "order wrong: %q", text)
}

func TestSummarize_FewSentencesKeptWhole(t *testing.T) {
	s := NewSummarizer(DefaultConfig())

	got := s.Summarize([]health.Chunk{
		health.NewChunk("Only one meaningful sentence lives here.", 10, health.ChunkTypeDecision, 0.4, false),
	})

	require.Len(t, got, 1)
	assert.Equal(t, "[Summary - decision] Only one meaningful sentence lives here.", got[0].Text)
}

func TestSummarize_DropsGroupsWithoutUsableSentences(t *testing.T) {
	s := NewSummarizer(DefaultConfig())

	got := s.Summarize([]health.Chunk{
		health.NewChunk("ok", 1, health.ChunkTypeMessage, 0.4, false),
	})
	assert.Empty(t, got)
}

func TestSummarize_Deterministic(t *testing.T) {
	s := NewSummarizer(DefaultConfig())
	chunks := []health.Chunk{
		health.NewChunk("The scheduler must drain its queue before shutdown. Retries use jittered backoff. The dead letter path logs every drop. Metrics flow through the usual pipeline here.", 40, health.ChunkTypeMessage, 0.4, false),
	}

	first := s.Summarize(chunks)
	second := s.Summarize(chunks)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Text, second[0].Text)
}

func TestScoreSentence_Weights(t *testing.T) {
	s := NewSummarizer(DefaultConfig())

	tests := []struct {
		name     string
		sentence string
		want     float64
	}{
		{name: "sweet spot length only", sentence: "one two three four five six", want: 1.0},
		{name: "too short", sentence: "tiny", want: 0},
		{name: "length plus obligation vocabulary", sentence: "we must finish this migration soon", want: 1.5},
		{name: "length plus technical marker", sentence: "invoke parseArgs before anything else runs", want: 1.3},
		{name: "technical marker only", sentence: "loadConfig()", want: 0.3},
		{name: "everything", sentence: "we decided the worker should call fetchBatch() hourly", want: 1.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.scoreSentence(tt.sentence), 1e-9)
		})
	}
}

func TestSplitIntoSentences_MergesShortFragments(t *testing.T) {
	s := NewSummarizer(DefaultConfig())

	got := s.splitIntoSentences("Hi. This is a proper sentence. ok")

	// "Hi." is too short to stand alone and accumulates into the next
	// sentence; the trailing fragment is below the minimum and dropped.
	require.Len(t, got, 1)
	assert.Equal(t, "Hi. This is a proper sentence.", got[0])
}
