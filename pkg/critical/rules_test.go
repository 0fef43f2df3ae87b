package critical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Type
	}{
		{name: "imperative modal", text: "We must always validate input before processing", want: TypeInstruction},
		{name: "prohibition", text: "Never push directly to main", want: TypeInstruction},
		{name: "emphasis marker", text: "Important: the cache key includes the tenant", want: TypeInstruction},
		{name: "decision verb", text: "We decided on PostgreSQL for persistence", want: TypeDecision},
		{name: "tool choice", text: "The team is going with sqlc for queries", want: TypeDecision},
		{name: "reversal", text: "I switched to table-driven tests here", want: TypeDecision},
		{name: "obligation", text: "The API should return JSON errors", want: TypeRequirement},
		{name: "necessity", text: "Exports have to finish within an hour", want: TypeRequirement},
		{name: "requirement noun", text: "TLS termination is a hard requirement", want: TypeRequirement},
		{name: "plain prose", text: "The weather is nice today", want: TypeCustom},
		{name: "instruction outranks decision", text: "We decided this must be checked twice", want: TypeInstruction},
		{name: "decision outranks requirement", text: "We chose the queue that should scale", want: TypeDecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.text))
		})
	}
}

func TestIsCriticalText(t *testing.T) {
	assert.True(t, IsCriticalText("Make sure backups run nightly"))
	assert.True(t, IsCriticalText("We selected gRPC for internal calls"))
	assert.False(t, IsCriticalText("Just chatting about the refactor"))
	assert.False(t, IsCriticalText(""))
}

func TestExtractCandidates(t *testing.T) {
	text := "The weather is nice. We decided on PostgreSQL. You must run migrations first. Nothing else matters here."

	got := ExtractCandidates(text)

	require.Len(t, got, 2)
	assert.Equal(t, "We decided on PostgreSQL", got[0].Content)
	assert.Equal(t, TypeDecision, got[0].Type)
	assert.Equal(t, "You must run migrations first", got[1].Content)
	assert.Equal(t, TypeInstruction, got[1].Type)
}

func TestExtractCandidates_NoMatches(t *testing.T) {
	assert.Empty(t, ExtractCandidates("Plain sentence one. Plain sentence two."))
	assert.Empty(t, ExtractCandidates(""))
}
