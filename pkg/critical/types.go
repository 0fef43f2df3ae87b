package critical

import "time"

// Type categorizes a pinned item.
type Type string

const (
	TypeDecision    Type = "decision"
	TypeRequirement Type = "requirement"
	TypeInstruction Type = "instruction"
	TypeCustom      Type = "custom"
)

// IsValid reports whether t is a known pinned-item type.
func (t Type) IsValid() bool {
	switch t {
	case TypeDecision, TypeRequirement, TypeInstruction, TypeCustom:
		return true
	}
	return false
}

// Item is a permanently pinned piece of context, independent of the chunk
// collection. When NeverCompress is true no compaction strategy may remove,
// summarize, or alter it.
type Item struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	Content       string    `json:"content"`
	Reason        string    `json:"reason,omitempty"`
	Source        string    `json:"source,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	NeverCompress bool      `json:"never_compress"`
}

// Candidate is a sentence extracted from free text together with its
// inferred type. It has not been pinned yet.
type Candidate struct {
	Content string `json:"content"`
	Type    Type   `json:"type"`
}

// MarkOption customizes a Mark call.
type MarkOption func(*markOptions)

type markOptions struct {
	typ           Type
	reason        string
	source        string
	neverCompress bool
}

// WithType sets the item type explicitly, skipping inference.
func WithType(t Type) MarkOption {
	return func(o *markOptions) { o.typ = t }
}

// WithReason records why the item was pinned.
func WithReason(reason string) MarkOption {
	return func(o *markOptions) { o.reason = reason }
}

// WithSource records where the item came from.
func WithSource(source string) MarkOption {
	return func(o *markOptions) { o.source = source }
}

// WithNeverCompress overrides the default protection flag. Passing false
// pins the item for retrieval but lets compaction treat mirrored chunks
// normally.
func WithNeverCompress(v bool) MarkOption {
	return func(o *markOptions) { o.neverCompress = v }
}
