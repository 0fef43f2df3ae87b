package critical

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Persister records pinned items durably. Implementations must be safe for
// concurrent use.
type Persister interface {
	SaveCritical(ctx context.Context, item Item) error
	DeleteCritical(ctx context.Context, id string) error
	ListCritical(ctx context.Context) ([]Item, error)
}

// Store holds the pinned items for one session. In-memory state is the
// source of truth; the persister is a write-through backend whose failures
// are logged and swallowed so pinned items stay protected when storage is
// unavailable.
type Store struct {
	mu    sync.RWMutex
	items []Item

	persister Persister
	logger    *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPersister attaches a durable backend. Mark and Remove write through
// to it.
func WithPersister(p Persister) StoreOption {
	return func(s *Store) { s.persister = p }
}

// WithLogger sets the logger used when persistence fails. A nil logger is
// replaced with a no-op.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load hydrates the store from its persister. Callers decide whether a
// load failure is fatal; the in-memory store works either way.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	items, err := s.persister.ListCritical(ctx)
	if err != nil {
		return fmt.Errorf("failed to load critical context: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	return nil
}

// Mark pins content. When no explicit type is given the classifier rules
// infer one. NeverCompress defaults to true.
func (s *Store) Mark(ctx context.Context, content string, opts ...MarkOption) (Item, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Item{}, ErrEmptyContent
	}

	o := markOptions{neverCompress: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.typ == "" {
		o.typ = InferType(content)
	} else if !o.typ.IsValid() {
		return Item{}, fmt.Errorf("%w: %q", ErrInvalidType, o.typ)
	}

	item := Item{
		ID:            "cc_" + uuid.New().String()[:8],
		Type:          o.typ,
		Content:       content,
		Reason:        o.reason,
		Source:        o.source,
		CreatedAt:     time.Now(),
		NeverCompress: o.neverCompress,
	}

	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.SaveCritical(ctx, item); err != nil {
			s.logger.Warn("critical context persistence failed",
				zap.String("id", item.ID),
				zap.String("type", string(item.Type)),
				zap.Error(err))
		}
	}
	return item, nil
}

// IsCritical reports whether text matches the classifier rules.
func (s *Store) IsCritical(text string) bool {
	return IsCriticalText(text)
}

// ExtractFromText returns the sentences of text that match the classifier
// rules, tagged with their inferred types.
func (s *Store) ExtractFromText(text string) []Candidate {
	return ExtractCandidates(text)
}

// List returns pinned items newest first. A zero filter returns all types.
func (s *Store) List(filter Type) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		if filter != "" && s.items[i].Type != filter {
			continue
		}
		out = append(out, s.items[i])
	}
	return out
}

// RecentContent returns the content of the newest pinned items, capped at
// limit. It feeds drift reminders.
func (s *Store) RecentContent(limit int) []string {
	items := s.List("")
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Content
	}
	return out
}

// Len returns the number of pinned items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Remove deletes a pinned item by ID, reporting whether it existed.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if found && s.persister != nil {
		if err := s.persister.DeleteCritical(ctx, id); err != nil {
			s.logger.Warn("critical context deletion not persisted",
				zap.String("id", id),
				zap.Error(err))
		}
	}
	return found
}

// FormatContext renders every pinned item into a grouped block suitable
// for direct inclusion in a prompt. Empty groups are omitted.
func (s *Store) FormatContext() string {
	items := s.List("")
	if len(items) == 0 {
		return ""
	}

	groups := make(map[Type][]Item, 4)
	for _, item := range items {
		groups[item.Type] = append(groups[item.Type], item)
	}

	var b strings.Builder
	writeGroup := func(header string, typ Type) {
		list := groups[typ]
		if len(list) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(header)
		b.WriteString(":\n")
		for _, item := range list {
			b.WriteString("- ")
			b.WriteString(item.Content)
			if item.Reason != "" {
				b.WriteString(" (")
				b.WriteString(item.Reason)
				b.WriteByte(')')
			}
			b.WriteByte('\n')
		}
	}

	writeGroup("DECISIONS", TypeDecision)
	writeGroup("REQUIREMENTS", TypeRequirement)
	writeGroup("INSTRUCTIONS", TypeInstruction)
	writeGroup("OTHER", TypeCustom)
	return strings.TrimSuffix(b.String(), "\n")
}
