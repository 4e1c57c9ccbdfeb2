package document

import (
	"context"
	"sync"
	"time"

	"scenario-writing-lab/internal/config"
)

// MemoryStore keeps documents in process memory. A single lock serializes
// writes so each Update is a read-modify-write without interleaving.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]ScriptDocument
	now   func() time.Time
	newID func() string
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithIDGenerator overrides document id generation.
func WithIDGenerator(newID func() string) MemoryOption {
	return func(s *MemoryStore) { s.newID = newID }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		docs:  make(map[string]ScriptDocument),
		now:   time.Now,
		newID: NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Backend() string {
	return config.BackendMemory
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]ScriptDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ScriptDocument, 0)
	for _, doc := range s.docs {
		if doc.OwnerID == ownerID {
			out = append(out, doc.Clone())
		}
	}
	sortByUpdatedDesc(out)
	return out, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*ScriptDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := doc.Clone()
	return &out, nil
}

func (s *MemoryStore) Create(_ context.Context, ownerID string, input CreateInput) (*ScriptDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for _, taken := s.docs[id]; taken; _, taken = s.docs[id] {
		id = s.newID()
	}

	doc := NewDocument(id, ownerID, input, s.now())
	s.docs[id] = doc
	out := doc.Clone()
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch Patch) (*ScriptDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != current.Version {
		return nil, ErrVersionConflict
	}

	next := patch.Apply(current, s.now())
	s.docs[id] = next
	out := next.Clone()
	return &out, nil
}
