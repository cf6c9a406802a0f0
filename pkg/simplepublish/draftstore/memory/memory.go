package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Store implements simplepublish.DraftStore in memory.
// Drafts are copied on the way in and out.
type Store struct {
	mu     sync.RWMutex
	drafts map[string]*simplepublish.SubmissionDraft
}

// New creates an empty in-memory draft store
func New() *Store {
	return &Store{drafts: make(map[string]*simplepublish.SubmissionDraft)}
}

func (s *Store) Get(ctx context.Context, key string) (*simplepublish.SubmissionDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[key]
	if !ok {
		return nil, simplepublish.ErrDraftNotFound
	}
	return draft.Clone(), nil
}

func (s *Store) Set(ctx context.Context, draft *simplepublish.SubmissionDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[draft.Key] = draft.Clone()
	return nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, key)
	return nil
}

// Len returns the number of stored drafts
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}
