package memory

import (
	"sync"

	"quizzz-service/internal/app"
)

// DraftStore is an in-memory implementation of app.DraftRepository, keyed by
// owner: each user session works on exactly one draft.
type DraftStore struct {
	mu     sync.RWMutex
	drafts map[string]*app.Draft
}

func NewDraftStore() *DraftStore {
	return &DraftStore{
		drafts: make(map[string]*app.Draft),
	}
}

func (s *DraftStore) GetOrCreate(ownerID string) *app.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	if draft, ok := s.drafts[ownerID]; ok {
		return draft
	}
	draft := app.NewDraft(ownerID)
	s.drafts[ownerID] = draft
	return draft
}

func (s *DraftStore) Get(ownerID string) (*app.Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[ownerID]
	return draft, ok
}

func (s *DraftStore) Delete(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, ownerID)
}
