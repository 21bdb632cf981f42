package redis

import (
	"context"
	"sync"
	"time"

	"quizzz-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// DraftStore is a Redis-aware implementation of app.DraftRepository.
// Notes:
//   - Drafts stay in a local in-memory map so the in-process subscriber
//     broadcast keeps working.
//   - Redis marks draft liveness per owner (and could be extended to share
//     snapshots or route cross-instance pub/sub).
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	drafts map[string]*app.Draft
}

func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{
		client: client,
		ttl:    ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(ownerID), "1", s.ttl).Err()
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
	if _, ok := s.drafts[ownerID]; !ok {
		return
	}
	delete(s.drafts, ownerID)
	_ = s.client.Del(context.Background(), s.key(ownerID)).Err()
}

func (s *DraftStore) key(ownerID string) string {
	return "draft:session:" + ownerID
}
