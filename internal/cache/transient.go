// Package cache holds short-lived, per-session state that must not outlive an authorization round-trip.
package cache

import (
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/desertthunder/mixlink/internal/models"
)

// DefaultTransactionTTL bounds how long a pending authorization may wait for its callback.
var DefaultTransactionTTL = 10 * time.Minute

// TransientStore keeps at most one pending [models.Transaction] per session.
//
// Entries expire after the configured TTL; Take is a read-and-erase so a verifier is consumed at most once.
type TransientStore struct {
	c   *ccache.Cache[models.Transaction]
	ttl time.Duration
	mux sync.Mutex
	now func() time.Time
}

// NewTransientStore creates a store whose entries live for ttl (DefaultTransactionTTL when ttl <= 0).
func NewTransientStore(ttl time.Duration) *TransientStore {
	if ttl <= 0 {
		ttl = DefaultTransactionTTL
	}

	c := ccache.New(
		ccache.Configure[models.Transaction]().
			MaxSize(10_000).
			GetsPerPromote(3).
			PercentToPrune(10),
	)

	return &TransientStore{c: c, ttl: ttl, now: time.Now}
}

// Begin stores tx for sessionID, replacing any pending transaction.
func (s *TransientStore) Begin(sessionID string, tx models.Transaction) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	s.c.Set(sessionID, tx, s.ttl)
}

// Take returns the pending transaction for sessionID and erases it.
//
// An expired entry is erased and reported as absent.
func (s *TransientStore) Take(sessionID string) (models.Transaction, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()

	item := s.c.Get(sessionID)
	if item == nil {
		return models.Transaction{}, false
	}
	s.c.Delete(sessionID)

	if item.Expired() {
		return models.Transaction{}, false
	}
	return item.Value(), true
}

// Peek returns the pending transaction without consuming it.
func (s *TransientStore) Peek(sessionID string) (models.Transaction, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()

	item := s.c.Get(sessionID)
	if item == nil || item.Expired() {
		return models.Transaction{}, false
	}
	return item.Value(), true
}

// Clear drops any pending transaction for sessionID.
func (s *TransientStore) Clear(sessionID string) {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.c.Delete(sessionID)
}

// Len reports the number of stored entries, expired ones included.
func (s *TransientStore) Len() int {
	return s.c.ItemCount()
}

// Stop releases the cache's background worker.
func (s *TransientStore) Stop() {
	s.c.Stop()
}

var _ models.TransactionStore = (*TransientStore)(nil)
