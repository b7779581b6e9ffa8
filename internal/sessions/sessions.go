// Package sessions provides per-user session state: bounded request
// history, last detected role, and the idempotency cache that makes
// request replays return their original response.
package sessions

import (
	"sort"
	"sync"
	"time"

	"github.com/courtside/courtside/pkg/models"
)

// Store is the session persistence surface the orchestrator depends on.
type Store interface {
	// GetOrCreate returns the session for userID, creating it on first use.
	GetOrCreate(userID string) models.Session

	// Get returns a copy of the session for userID, if one exists.
	Get(userID string) (models.Session, bool)

	// CachedResponse returns the stored response for (userID, requestID) if
	// the request was already completed.
	CachedResponse(userID, requestID string) (*models.AnalyticsResponse, bool)

	// Record stores a completed response: it caches it under its RequestID
	// (first write wins), appends it to the history ring, and updates the
	// session's last role. historyLimit bounds the ring.
	Record(userID string, resp models.AnalyticsResponse, role models.Role, historyLimit int)

	// Delete removes the session for userID.
	Delete(userID string)

	// List returns copies of all sessions ordered by user ID.
	List() []models.Session
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
	}
}

func (s *MemoryStore) GetOrCreate(userID string) models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotLocked(s.getOrCreateLocked(userID))
}

func (s *MemoryStore) getOrCreateLocked(userID string) *models.Session {
	sess, ok := s.sessions[userID]
	if !ok {
		ts := s.now().UTC()
		sess = &models.Session{
			UserID:    userID,
			Cache:     make(map[string]*models.AnalyticsResponse),
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		s.sessions[userID] = sess
	}
	return sess
}

func (s *MemoryStore) Get(userID string) (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return models.Session{}, false
	}
	return snapshotLocked(sess), true
}

func (s *MemoryStore) CachedResponse(userID, requestID string) (*models.AnalyticsResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	resp, ok := sess.Cache[requestID]
	return resp, ok
}

func (s *MemoryStore) Record(userID string, resp models.AnalyticsResponse, role models.Role, historyLimit int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(userID)

	// First write wins: a concurrent or replayed completion never
	// overwrites the response already stored for this RequestID.
	if _, exists := sess.Cache[resp.RequestID]; !exists {
		stored := resp
		sess.Cache[resp.RequestID] = &stored
	}

	sess.AppendHistory(resp, historyLimit)
	if role.Valid() {
		sess.LastRole = role
	}
	sess.UpdatedAt = s.now().UTC()
}

func (s *MemoryStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *MemoryStore) List() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, snapshotLocked(sess))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// snapshotLocked copies a session for handing out: history and cache get
// their own backing storage so callers cannot mutate store state from
// outside the lock.
func snapshotLocked(sess *models.Session) models.Session {
	out := *sess
	out.History = append([]models.AnalyticsResponse(nil), sess.History...)
	out.Cache = make(map[string]*models.AnalyticsResponse, len(sess.Cache))
	for id, resp := range sess.Cache {
		out.Cache[id] = resp
	}
	return out
}
