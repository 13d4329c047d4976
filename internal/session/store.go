package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested session does not exist.
var ErrNotFound = errors.New("session not found")

// Store holds live sessions in process memory, keyed by id. Sessions are
// not persisted; a restart starts everyone over.
//
// Store is safe for concurrent use. Each session additionally carries its
// own turn lock so concurrent requests against one session serialize
// instead of interleaving transcript writes.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
	cfg      Config
}

type entry struct {
	session *Session
	turnMu  sync.Mutex
}

// NewStore creates an empty store. cfg is the template every created
// session is built from.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Store{
		sessions: map[uuid.UUID]*entry{},
		cfg:      cfg,
	}, nil
}

// Create builds a fresh session and registers it.
func (st *Store) Create() (*Session, error) {
	s, err := New(st.cfg)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	st.sessions[s.ID()] = &entry{session: s}
	st.mu.Unlock()
	return s, nil
}

// Get returns the session with the given id.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	e, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.session, nil
}

// WithTurnLock runs fn while holding the session's turn lock, serializing
// concurrent requests against the same conversation.
func (st *Store) WithTurnLock(id uuid.UUID, fn func(*Session) error) error {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	e.turnMu.Lock()
	defer e.turnMu.Unlock()
	return fn(e.session)
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// PurgeIdle drops sessions with no activity for at least maxIdle and
// returns how many were removed.
func (st *Store) PurgeIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, e := range st.sessions {
		if e.session.LastActive().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
