package repository

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"pdf-annotator/internal/domain"
	"pdf-annotator/internal/render"
	"pdf-annotator/internal/store"
)

// Session is one loaded source document and its annotation store.
// The embedded mutex guards Store and LastPreview; Source and Info are
// immutable after creation.
type Session struct {
	sync.Mutex

	ID        string
	Info      domain.DocumentInfo
	Source    []byte
	Store     *store.Store
	Renders   *render.Scheduler
	CreatedAt time.Time

	// LastPreview is the most recent preview render of store version
	// PreviewVersion. It is replaced, not mutated, when a newer render
	// completes.
	LastPreview    *render.Result
	PreviewVersion uint64
}

// SessionRepository keeps sessions in memory. Sessions do not survive a
// restart.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    clockwork.Clock
	logger   domain.Logger
}

func NewSessionRepository(clock clockwork.Clock, logger domain.Logger) *SessionRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionRepository{
		sessions: make(map[string]*Session),
		clock:    clock,
		logger:   logger,
	}
}

// Create stores a new session for source. The session starts with an
// empty, loaded store.
func (r *SessionRepository) Create(id string, info domain.DocumentInfo, source []byte) *Session {
	st := store.New()
	st.Reset()

	s := &Session{
		ID:        id,
		Info:      info,
		Source:    source,
		Store:     st,
		Renders:   render.NewScheduler(),
		CreatedAt: r.clock.Now(),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Debug("Session created", "session_id", id, "bytes", len(source))
	return s
}

func (r *SessionRepository) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (r *SessionRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (r *SessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// PurgeOlderThan deletes sessions created more than maxAge ago and
// returns how many were removed.
func (r *SessionRepository) PurgeOlderThan(maxAge time.Duration) int {
	cutoff := r.clock.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	if n > 0 {
		r.logger.Info("Purged expired sessions", "count", n)
	}
	return n
}
