package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nconklindev/sift/internal/logger"
)

// Session is one user's set of files. It is not safe for concurrent use;
// the Store serializes access per session.
type Session struct {
	ID       string
	Created  time.Time
	LastSeen time.Time

	files []*FileState
}

func New() *Session {
	now := time.Now()
	return &Session{
		ID:       uuid.NewString(),
		Created:  now,
		LastSeen: now,
	}
}

// Add parses each upload in order and appends it to the session. Files that
// fail to parse are kept in the failed stage.
func (s *Session) Add(uploads ...Upload) []*FileState {
	added := make([]*FileState, 0, len(uploads))
	for _, up := range uploads {
		fs := NewFileState(up)
		s.files = append(s.files, fs)
		added = append(added, fs)
	}
	return added
}

// Attach appends a file parsed elsewhere, such as in a background command.
func (s *Session) Attach(fs *FileState) {
	s.files = append(s.files, fs)
}

func (s *Session) Files() []*FileState {
	return s.files
}

func (s *Session) File(id string) (*FileState, error) {
	for _, fs := range s.files {
		if fs.ID == id {
			return fs, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
}

func (s *Session) Remove(id string) error {
	for i, fs := range s.files {
		if fs.ID == id {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFileNotFound, id)
}

// Dispatch applies ev to the file with the given id.
func (s *Session) Dispatch(id string, ev Event) (*FileState, error) {
	fs, err := s.File(id)
	if err != nil {
		return nil, err
	}
	if err := fs.Apply(ev); err != nil {
		return fs, err
	}
	return fs, nil
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// Store keeps live sessions in memory. Sessions idle for longer than ttl
// are dropped the next time the store is touched.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	max      int
	now      func() time.Time
}

func NewStore(ttl time.Duration, maxSessions int) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		max:      maxSessions,
		now:      time.Now,
	}
}

// Create starts a new session, evicting the least recently used one when
// the store is full.
func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sweepLocked()

	if st.max > 0 && len(st.sessions) >= st.max {
		var oldest *entry
		for _, e := range st.sessions {
			if oldest == nil || e.session.LastSeen.Before(oldest.session.LastSeen) {
				oldest = e
			}
		}
		delete(st.sessions, oldest.session.ID)
		logger.Info("session evicted", "session", oldest.session.ID, "reason", "capacity")
	}

	s := New()
	s.Created = st.now()
	s.LastSeen = s.Created
	st.sessions[s.ID] = &entry{session: s}

	logger.Debug("session created", "session", s.ID)
	return s
}

// With runs fn while holding the session's lock.
func (st *Store) With(id string, fn func(*Session) error) error {
	st.mu.Lock()
	st.sweepLocked()
	e, ok := st.sessions[id]
	if ok {
		e.session.LastSeen = st.now()
	}
	st.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(st.sessions, id)
	logger.Debug("session deleted", "session", id)
	return nil
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) sweepLocked() {
	if st.ttl <= 0 {
		return
	}
	cutoff := st.now().Add(-st.ttl)
	for id, e := range st.sessions {
		if e.session.LastSeen.Before(cutoff) {
			delete(st.sessions, id)
			logger.Info("session expired", "session", id)
		}
	}
}
