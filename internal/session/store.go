package session

import "sync"

// Store maps user IDs to their active session.
//
// The map is guarded by a short-held RWMutex. Callers that need a
// read-check-write sequence for one user take that user's lock with Lock,
// so two events for the same user never interleave while events for
// different users proceed in parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]GameSession

	locksMu sync.Mutex
	locks   map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]GameSession),
		locks:    make(map[int64]*userLock),
	}
}

// Create stores s as the user's session, replacing any unfinished game.
func (st *Store) Create(userID int64, s GameSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[userID] = s
}

// Get returns a copy of the user's session.
func (st *Store) Get(userID int64) (GameSession, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[userID]
	return s, ok
}

// Put overwrites an existing session. It is a no-op if the user has none,
// so a game removed concurrently is not resurrected.
func (st *Store) Put(userID int64, s GameSession) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[userID]; !ok {
		return false
	}
	st.sessions[userID] = s
	return true
}

// Remove deletes the user's session.
func (st *Store) Remove(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}

// Len returns the number of active sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Outcome tells Update what to do with the session after fn returns.
type Outcome int

const (
	Keep Outcome = iota
	Drop
)

// Update runs fn on the user's session while holding the user's lock and
// then stores or removes it according to the returned Outcome. It returns
// false without calling fn when the user has no session.
func (st *Store) Update(userID int64, fn func(*GameSession) Outcome) bool {
	unlock := st.Lock(userID)
	defer unlock()

	s, ok := st.Get(userID)
	if !ok {
		return false
	}

	switch fn(&s) {
	case Drop:
		st.Remove(userID)
	default:
		st.Put(userID, s)
	}
	return true
}

// Lock acquires the per-user lock and returns its release function.
// Lock entries are reference counted and dropped once nobody holds or
// waits for them.
func (st *Store) Lock(userID int64) (unlock func()) {
	st.locksMu.Lock()
	l, ok := st.locks[userID]
	if !ok {
		l = &userLock{}
		st.locks[userID] = l
	}
	l.refs++
	st.locksMu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			st.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(st.locks, userID)
			}
			st.locksMu.Unlock()
		})
	}
}

func (st *Store) lockCount() int {
	st.locksMu.Lock()
	defer st.locksMu.Unlock()
	return len(st.locks)
}
