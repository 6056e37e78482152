package app

import "sync"

// sessionLocks hands out one mutex per session so lifecycle operations for
// the same session never interleave, while different sessions proceed
// independently. Locks are never evicted; a finished session's mutex is a
// few bytes and sessions are short-lived relative to the process.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the session's mutex and returns the unlock function.
func (l *sessionLocks) acquire(sessionID string) func() {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
