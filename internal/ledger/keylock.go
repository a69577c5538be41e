package ledger

import "sync"

// KeyLock serializes read-modify-write cycles per entity key. The store's
// operations are only atomic per call, so a punch transition (read record,
// validate, write back) needs exclusive access to its (user, day) key, and
// must never block operations on unrelated keys.
//
// Locks are created on first use and kept for the process lifetime; the key
// space (staff x days, assets) is small enough that eviction isn't worth the
// bookkeeping.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the given key and returns the release function.
//
//	release := locks.Acquire(key)
//	defer release()
func (l *KeyLock) Acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
