package dispatch

import "sync"

// keyMutex serializes work per key while leaving different keys fully
// concurrent. Entries are kept for the process lifetime, like the session
// maps they guard.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the key's mutex and returns its unlock func.
func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
