package forecast

import "sync"

// sourceLocks hands out one mutex per source id.
type sourceLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// lock acquires the source's mutex and returns its unlock function.
func (l *sourceLocks) lock(sourceID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[sourceID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sourceID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
