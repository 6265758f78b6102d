package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is the read/write surface consumers program against.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop their expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries out of registered caches.
type Manager struct {
	caches  []Cleaner
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Register adds a cache to the sweep. Call before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup begins the periodic sweep.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.DebugContext(context.Background(), "Swept expired cache entries", "count", cleaned)
			}
		case <-m.stopCh:
			return
		}
	}
}

// Stop ends the sweep and waits for it to finish. Safe to call when the
// sweep never started.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	close(m.stopCh)
	<-m.doneCh
}
