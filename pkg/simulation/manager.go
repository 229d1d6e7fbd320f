package simulation

import (
	"sync"

	"github.com/raykavin/tradesim/pkg/core"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/metric"
	"github.com/samber/lo"
)

// Manager tracks the live sessions of a process
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	onRemove []func(id string)
	log      logger.Logger
	metrics  *metric.Collector
}

func NewManager(log logger.Logger, metrics *metric.Collector) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		log:      log,
		metrics:  metrics,
	}
}

// OnRemove registers a callback run after a session is deleted
func (m *Manager) OnRemove(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemove = append(m.onRemove, fn)
}

// Add tracks session and returns its id
func (m *Manager) Add(session *Session) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := session.ID()
	if _, ok := m.sessions[id]; !ok {
		m.order = append(m.order, id)
	}
	m.sessions[id] = session
	m.metrics.SetSessions(len(m.sessions))
	m.log.WithField("session", id).Debug("session registered")

	return id
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return session, nil
}

// List returns the sessions in creation order
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		sessions = append(sessions, m.sessions[id])
	}
	return sessions
}

// Delete disposes the session and forgets it
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return core.ErrNotFound
	}
	delete(m.sessions, id)
	m.order = lo.Without(m.order, id)
	callbacks := append([]func(string){}, m.onRemove...)
	m.metrics.SetSessions(len(m.sessions))
	m.mu.Unlock()

	session.Dispose()
	for _, fn := range callbacks {
		fn(id)
	}
	return nil
}

// Close disposes every session
func (m *Manager) Close() {
	for _, session := range m.List() {
		_ = m.Delete(session.ID())
	}
}
