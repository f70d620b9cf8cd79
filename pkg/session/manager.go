// Package session tracks live research agents in memory: the registry the
// HTTP layer resolves agent IDs against, and a janitor that reaps expired
// sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent"
)

// ErrNotFound is returned when no agent is registered under an ID.
var ErrNotFound = errors.New("agent not found")

// handle pairs an agent with the cancel function of its execution context,
// so an abandoned session can be cut loose.
type handle struct {
	agent  *agent.Agent
	cancel context.CancelFunc
}

// Manager is the in-memory registry of research sessions. Sessions stay
// registered after they finish so their state and final stream remain
// queryable; the janitor removes them later.
type Manager struct {
	mu     sync.RWMutex
	agents map[string]*handle
	order  []string // agent IDs in registration order
}

// NewManager creates an empty session registry.
func NewManager() *Manager {
	return &Manager{agents: make(map[string]*handle)}
}

// Register adds an agent under its ID. cancel, when non-nil, is invoked if
// the janitor reaps the session while it is still suspended.
func (m *Manager) Register(a *agent.Agent, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.agents[a.ID()]; !exists {
		m.order = append(m.order, a.ID())
	}
	m.agents[a.ID()] = &handle{agent: a, cancel: cancel}
}

// Get retrieves an agent by ID.
func (m *Manager) Get(id string) (*agent.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h.agent, nil
}

// Remove deletes a session from the registry.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.agents, id)
	m.order = removeID(m.order, id)
	return nil
}

// List returns all registered agents in registration order.
func (m *Manager) List() []*agent.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*agent.Agent, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.agents[id].agent)
	}
	return out
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

// reap removes the session and cancels its execution context, waking a
// loop suspended on clarification so its goroutine can exit.
func (m *Manager) reap(id string) {
	m.mu.Lock()
	h, ok := m.agents[id]
	if ok {
		delete(m.agents, id)
		m.order = removeID(m.order, id)
	}
	m.mu.Unlock()
	if ok && h.cancel != nil {
		h.cancel()
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
