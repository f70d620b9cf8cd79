package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

// defaultSweepInterval is used when no explicit interval is configured.
const defaultSweepInterval = time.Minute

// Janitor periodically removes expired sessions: finished agents past the
// TTL, and suspended agents nobody answered within the TTL (their
// execution context is cancelled so the loop goroutine exits). Actively
// researching sessions are never reaped.
type Janitor struct {
	manager  *Manager
	ttl      time.Duration
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitor creates a janitor for the given registry. A zero or negative
// interval falls back to the default sweep interval.
func NewJanitor(manager *Manager, ttl, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Janitor{manager: manager, ttl: ttl, interval: interval}
}

// Start launches the background sweep loop. A non-positive TTL disables
// the janitor: sessions are retained forever.
func (j *Janitor) Start(ctx context.Context) {
	if j.cancel != nil || j.ttl <= 0 {
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go j.run(ctx)

	slog.Info("Session janitor started", "ttl", j.ttl, "interval", j.interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (j *Janitor) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
	slog.Info("Session janitor stopped")
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	reaped := 0
	for _, a := range j.manager.List() {
		if !expired(a.State(), time.Since(a.CreationTime()), j.ttl) {
			continue
		}
		slog.Info("Reaping expired session",
			"agent_id", a.ID(), "state", string(a.State()), "age", time.Since(a.CreationTime()))
		j.manager.reap(a.ID())
		reaped++
	}
	if reaped > 0 {
		slog.Info("Session sweep finished", "reaped", reaped, "remaining", j.manager.Count())
	}
}

// expired reports whether a session in the given state and of the given
// age is eligible for removal.
func expired(state models.AgentState, age, ttl time.Duration) bool {
	if age < ttl {
		return false
	}
	return state.IsFinished() || state == models.StateWaitingForClarification
}
