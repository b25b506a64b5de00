package gate

import (
	"context"
	"fmt"
	"sync"
)

// #region readiness
// Readiness guards processing until every required model has loaded.
// NotReady moves to Ready or Failed exactly once; both are terminal.
type Readiness struct {
	mu      sync.RWMutex
	state   State
	reason  string
	settled chan struct{}
}

// New returns a gate in NotReady.
func New() *Readiness {
	return &Readiness{settled: make(chan struct{})}
}

// #endregion readiness

// #region transitions
// MarkReady moves NotReady to Ready. It reports false if the gate had
// already settled.
func (r *Readiness) MarkReady() bool {
	return r.settle(Ready, "")
}

// MarkFailed moves NotReady to Failed with reason. Failed is permanent;
// recovery needs a restart.
func (r *Readiness) MarkFailed(reason string) bool {
	return r.settle(Failed, reason)
}

func (r *Readiness) settle(to State, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != NotReady {
		return false
	}
	r.state = to
	r.reason = reason
	close(r.settled)
	return true
}

// #endregion transitions

// #region check
// Check returns nil only when Ready.
func (r *Readiness) Check() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch r.state {
	case Ready:
		return nil
	case Failed:
		return fmt.Errorf("%w: failed: %s", ErrEngineNotReady, r.reason)
	}
	return fmt.Errorf("%w: models loading", ErrEngineNotReady)
}

// State returns the current state.
func (r *Readiness) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Reason returns the failure reason, or "".
func (r *Readiness) Reason() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reason
}

// Wait blocks until the gate settles or ctx ends.
func (r *Readiness) Wait(ctx context.Context) (State, error) {
	select {
	case <-r.settled:
		return r.State(), nil
	case <-ctx.Done():
		return NotReady, ctx.Err()
	}
}

// #endregion check
