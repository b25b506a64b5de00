package orchestrator

// #region imports
import (
	"context"
	"fmt"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/router"
)

// #endregion

// #region collaborators

// Security initializes credentials and supplies user preferences.
type Security interface {
	Initialize(ctx context.Context) error
	UserPreferences() map[string]any
}

// Cache stores results for offline access.
type Cache interface {
	Register(ctx context.Context) error
	Put(ctx context.Context, key string, res fusion.Result) error
}

// AI loads models and processes requests.
type AI interface {
	LoadModels(ctx context.Context) error
	router.Handler
}

// UI renders the user surface, supplies its context and delivers input events.
type UI interface {
	Render(ctx context.Context) error
	Context() map[string]any
	Listener
}

// Listener delivers input events to an attached handler.
type Listener interface {
	Attach(h router.Handler)
}

// Background is a long-running worker started after the UI is up.
type Background interface {
	Start(ctx context.Context) error
}

// Recorder queues results for persistence without blocking.
type Recorder interface {
	Submit(res fusion.Result) bool
}

// Publisher forwards results to the realtime channel.
type Publisher interface {
	Publish(res fusion.Result) error
}

// EventLog records lifecycle events.
type EventLog interface {
	Record(phase, kind, detail string) error
}

// #endregion

// #region phase

// Phase names one startup step.
type Phase string

const (
	PhaseSecurity   Phase = "security"
	PhaseCache      Phase = "cache"
	PhaseAI         Phase = "ai"
	PhaseUI         Phase = "ui"
	PhaseBackground Phase = "background"
	PhaseListeners  Phase = "listeners"
)

// Phases returns the startup steps in the order Init runs them.
func Phases() []Phase {
	return []Phase{PhaseSecurity, PhaseCache, PhaseAI, PhaseUI, PhaseBackground, PhaseListeners}
}

// #endregion

// #region init-error

// InitError is the top-level startup failure. Phase is the step that failed;
// no later step ran.
type InitError struct {
	Phase Phase
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Phase, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// #endregion
