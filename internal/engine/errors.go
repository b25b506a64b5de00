package engine

import (
	"context"
	"errors"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/gate"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/registry"
)

// Error taxonomy surfaced by the engine.
var (
	ErrEngineNotReady      = gate.ErrEngineNotReady
	ErrModelNotReady       = registry.ErrModelNotReady
	ErrLoad                = registry.ErrLoad
	ErrUnsupportedModality = modality.ErrUnsupported
)

// #region classify
// Error classes used as metric outcomes, replay verdicts and HTTP mappings.
const (
	ClassOK          = "ok"
	ClassNotReady    = "not_ready"
	ClassUnsupported = "unsupported"
	ClassInvalid     = "invalid"
	ClassModel       = "model_not_ready"
	ClassCanceled    = "canceled"
	ClassInternal    = "error"
)

// Classify maps err to one of the Class constants.
func Classify(err error) string {
	switch {
	case err == nil:
		return ClassOK
	case errors.Is(err, ErrEngineNotReady):
		return ClassNotReady
	case errors.Is(err, ErrUnsupportedModality):
		return ClassUnsupported
	case errors.Is(err, fusion.ErrEmptyPayload), errors.Is(err, fusion.ErrNoParts):
		return ClassInvalid
	case errors.Is(err, ErrModelNotReady):
		return ClassModel
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	}
	return ClassInternal
}

// #endregion classify
