package router

import (
	"context"
	"fmt"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/modality"
)

// #region select
// Select resolves the route for req. Unknown modalities and malformed
// multimodal part lists are rejected before any model is touched.
func Select(req Request) (Route, error) {
	m, err := modality.Parse(req.Modality)
	if err != nil {
		return Route{}, err
	}
	if m == modality.Multimodal {
		if err := fusion.ValidateParts(req.Parts); err != nil {
			return Route{}, err
		}
	}
	return Route{Modality: m, Kinds: m.RequiredKinds()}, nil
}

// #endregion select

// #region dispatch
// Dispatch selects the route for req and runs it on p.
func Dispatch(ctx context.Context, p Pipeline, req Request) (fusion.Result, error) {
	route, err := Select(req)
	if err != nil {
		return fusion.Result{}, err
	}
	return Run(ctx, p, route, req)
}

// Run executes an already selected route.
func Run(ctx context.Context, p Pipeline, route Route, req Request) (fusion.Result, error) {
	switch route.Modality {
	case modality.Text:
		return p.Text(ctx, req.Input, req.Context)
	case modality.Image:
		return p.Image(ctx, req.Data, req.Context)
	case modality.Audio:
		return p.Audio(ctx, req.Data, req.Context)
	case modality.Multimodal:
		return p.Multimodal(ctx, req.Parts, req.Context)
	}
	return fusion.Result{}, fmt.Errorf("route: %w", &modality.UnsupportedError{Name: string(route.Modality)})
}

// #endregion dispatch
