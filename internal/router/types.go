package router

import (
	"context"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/modality"
)

// #region request
// Request is one inference request as received from a caller. Modality is
// the caller's raw name; an empty name means text.
type Request struct {
	Input    string         `json:"input"`
	Data     []byte         `json:"data,omitempty"`
	Parts    []fusion.Part  `json:"parts,omitempty"`
	Modality string         `json:"modality,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// #endregion request

// #region interfaces
// Pipeline is the set of processing paths a route can select.
type Pipeline interface {
	Text(ctx context.Context, input string, reqContext map[string]any) (fusion.Result, error)
	Image(ctx context.Context, data []byte, reqContext map[string]any) (fusion.Result, error)
	Audio(ctx context.Context, data []byte, reqContext map[string]any) (fusion.Result, error)
	Multimodal(ctx context.Context, parts []fusion.Part, reqContext map[string]any) (fusion.Result, error)
}

// Handler processes a whole request. The engine, the orchestrator and the
// HTTP surface all speak this.
type Handler interface {
	ProcessRequest(ctx context.Context, req Request) (fusion.Result, error)
}

// #endregion interfaces

// #region route
// Route is the resolved path for a request.
type Route struct {
	Modality modality.Modality
	Kinds    []modality.ModelKind
}

// #endregion route
