// Package codectest provides an in-process inference backend that speaks the
// codec wire contract, for tests that need real model round trips.
package codectest

import (
	"context"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rahl-ai/rahl-core/internal/codec"
)

// #region backend
// Backend implements grpc.ClientConnInterface. Text embeddings are bag-of-words
// hashes, so equal inputs always encode to equal vectors and "" encodes to zeros.
type Backend struct {
	Dimension int
	LoadDelay time.Duration

	mu         sync.Mutex
	loads      map[string]int
	invokes    map[string]int
	failLoad   map[string]error
	failInvoke map[string]error
}

// New returns a backend producing 512-dimensional text embeddings.
func New() *Backend {
	return &Backend{
		Dimension:  512,
		loads:      make(map[string]int),
		invokes:    make(map[string]int),
		failLoad:   make(map[string]error),
		failInvoke: make(map[string]error),
	}
}

// FailLoad makes every LoadModel for name fail with err.
func (b *Backend) FailLoad(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failLoad[name] = err
}

// FailInvoke makes every Invoke against the model loaded as name fail with err.
func (b *Backend) FailInvoke(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failInvoke[name] = err
}

// Loads reports how many successful LoadModel calls name has received.
func (b *Backend) Loads(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads[name]
}

// Invokes reports how many Invoke calls reached the model loaded as name.
func (b *Backend) Invokes(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.invokes[name]
}

// #endregion backend

// #region grpc
func (b *Backend) Invoke(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	in, ok := args.(*structpb.Struct)
	if !ok {
		return status.Errorf(codes.InvalidArgument, "unexpected request type %T", args)
	}
	out, ok := reply.(*structpb.Struct)
	if !ok {
		return status.Errorf(codes.InvalidArgument, "unexpected reply type %T", reply)
	}

	var resp map[string]any
	var err error
	switch method {
	case codec.MethodLoadModel:
		resp, err = b.load(ctx, in.AsMap())
	case codec.MethodInvoke:
		resp, err = b.invoke(in.AsMap())
	default:
		return status.Errorf(codes.Unimplemented, "unknown method %s", method)
	}
	if err != nil {
		return err
	}

	msg, err := structpb.NewStruct(resp)
	if err != nil {
		return status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	proto.Merge(out, msg)
	return nil
}

func (b *Backend) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, status.Error(codes.Unimplemented, "streams not supported")
}

// #endregion grpc

// #region handlers
func (b *Backend) load(ctx context.Context, req map[string]any) (map[string]any, error) {
	name, _ := req["name"].(string)
	source, _ := req["source"].(string)

	b.mu.Lock()
	failErr := b.failLoad[name]
	b.mu.Unlock()
	if failErr != nil {
		return nil, status.Errorf(codes.Unavailable, "fetch %s: %v", source, failErr)
	}

	if b.LoadDelay > 0 {
		select {
		case <-time.After(b.LoadDelay):
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}

	b.mu.Lock()
	b.loads[name]++
	b.mu.Unlock()

	dim := 0
	if name == "text" {
		dim = b.Dimension
	}
	return map[string]any{
		"model_id":  fmt.Sprintf("%s:%08x", name, hash(source)),
		"dimension": dim,
	}, nil
}

func (b *Backend) invoke(req map[string]any) (map[string]any, error) {
	modelID, _ := req["model_id"].(string)
	name, _, _ := strings.Cut(modelID, ":")
	payload, _ := req["payload"].(map[string]any)

	b.mu.Lock()
	b.invokes[name]++
	failErr := b.failInvoke[name]
	b.mu.Unlock()
	if failErr != nil {
		return nil, status.Errorf(codes.Internal, "%s: %v", name, failErr)
	}

	switch name {
	case "text":
		text, _ := payload["text"].(string)
		return map[string]any{"output": map[string]any{
			"embedding": toList(Embed(text, b.Dimension)),
		}}, nil
	case "vision":
		data := decodeBytes(payload["image"])
		var dets []any
		if len(data) > 0 {
			dets = append(dets, map[string]any{
				"label": "person",
				"score": 0.875,
				"box":   []any{0.125, 0.25, 0.5, 0.5},
			})
		}
		return map[string]any{"output": map[string]any{"detections": dets}}, nil
	case "audio":
		// Clips are treated as UTF-8 speech so tests can assert on transcripts.
		data := decodeBytes(payload["audio"])
		return map[string]any{"output": map[string]any{
			"text":       string(data),
			"language":   "en",
			"confidence": 0.75,
		}}, nil
	}
	return nil, status.Errorf(codes.NotFound, "model %q not loaded", modelID)
}

// #endregion handlers

// #region embed
// Embed is the deterministic text encoder the backend serves.
func Embed(text string, dim int) []float32 {
	vec := make([]float32, dim)
	if dim == 0 {
		return vec
	}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := hash(w)
		vec[int(h%uint32(dim))] += 1
		vec[int((h>>8)%uint32(dim))] += 0.5
	}
	return vec
}

// #endregion embed

// #region helpers
func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func toList(vec []float32) []any {
	out := make([]any, len(vec))
	for i, f := range vec {
		out[i] = float64(f)
	}
	return out
}

func decodeBytes(v any) []byte {
	s, _ := v.(string)
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return data
}

// #endregion helpers
