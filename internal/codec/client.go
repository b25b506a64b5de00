package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region rpc-names
// ServicePath is the fully-qualified gRPC service the inference backend serves.
const ServicePath = "/rahl.inference.v1.InferenceService/"

const (
	MethodLoadModel = ServicePath + "LoadModel"
	MethodInvoke    = ServicePath + "Invoke"
)

// #endregion rpc-names

// #region client-struct
// Client wraps the gRPC connection to the model-serving backend. Messages are
// google.protobuf.Struct so the backend contract stays schema-free on the Go side.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the inference backend at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection.
// Used for testing without a real gRPC server.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection. Injected connections are left alone.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region load-model
// LoadModel asks the backend to fetch and prepare the model at source.
func (c *Client) LoadModel(ctx context.Context, name, source string) (LoadResult, error) {
	out, err := c.call(ctx, MethodLoadModel, map[string]any{
		"name":   name,
		"source": source,
	})
	if err != nil {
		return LoadResult{}, fmt.Errorf("load model rpc: %w", err)
	}

	id, _ := out["model_id"].(string)
	if id == "" {
		return LoadResult{}, fmt.Errorf("load model rpc: %w: missing model_id", ErrMalformedOutput)
	}
	dim, _ := out["dimension"].(float64)
	return LoadResult{ModelID: id, Dimension: int(dim)}, nil
}

// #endregion load-model

// #region invoke
// Invoke runs one inference call against a loaded model and returns its raw output.
func (c *Client) Invoke(ctx context.Context, modelID string, payload map[string]any) (map[string]any, error) {
	out, err := c.call(ctx, MethodInvoke, map[string]any{
		"model_id": modelID,
		"payload":  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke rpc: %w", err)
	}
	output, ok := out["output"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invoke rpc: %w: missing output", ErrMalformedOutput)
	}
	return output, nil
}

// #endregion invoke

// #region call
func (c *Client) call(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// #endregion call
