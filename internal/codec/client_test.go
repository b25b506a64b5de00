package codec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rahl-ai/rahl-core/internal/codec"
	"github.com/rahl-ai/rahl-core/internal/codec/codectest"
)

// #region mock
type stubConn struct {
	reply  map[string]any
	err    error
	method string
	req    map[string]any
}

func (s *stubConn) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	s.method = method
	s.req = args.(*structpb.Struct).AsMap()
	if s.err != nil {
		return s.err
	}
	msg, err := structpb.NewStruct(s.reply)
	if err != nil {
		return err
	}
	proto.Merge(reply.(*structpb.Struct), msg)
	return nil
}

func (s *stubConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("not implemented")
}

// #endregion mock

// #region constructor-tests
func TestNewClientLazyDial(t *testing.T) {
	client, err := codec.NewClient("localhost:0")
	require.NoError(t, err)
	require.NoError(t, client.Close())
}

func TestCloseInjectedConn(t *testing.T) {
	c := codec.NewClientWithConn(&stubConn{})
	assert.NoError(t, c.Close())
}

// #endregion constructor-tests

// #region load-tests
func TestLoadModel_Success(t *testing.T) {
	stub := &stubConn{reply: map[string]any{"model_id": "text:1", "dimension": 512}}
	c := codec.NewClientWithConn(stub)

	res, err := c.LoadModel(context.Background(), "text", "https://models/use")
	require.NoError(t, err)
	assert.Equal(t, "text:1", res.ModelID)
	assert.Equal(t, 512, res.Dimension)
	assert.Equal(t, codec.MethodLoadModel, stub.method)
	assert.Equal(t, "https://models/use", stub.req["source"])
}

func TestLoadModel_MissingID(t *testing.T) {
	c := codec.NewClientWithConn(&stubConn{reply: map[string]any{}})
	_, err := c.LoadModel(context.Background(), "text", "src")
	assert.ErrorIs(t, err, codec.ErrMalformedOutput)
}

func TestLoadModel_RPCError(t *testing.T) {
	rpcErr := errors.New("unavailable")
	c := codec.NewClientWithConn(&stubConn{err: rpcErr})
	_, err := c.LoadModel(context.Background(), "text", "src")
	require.Error(t, err)
	assert.ErrorIs(t, err, rpcErr)
}

// #endregion load-tests

// #region invoke-tests
func TestInvoke_MissingOutput(t *testing.T) {
	c := codec.NewClientWithConn(&stubConn{reply: map[string]any{"other": 1}})
	_, err := c.Invoke(context.Background(), "text:1", map[string]any{"text": "hi"})
	assert.ErrorIs(t, err, codec.ErrMalformedOutput)
}

func TestInvoke_RoundTripThroughBackend(t *testing.T) {
	backend := codectest.New()
	c := codec.NewClientWithConn(backend)
	ctx := context.Background()

	loaded, err := c.LoadModel(ctx, "text", "src")
	require.NoError(t, err)

	out, err := c.Invoke(ctx, loaded.ModelID, map[string]any{"text": "hello world"})
	require.NoError(t, err)
	vec, err := codec.DecodeEmbedding(out)
	require.NoError(t, err)
	assert.Equal(t, codectest.Embed("hello world", 512), vec)
	assert.Equal(t, 1, backend.Invokes("text"))
}

func TestInvoke_BytesPayload(t *testing.T) {
	backend := codectest.New()
	c := codec.NewClientWithConn(backend)
	ctx := context.Background()

	loaded, err := c.LoadModel(ctx, "audio", "src")
	require.NoError(t, err)
	out, err := c.Invoke(ctx, loaded.ModelID, map[string]any{"audio": []byte("turn on the lights")})
	require.NoError(t, err)

	tr, err := codec.DecodeTranscript(out)
	require.NoError(t, err)
	assert.Equal(t, "turn on the lights", tr.Text)
	assert.Equal(t, "en", tr.Language)
	assert.InDelta(t, 0.75, tr.Confidence, 1e-6)
}

// #endregion invoke-tests

// #region decode-tests
func TestDecodeEmbedding_BadElement(t *testing.T) {
	_, err := codec.DecodeEmbedding(map[string]any{"embedding": []any{1.0, "x"}})
	assert.ErrorIs(t, err, codec.ErrMalformedOutput)
}

func TestDecodeDetections(t *testing.T) {
	dets, err := codec.DecodeDetections(map[string]any{"detections": []any{
		map[string]any{"label": "cup", "score": 0.5, "box": []any{0.0, 0.25, 0.5, 1.0}},
	}})
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "cup", dets[0].Label)
	assert.Equal(t, float32(0.5), dets[0].Score)
	assert.Equal(t, [4]float32{0, 0.25, 0.5, 1}, dets[0].Box)

	none, err := codec.DecodeDetections(map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDecodeTranscript_Missing(t *testing.T) {
	_, err := codec.DecodeTranscript(map[string]any{"language": "en"})
	assert.ErrorIs(t, err, codec.ErrMalformedOutput)
}

// #endregion decode-tests
