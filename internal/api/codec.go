package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec lets the gRPC server carry Message over JSON instead of
// protobuf, so the same struct serves both the WebSocket and gRPC
// transports without a generated codec.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
