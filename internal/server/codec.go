package server

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// ContentSubtype selects the JSON codec on a call:
//
//	conn.Invoke(ctx, method, req, &resp, grpc.CallContentSubtype(server.ContentSubtype))
const ContentSubtype = "json"

// jsonCodec carries plain Go structs over gRPC so services need no
// generated protobuf types.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return ContentSubtype }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
