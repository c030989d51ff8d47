package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype the firequery service speaks.
// Messages in this package are plain Go structs, so they travel as
// JSON through gRPC's pluggable codec layer instead of protobuf.
const CodecName = "firequery-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements grpc/encoding.Codec over encoding/json.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return CodecName }

// WithCodec returns the dial option every firequery client must pass
// so outgoing calls negotiate the service codec. Servers pick it up
// automatically from the registered codec.
func WithCodec() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName))
}

// EncodeQuery produces the canonical serialization of a query for
// embedding in a DelegationRequest. The root encodes the query once;
// team leaders forward that payload to their workers unchanged, and
// every receiver rebuilds the query with DecodeQuery.
func EncodeQuery(q *QueryRequest) ([]byte, error) {
	b, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode query %s: %w", q.RequestID, err)
	}
	return b, nil
}

// DecodeQuery parses a canonical query encoding produced by EncodeQuery.
func DecodeQuery(data []byte) (*QueryRequest, error) {
	q := new(QueryRequest)
	if err := json.Unmarshal(data, q); err != nil {
		return nil, fmt.Errorf("decode delegated query: %w", err)
	}
	return q, nil
}
