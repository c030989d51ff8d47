// Package wire defines the firequery wire protocol: the message types
// exchanged between client, root leader, team leaders and workers, and
// the gRPC service binding that carries them.
//
// # Service
//
// One service, four methods:
//
//	Query        client -> root          server-stream of Chunk
//	Delegate     parent -> child         server-stream of Chunk
//	HealthCheck  any                     unary
//	CancelQuery  any                     unary ack
//
// # Data flow
//
//	client ──► root ──► {team leader green, team leader pink}
//	                        └──► {own partition, worker, worker, ...}
//
// Chunks flow upward along the same edges; cancellation flows in
// reverse through the per-call contexts.
//
// # Encoding
//
// Messages are hand-declared Go structs carried by a JSON codec
// registered with gRPC's encoding layer (see CodecName). The service
// descriptor, client stub and server registration follow the exact
// shape protoc-gen-go-grpc generates, so swapping the codec or the
// message layer would not disturb any caller.
package wire
