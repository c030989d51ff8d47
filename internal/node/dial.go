package node

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dreamware/firequery/internal/wire"
)

// Dialer opens a FireQuery client for a target address. Injected so
// tests can substitute in-process transports for real connections.
type Dialer func(target string) (wire.FireQueryClient, error)

// GRPCDial is the production dialer: a lazy, plaintext client
// connection speaking the firequery codec.
func GRPCDial(target string) (wire.FireQueryClient, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		wire.WithCodec(),
	)
	if err != nil {
		return nil, err
	}
	return wire.NewFireQueryClient(conn), nil
}
