package wire

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "firequery.FireQuery"

// Full method paths, useful for interceptors and logging.
const (
	QueryMethod       = "/firequery.FireQuery/Query"
	DelegateMethod    = "/firequery.FireQuery/Delegate"
	HealthCheckMethod = "/firequery.FireQuery/HealthCheck"
	CancelQueryMethod = "/firequery.FireQuery/CancelQuery"
)

// FireQueryClient is the client API for the FireQuery service.
//
// Query is the client-facing entry point served only by the root
// leader; Delegate is the internal fan-out edge served by team
// leaders and workers. Both are server-streaming.
type FireQueryClient interface {
	Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (FireQuery_QueryClient, error)
	Delegate(ctx context.Context, in *DelegationRequest, opts ...grpc.CallOption) (FireQuery_DelegateClient, error)
	HealthCheck(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error)
	CancelQuery(ctx context.Context, in *CancelRequest, opts ...grpc.CallOption) (*CancelResponse, error)
}

type fireQueryClient struct {
	cc grpc.ClientConnInterface
}

// NewFireQueryClient wraps a client connection in the FireQuery stub.
func NewFireQueryClient(cc grpc.ClientConnInterface) FireQueryClient {
	return &fireQueryClient{cc}
}

func (c *fireQueryClient) Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (FireQuery_QueryClient, error) {
	stream, err := c.cc.NewStream(ctx, &FireQuery_ServiceDesc.Streams[0], QueryMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &fireQueryQueryClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// FireQuery_QueryClient is the client side of the Query stream.
type FireQuery_QueryClient interface {
	Recv() (*Chunk, error)
	grpc.ClientStream
}

type fireQueryQueryClient struct {
	grpc.ClientStream
}

func (x *fireQueryQueryClient) Recv() (*Chunk, error) {
	m := new(Chunk)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *fireQueryClient) Delegate(ctx context.Context, in *DelegationRequest, opts ...grpc.CallOption) (FireQuery_DelegateClient, error) {
	stream, err := c.cc.NewStream(ctx, &FireQuery_ServiceDesc.Streams[1], DelegateMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &fireQueryDelegateClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// FireQuery_DelegateClient is the client side of the Delegate stream.
type FireQuery_DelegateClient interface {
	Recv() (*Chunk, error)
	grpc.ClientStream
}

type fireQueryDelegateClient struct {
	grpc.ClientStream
}

func (x *fireQueryDelegateClient) Recv() (*Chunk, error) {
	m := new(Chunk)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *fireQueryClient) HealthCheck(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	out := new(HealthResponse)
	if err := c.cc.Invoke(ctx, HealthCheckMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fireQueryClient) CancelQuery(ctx context.Context, in *CancelRequest, opts ...grpc.CallOption) (*CancelResponse, error) {
	out := new(CancelResponse)
	if err := c.cc.Invoke(ctx, CancelQueryMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// FireQueryServer is the server API for the FireQuery service. Every
// node implements all four methods; roles that do not serve a method
// return an Unimplemented status from it.
type FireQueryServer interface {
	Query(*QueryRequest, FireQuery_QueryServer) error
	Delegate(*DelegationRequest, FireQuery_DelegateServer) error
	HealthCheck(context.Context, *HealthRequest) (*HealthResponse, error)
	CancelQuery(context.Context, *CancelRequest) (*CancelResponse, error)
}

// FireQuery_QueryServer is the server side of the Query stream.
type FireQuery_QueryServer interface {
	Send(*Chunk) error
	grpc.ServerStream
}

type fireQueryQueryServer struct {
	grpc.ServerStream
}

func (x *fireQueryQueryServer) Send(m *Chunk) error {
	return x.ServerStream.SendMsg(m)
}

// FireQuery_DelegateServer is the server side of the Delegate stream.
type FireQuery_DelegateServer interface {
	Send(*Chunk) error
	grpc.ServerStream
}

type fireQueryDelegateServer struct {
	grpc.ServerStream
}

func (x *fireQueryDelegateServer) Send(m *Chunk) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterFireQueryServer registers the service implementation with a
// gRPC server.
func RegisterFireQueryServer(s grpc.ServiceRegistrar, srv FireQueryServer) {
	s.RegisterService(&FireQuery_ServiceDesc, srv)
}

func _FireQuery_Query_Handler(srv any, stream grpc.ServerStream) error {
	m := new(QueryRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(FireQueryServer).Query(m, &fireQueryQueryServer{stream})
}

func _FireQuery_Delegate_Handler(srv any, stream grpc.ServerStream) error {
	m := new(DelegationRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(FireQueryServer).Delegate(m, &fireQueryDelegateServer{stream})
}

func _FireQuery_HealthCheck_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FireQueryServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HealthCheckMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FireQueryServer).HealthCheck(ctx, req.(*HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _FireQuery_CancelQuery_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CancelRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FireQueryServer).CancelQuery(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CancelQueryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FireQueryServer).CancelQuery(ctx, req.(*CancelRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// FireQuery_ServiceDesc is the grpc.ServiceDesc for the FireQuery
// service. The stream handlers mirror the shape protoc-gen-go-grpc
// emits so the service behaves like any generated gRPC binding.
var FireQuery_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FireQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "HealthCheck",
			Handler:    _FireQuery_HealthCheck_Handler,
		},
		{
			MethodName: "CancelQuery",
			Handler:    _FireQuery_CancelQuery_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Query",
			Handler:       _FireQuery_Query_Handler,
			ServerStreams: true,
		},
		{
			StreamName:    "Delegate",
			Handler:       _FireQuery_Delegate_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "fire_query.proto",
}
