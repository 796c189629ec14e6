package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName        = "labinterp.v1.InterpretService"
	InterpretMethod    = "/" + ServiceName + "/Interpret"
	GetRunMethod       = "/" + ServiceName + "/GetRun"
	ListRunsMethod     = "/" + ServiceName + "/ListRuns"
	interpretProtoPath = "labinterp/v1/interpret.proto"
)

// InterpretServiceServer is the server API for labinterp.v1.InterpretService.
// Payloads are google.protobuf.Struct so clients need no generated stubs.
type InterpretServiceServer interface {
	Interpret(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterInterpretServiceServer(s grpc.ServiceRegistrar, srv InterpretServiceServer) {
	s.RegisterService(&InterpretService_ServiceDesc, srv)
}

type unaryMethod func(InterpretServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InterpretServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InterpretServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var InterpretService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InterpretServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Interpret", Handler: unaryHandler(InterpretMethod, InterpretServiceServer.Interpret)},
		{MethodName: "GetRun", Handler: unaryHandler(GetRunMethod, InterpretServiceServer.GetRun)},
		{MethodName: "ListRuns", Handler: unaryHandler(ListRunsMethod, InterpretServiceServer.ListRuns)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: interpretProtoPath,
}

// InterpretClient is a thin client over the same Struct payloads.
type InterpretClient struct {
	cc grpc.ClientConnInterface
}

func NewInterpretClient(cc grpc.ClientConnInterface) *InterpretClient {
	return &InterpretClient{cc: cc}
}

func (c *InterpretClient) Interpret(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, InterpretMethod, in, opts...)
}

func (c *InterpretClient) GetRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetRunMethod, in, opts...)
}

func (c *InterpretClient) ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListRunsMethod, in, opts...)
}

func (c *InterpretClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
