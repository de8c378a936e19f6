package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// TwinMonitorServiceName is the fully qualified gRPC service name.
const TwinMonitorServiceName = "mirador.twin.v1.TwinMonitor"

const (
	registerTwinMethod = "/" + TwinMonitorServiceName + "/RegisterTwin"
	listTwinsMethod    = "/" + TwinMonitorServiceName + "/ListTwins"
	getTwinMethod      = "/" + TwinMonitorServiceName + "/GetTwin"
)

// TwinMonitorServer is the operator-facing API over the twin registry.
type TwinMonitorServer interface {
	RegisterTwin(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListTwins(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetTwin(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterTwinMonitorServer attaches srv to the registrar.
func RegisterTwinMonitorServer(s grpc.ServiceRegistrar, srv TwinMonitorServer) {
	s.RegisterService(&TwinMonitorServiceDesc, srv)
}

// TwinMonitorServiceDesc describes the TwinMonitor service using well-known message types.
var TwinMonitorServiceDesc = grpc.ServiceDesc{
	ServiceName: TwinMonitorServiceName,
	HandlerType: (*TwinMonitorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterTwin", Handler: registerTwinHandler},
		{MethodName: "ListTwins", Handler: listTwinsHandler},
		{MethodName: "GetTwin", Handler: getTwinHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mirador/twin/v1/twin_monitor.proto",
}

func registerTwinHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TwinMonitorServer).RegisterTwin(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: registerTwinMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TwinMonitorServer).RegisterTwin(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listTwinsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TwinMonitorServer).ListTwins(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listTwinsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TwinMonitorServer).ListTwins(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getTwinHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TwinMonitorServer).GetTwin(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getTwinMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TwinMonitorServer).GetTwin(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// TwinMonitorClient is a thin client for the TwinMonitor service.
type TwinMonitorClient struct {
	cc grpc.ClientConnInterface
}

// NewTwinMonitorClient wraps an established connection.
func NewTwinMonitorClient(cc grpc.ClientConnInterface) *TwinMonitorClient {
	return &TwinMonitorClient{cc: cc}
}

func (c *TwinMonitorClient) RegisterTwin(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, registerTwinMethod, wrapperspb.String(name), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TwinMonitorClient) ListTwins(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listTwinsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TwinMonitorClient) GetTwin(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getTwinMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
