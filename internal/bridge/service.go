package bridge

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region names
const (
	serviceName = "autobuy.v1.Controller"

	methodTick           = "/" + serviceName + "/Tick"
	methodReset          = "/" + serviceName + "/Reset"
	methodStatus         = "/" + serviceName + "/Status"
	methodSetPreferences = "/" + serviceName + "/SetPreferences"
)

// #endregion names

// #region server-interface

// ControllerServer is the server side of the controller service.
type ControllerServer interface {
	Tick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetPreferences(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterControllerServer attaches srv to s.
func RegisterControllerServer(s grpc.ServiceRegistrar, srv ControllerServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ControllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Tick", Handler: structHandler(methodTick, ControllerServer.Tick)},
		{MethodName: "Reset", Handler: emptyHandler(methodReset, ControllerServer.Reset)},
		{MethodName: "Status", Handler: emptyHandler(methodStatus, ControllerServer.Status)},
		{MethodName: "SetPreferences", Handler: structHandler(methodSetPreferences, ControllerServer.SetPreferences)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "autobuy/v1/controller.proto",
}

func structHandler(method string, call func(ControllerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControllerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ControllerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func emptyHandler(method string, call func(ControllerServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControllerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ControllerServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// #endregion server-interface

// #region client-stub

// ControllerClient is the client side of the controller service.
type ControllerClient interface {
	Tick(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Reset(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetPreferences(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type controllerClient struct {
	cc grpc.ClientConnInterface
}

// NewControllerClient returns a stub calling through cc.
func NewControllerClient(cc grpc.ClientConnInterface) ControllerClient {
	return &controllerClient{cc: cc}
}

func (c *controllerClient) Tick(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodTick, in, opts)
}

func (c *controllerClient) Reset(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodReset, in, opts)
}

func (c *controllerClient) Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodStatus, in, opts)
}

func (c *controllerClient) SetPreferences(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodSetPreferences, in, opts)
}

func (c *controllerClient) invoke(ctx context.Context, method string, in any, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client-stub
