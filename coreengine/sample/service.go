package sample

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the gRPC service exposing SampleObj.
const ServiceName = "callguard.sample.v1.SampleService"

// SampleServiceServer is the handler type of ServiceDesc.
type SampleServiceServer interface {
	NoCatch(ctx context.Context) (string, error)
	SwallowException(ctx context.Context) (string, error)
	WriteException(ctx context.Context) (string, error)
	Both(ctx context.Context) (string, error)
}

var _ SampleServiceServer = SampleObj{}

func unaryHandler(name string) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	call := func(srv any, ctx context.Context) (any, error) {
		v, err := dispatch(srv.(SampleServiceServer), name)(ctx)
		if err != nil {
			return nil, err
		}
		return wrapperspb.String(v), nil
	}

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv, ctx)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv, ctx)
			})
		},
	}
}

// ServiceDesc describes SampleService. Requests are Empty and replies are
// StringValue, so no generated code is needed.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SampleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodNoCatch),
		unaryHandler(MethodSwallowException),
		unaryHandler(MethodWriteException),
		unaryHandler(MethodBoth),
	},
}

// Client calls SampleService.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a SampleService client.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes method and returns its string reply.
func (c *Client) Call(ctx context.Context, method string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
