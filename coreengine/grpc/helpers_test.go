package grpc

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jeeves-cluster-organization/callguard/coreengine/intercept"
	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
)

// =============================================================================
// LOGGER MOCK
// =============================================================================

// TestLogger captures log calls for verification. Safe for concurrent use.
type TestLogger struct {
	mu         sync.Mutex
	debugCalls []map[string]any
	infoCalls  []map[string]any
	warnCalls  []map[string]any
	errorCalls []map[string]any
}

func (l *TestLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugCalls = append(l.debugCalls, toMap(msg, keysAndValues))
}

func (l *TestLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoCalls = append(l.infoCalls, toMap(msg, keysAndValues))
}

func (l *TestLogger) Warn(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnCalls = append(l.warnCalls, toMap(msg, keysAndValues))
}

func (l *TestLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorCalls = append(l.errorCalls, toMap(msg, keysAndValues))
}

func (l *TestLogger) hasError(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.errorCalls {
		if c["msg"] == msg {
			return true
		}
	}
	return false
}

func (l *TestLogger) hasInfo(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.infoCalls {
		if c["msg"] == msg {
			return true
		}
	}
	return false
}

func toMap(msg string, keysAndValues []any) map[string]any {
	m := map[string]any{"msg": msg}
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			m[key] = keysAndValues[i+1]
		}
	}
	return m
}

// =============================================================================
// ECHO SERVICE (hand-written descriptor, no generated code)
// =============================================================================

const echoServiceName = "test.v1.Echo"

type echoMethod func(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error)

func echoHandler(name string, method echoMethod) grpc.MethodDesc {
	fullMethod := "/" + echoServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(wrapperspb.StringValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return method(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return method(ctx, req.(*wrapperspb.StringValue))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var echoServiceDesc = grpc.ServiceDesc{
	ServiceName: echoServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		echoHandler("Echo", func(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
			return wrapperspb.String(in.GetValue()), nil
		}),
		echoHandler("Fail", func(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
			return nil, outcome.NewTargetError(outcome.KindArgument, "bad input: "+in.GetValue())
		}),
		echoHandler("Status", func(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
			return nil, status.Error(codes.NotFound, "gone")
		}),
		echoHandler("Panic", func(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
			panic("handler exploded")
		}),
	},
}

// startEchoServer serves the echo service over bufconn behind p.
func startEchoServer(t *testing.T, logger Logger, p *intercept.Pipeline) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(logger, p)
	srv.RegisterService(&echoServiceDesc, struct{}{})
	go func() {
		_ = srv.GRPCServer().Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.GracefulStop()
	})
	return conn
}

func callEcho(ctx context.Context, conn *grpc.ClientConn, method, value string) (string, error) {
	out := new(wrapperspb.StringValue)
	err := conn.Invoke(ctx, "/"+echoServiceName+"/"+method, wrapperspb.String(value), out)
	return out.GetValue(), err
}

func insecureCreds() credentials.TransportCredentials {
	return insecure.NewCredentials()
}

func netListen() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}
