package grpc

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jeeves-cluster-organization/callguard/coreengine/intercept"
	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// =============================================================================
// POLICY INTERCEPTOR
// =============================================================================

// UnaryTarget is the pipeline target for gRPC unary calls. Invocations carry
// the request and the next grpc.UnaryHandler as their two arguments.
var UnaryTarget intercept.Target = intercept.TargetFunc(invokeUnary)

func invokeUnary(ctx context.Context, key policy.MethodKey, args []any) (any, error) {
	if len(args) != 2 {
		return nil, outcome.NewTargetError(outcome.KindArgument,
			fmt.Sprintf("unary call %s needs a request and a handler, got %d args", key, len(args)))
	}
	handler, ok := args[1].(grpc.UnaryHandler)
	if !ok || handler == nil {
		return nil, outcome.NewTargetError(outcome.KindArgument,
			fmt.Sprintf("unary call %s has no handler", key))
	}
	return handler(ctx, args[0])
}

// NewUnaryPipeline creates a pipeline targeting gRPC unary handlers.
func NewUnaryPipeline(policies policy.Lookup, opts ...intercept.Option) *intercept.Pipeline {
	return intercept.NewPipeline(UnaryTarget, policies, opts...)
}

// PolicyUnaryInterceptor routes every unary RPC through p, which must target
// UnaryTarget. Suppressed failures reach the client as the fallback value;
// other failures keep their gRPC status.
func PolicyUnaryInterceptor(p *intercept.Pipeline) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		key := MethodKeyFromFullMethod(info.FullMethod)
		out := p.InvokeSync(ctx, intercept.NewInvocation(key, req, handler))

		if failure := out.Err(); failure != nil {
			return nil, StatusFromFailure(*failure)
		}
		resp, err := ToProtoMessage(out.Value())
		if err != nil {
			return nil, status.Errorf(codes.Internal, "%s: %v", key, err)
		}
		return resp, nil
	}
}

// MethodKeyFromFullMethod maps "/pkg.Service/Method" to the key
// "pkg.Service.Method".
func MethodKeyFromFullMethod(fullMethod string) policy.MethodKey {
	trimmed := strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return policy.NewMethodKey(trimmed[:i], trimmed[i+1:])
	}
	return policy.ParseKey(trimmed)
}

// =============================================================================
// CONVERSIONS
// =============================================================================

var kindCodes = map[string]codes.Code{
	outcome.KindArgument:         codes.InvalidArgument,
	outcome.KindNoMethod:         codes.Unimplemented,
	outcome.KindPanic:            codes.Internal,
	outcome.KindInvalid:          codes.Internal,
	outcome.KindCanceled:         codes.Canceled,
	outcome.KindDeadlineExceeded: codes.DeadlineExceeded,
}

// StatusFromFailure converts failure info into a gRPC status error. A cause
// that already carries a status keeps it.
func StatusFromFailure(info outcome.ErrorInfo) error {
	if info.Cause != nil {
		if st, ok := status.FromError(info.Cause); ok {
			return st.Err()
		}
	}
	code, ok := kindCodes[info.Kind]
	if !ok {
		code = codes.Unknown
	}
	return status.Error(code, info.Message)
}

// ToProtoMessage converts an outcome value into a response message.
// proto.Message values pass through, strings become StringValue, nil becomes
// Empty and everything else goes through structpb.
func ToProtoMessage(v any) (proto.Message, error) {
	switch val := v.(type) {
	case nil:
		return &emptypb.Empty{}, nil
	case proto.Message:
		return val, nil
	case string:
		return wrapperspb.String(val), nil
	default:
		value, err := structpb.NewValue(val)
		if err != nil {
			return nil, fmt.Errorf("fallback %T is not representable: %w", v, err)
		}
		return value, nil
	}
}

// =============================================================================
// RECORDING FORMAT
// =============================================================================

// RecordFormatter writes gRPC failures with their full method name and the
// status code they would have produced.
func RecordFormatter(key policy.MethodKey, info outcome.ErrorInfo) string {
	st, _ := status.FromError(StatusFromFailure(info))
	method := key.String()
	if key.Type != "" {
		method = "/" + key.Type + "/" + key.Method
	}
	return fmt.Sprintf("Exception thrown: %s: %s: %s", method, st.Code(), info.Message)
}

var _ intercept.RecordFormatter = RecordFormatter
