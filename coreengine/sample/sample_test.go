package sample

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	cggrpc "github.com/jeeves-cluster-organization/callguard/coreengine/grpc"
	"github.com/jeeves-cluster-organization/callguard/coreengine/intercept"
	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
	"github.com/jeeves-cluster-organization/callguard/coreengine/record"
	"github.com/jeeves-cluster-organization/callguard/coreengine/testutil"
)

// =============================================================================
// SAMPLE OBJECT TESTS
// =============================================================================

func TestSampleObj_AlwaysFails(t *testing.T) {
	obj := SampleObj{}
	want := map[string]string{
		MethodNoCatch:          "Cannot catch me!!",
		MethodSwallowException: "Am I caught or not?",
		MethodWriteException:   "You've got me?!?!  Who's got you?!?!",
		MethodBoth:             "Somebody stop me!!",
	}

	for _, name := range Methods {
		t.Run(name, func(t *testing.T) {
			v, err := dispatch(obj, name)(context.Background())

			assert.Empty(t, v)
			require.Error(t, err)
			info := outcome.FromError(err)
			assert.Equal(t, outcome.KindArgument, info.Kind)
			assert.Equal(t, want[name], info.Message)
		})
	}
}

func TestSampleObj_Bind(t *testing.T) {
	table := intercept.NewMethodTable()
	require.NoError(t, SampleObj{}.Bind(table))

	assert.Equal(t, []policy.MethodKey{
		policy.NewMethodKey(TypeName, MethodBoth),
		policy.NewMethodKey(TypeName, MethodNoCatch),
		policy.NewMethodKey(TypeName, MethodSwallowException),
		policy.NewMethodKey(TypeName, MethodWriteException),
	}, table.List())
}

func TestPolicies(t *testing.T) {
	reg := Policies()

	_, ok := reg.Lookup(policy.NewMethodKey(TypeName, MethodNoCatch))
	assert.False(t, ok)

	d, ok := reg.Lookup(policy.NewMethodKey(TypeName, MethodBoth))
	require.True(t, ok)
	assert.Equal(t, policy.Descriptor{SuppressFailure: true, RecordFailure: true, Fallback: "What? Me Worry?"}, d)

	d, ok = reg.Lookup(policy.NewMethodKey(ServiceName, MethodSwallowException))
	require.True(t, ok)
	assert.Equal(t, "Free your mind.", d.Fallback)

	assert.Equal(t, 6, reg.Len())
}

// =============================================================================
// MATRIX TESTS
// =============================================================================

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Returned value: Whoa!", Describe(outcome.Success("Whoa!")))
	assert.Equal(t, "Caught server side error: bad",
		Describe(outcome.Failure(outcome.ErrorInfo{Kind: outcome.KindArgument, Message: "bad"})))
	assert.Equal(t, "Caught client side error: boom",
		Describe(outcome.Failure(outcome.ErrorInfo{Kind: outcome.KindPanic, Message: "boom"})))
}

func TestRunMatrix_Golden(t *testing.T) {
	sink := record.NewMemoryRecorder()
	p, err := NewPipeline(nil, intercept.WithRecorder(sink))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := RunMatrix(ctx, p)
	require.NoError(t, err)
	require.Len(t, rows, 8)

	report := struct {
		Rows    []Row    `json:"rows"`
		Records []string `json:"records"`
	}{Rows: rows, Records: sink.Entries()}
	data, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "matrix", data)
}

func TestRunMatrix_ContextCancelled(t *testing.T) {
	blocked := make(chan struct{})
	defer close(blocked)

	var calls atomic.Int32
	p := intercept.NewPipeline(intercept.TargetFunc(func(ctx context.Context, key policy.MethodKey, args []any) (any, error) {
		// The second call is the first async one.
		if calls.Add(1) == 2 {
			<-blocked
		}
		return "ok", nil
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows, err := RunMatrix(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, rows, 1)
	assert.Equal(t, "Returned value: ok", rows[0].Result)
}

// =============================================================================
// GRPC SERVICE TESTS
// =============================================================================

func startSampleServer(t *testing.T, logger *testutil.MockLogger) *Client {
	t.Helper()

	p := cggrpc.NewUnaryPipeline(Policies(),
		intercept.WithRecorder(record.NewMemoryRecorder()),
		intercept.WithLogger(logger),
	)
	srv := cggrpc.NewServer(logger, p)
	srv.RegisterService(&ServiceDesc, SampleObj{})

	lis := bufconn.Listen(1 << 20)
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
	return NewClient(conn)
}

func TestSampleService(t *testing.T) {
	logger := testutil.NewMockLogger()
	client := startSampleServer(t, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		method   string
		want     string
		wantCode codes.Code
		wantMsg  string
	}{
		{MethodNoCatch, "", codes.InvalidArgument, "Cannot catch me!!"},
		{MethodSwallowException, "Free your mind.", codes.OK, ""},
		{MethodWriteException, "", codes.InvalidArgument, "You've got me?!?!  Who's got you?!?!"},
		{MethodBoth, "What? Me Worry?", codes.OK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got, err := client.Call(ctx, tt.method)

			assert.Equal(t, tt.wantCode, status.Code(err))
			assert.Equal(t, tt.want, got)
			if tt.wantMsg != "" {
				st, _ := status.FromError(err)
				assert.Equal(t, tt.wantMsg, st.Message())
			}
		})
	}

	assert.True(t, logger.HasLog("error", "grpc_request_failed"))
	assert.True(t, logger.HasLog("debug", "failure_suppressed"))
}
