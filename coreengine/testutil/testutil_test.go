package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

func TestMockTarget_Scripted(t *testing.T) {
	ok := policy.NewMethodKey("T", "Ok")
	bad := policy.NewMethodKey("T", "Bad")
	other := policy.NewMethodKey("T", "Other")
	boom := errors.New("boom")

	m := NewMockTarget().WithResult(ok, "v").WithError(bad, boom)

	v, err := m.Invoke(context.Background(), ok, []any{1})
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	_, err = m.Invoke(context.Background(), bad, nil)
	assert.ErrorIs(t, err, boom)

	v, err = m.Invoke(context.Background(), other, nil)
	assert.NoError(t, err)
	assert.Nil(t, v)

	m.WithDefaultError(boom)
	_, err = m.Invoke(context.Background(), other, nil)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 4, m.GetCallCount())
	assert.Equal(t, []any{1}, m.Calls[0].Args)
}

func TestMockTarget_DelayHonoursContext(t *testing.T) {
	m := NewMockTarget().WithDelay(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Invoke(ctx, policy.NewMethodKey("T", "Slow"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockLogger(t *testing.T) {
	logger := NewMockLogger()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("tick", "n", 1)
		}()
	}
	wg.Wait()
	logger.Warn("failure_record_failed", "error", "x", "dangling")

	logs := logger.GetLogs()
	assert.Len(t, logs, 21)
	assert.True(t, logger.HasLog("warn", "failure_record_failed"))
	assert.False(t, logger.HasLog("error", "failure_record_failed"))
	assert.Equal(t, map[string]any{"error": "x"}, logs[20].Fields)
}
