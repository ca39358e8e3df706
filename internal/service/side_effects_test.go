package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-progress-api/pkg/config"
	"github.com/noah-isme/course-progress-api/pkg/middleware/requestid"
)

func TestSideEffectsInlineSurvivesCancelledCaller(t *testing.T) {
	metrics := NewMetricsService()
	effects := NewSideEffects(config.EchoConfig{}, time.Second, metrics, nil)

	ctx, cancel := context.WithCancel(requestid.WithValue(context.Background(), "req-1"))
	cancel()

	var seenID string
	var seenErr error
	effects.Run(ctx, EffectIncrementEnrollment, func(ctx context.Context) error {
		seenID = requestid.FromContext(ctx)
		seenErr = ctx.Err()
		return nil
	})
	assert.Equal(t, "req-1", seenID)
	assert.NoError(t, seenErr)

	effects.Run(context.Background(), EffectDecrementEnrollment, func(context.Context) error {
		return errors.New("course service down")
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.sideEffectFailed.WithLabelValues(EffectDecrementEnrollment)))
}

func TestSideEffectsAsyncRunsOnQueue(t *testing.T) {
	effects := NewSideEffects(config.EchoConfig{Async: true, Workers: 1, BufferSize: 4}, time.Second, nil, nil)
	effects.Start(context.Background())
	defer effects.Stop()

	done := make(chan string, 1)
	effects.Run(requestid.WithValue(context.Background(), "req-2"), EffectPushProgress, func(ctx context.Context) error {
		done <- requestid.FromContext(ctx)
		return nil
	})

	select {
	case id := <-done:
		assert.Equal(t, "req-2", id)
	case <-time.After(2 * time.Second):
		t.Fatal("echo was not executed")
	}
}

func TestSideEffectsAsyncTimesOut(t *testing.T) {
	metrics := NewMetricsService()
	effects := NewSideEffects(config.EchoConfig{Async: true, Workers: 1, BufferSize: 4}, 20*time.Millisecond, metrics, nil)
	effects.Start(context.Background())
	defer effects.Stop()

	done := make(chan error, 1)
	effects.Run(context.Background(), EffectPushProgress, func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("echo did not observe its deadline")
	}
}
