package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	ok := Probe(func(ctx context.Context) error { return nil }).Check(context.Background())
	assert.True(t, ok.Healthy)
	assert.Empty(t, ok.Message)
	assert.False(t, ok.CheckedAt.IsZero())

	failed := Probe(func(ctx context.Context) error { return errors.New("connection refused") }).Check(context.Background())
	assert.False(t, failed.Healthy)
	assert.Equal(t, "connection refused", failed.Message)
}

func TestStatusUpdate(t *testing.T) {
	tests := []struct {
		name    string
		retries int
		results []bool
		healthy bool
	}{
		{"starts healthy", 3, nil, true},
		{"below threshold", 3, []bool{false, false}, true},
		{"at threshold", 3, []bool{false, false, false}, false},
		{"recovers on success", 3, []bool{false, false, false, true}, true},
		{"success resets count", 3, []bool{false, false, true, false, false}, true},
		{"zero retries fails at once", 0, []bool{false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStatus()
			for _, healthy := range tt.results {
				s.Update(Result{Healthy: healthy}, Config{Retries: tt.retries})
			}
			assert.Equal(t, tt.healthy, s.Healthy)
		})
	}
}

func TestMonitorAppliesTimeout(t *testing.T) {
	slow := Probe(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	mon := NewMonitor(slow, Config{Timeout: 20 * time.Millisecond, Retries: 1})

	result, healthy := mon.Check(context.Background())
	assert.False(t, healthy)
	assert.Contains(t, result.Message, "deadline exceeded")

	status := mon.Status()
	require.Equal(t, 1, status.ConsecutiveFailures)
	assert.False(t, status.Healthy)
}

func TestMonitorThreshold(t *testing.T) {
	fail := true
	probe := Probe(func(ctx context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})
	mon := NewMonitor(probe, Config{Retries: 2})

	_, healthy := mon.Check(context.Background())
	assert.True(t, healthy, "one failure is tolerated")
	_, healthy = mon.Check(context.Background())
	assert.False(t, healthy)

	fail = false
	_, healthy = mon.Check(context.Background())
	assert.True(t, healthy)
	assert.Equal(t, 1, mon.Status().ConsecutiveSuccesses)
}
