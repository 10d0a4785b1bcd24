package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)

	d := timer.Duration()
	assert.GreaterOrEqual(t, d, 10*time.Millisecond)
	assert.Less(t, d, time.Second)
}

func TestTimerObserve(t *testing.T) {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "test_timer_seconds",
		Help: "test",
	})
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "test_timer_vec_seconds",
		Help: "test",
	}, []string{"entity"})

	timer := NewTimer()
	timer.ObserveDuration(histogram)
	timer.ObserveDurationVec(vec, "project")
	timer.ObserveDurationVec(vec, "project")

	assert.Equal(t, 1, testutil.CollectAndCount(histogram))
	assert.Equal(t, 1, testutil.CollectAndCount(vec))
}

func TestCommitDurationLabels(t *testing.T) {
	NewTimer().ObserveDurationVec(CommitDuration, "tab_data")
	assert.GreaterOrEqual(t, testutil.CollectAndCount(CommitDuration), 1)
}
