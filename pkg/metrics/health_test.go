package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func resetHealth(version string) {
	healthChecker = newHealthChecker()
	healthChecker.version = version
	ComponentHealthy.Reset()
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]bool
		status     string
	}{
		{"no components", nil, "healthy"},
		{"all healthy", map[string]bool{ComponentGateway: true, ComponentEvents: true}, "healthy"},
		{"critical unhealthy", map[string]bool{ComponentGateway: false, ComponentEvents: true}, "unhealthy"},
		{"bridge unhealthy", map[string]bool{ComponentBridge: false, ComponentEvents: true}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth("1.0.0")
			for name, healthy := range tt.components {
				RegisterComponent(name, healthy, "backend unreachable")
			}

			health := GetHealth()
			assert.Equal(t, tt.status, health.Status)
			assert.Equal(t, "1.0.0", health.Version)
			assert.Len(t, health.Components, len(tt.components))
			assert.NotEmpty(t, health.Uptime)
		})
	}
}

func TestUnhealthyComponentMessage(t *testing.T) {
	resetHealth("")
	RegisterComponent(ComponentGateway, false, "not connected")

	assert.Equal(t, "unhealthy: not connected", GetHealth().Components[ComponentGateway])

	assert.Equal(t, 0.0, testutil.ToFloat64(ComponentHealthy.WithLabelValues(ComponentGateway)))

	UpdateComponent(ComponentGateway, true, "")
	assert.Equal(t, "healthy", GetHealth().Components[ComponentGateway])
	assert.Equal(t, 1.0, testutil.ToFloat64(ComponentHealthy.WithLabelValues(ComponentGateway)))
}

func TestGetReadiness(t *testing.T) {
	resetHealth("")
	RegisterComponent(ComponentEngine, true, "")
	RegisterComponent(ComponentEvents, true, "")

	readiness := GetReadiness()
	assert.Equal(t, "not_ready", readiness.Status)
	assert.Equal(t, "not registered", readiness.Components[ComponentGateway])
	assert.Contains(t, readiness.Message, ComponentGateway)

	RegisterComponent(ComponentGateway, false, "backend unreachable")
	readiness = GetReadiness()
	assert.Equal(t, "not_ready", readiness.Status)
	assert.Equal(t, "not ready: backend unreachable", readiness.Components[ComponentGateway])

	UpdateComponent(ComponentGateway, true, "")
	readiness = GetReadiness()
	assert.Equal(t, "ready", readiness.Status)
	assert.Empty(t, readiness.Message)

	// Non-critical components do not affect readiness
	RegisterComponent(ComponentBridge, false, "port in use")
	assert.Equal(t, "ready", GetReadiness().Status)
}

func TestSetVersion(t *testing.T) {
	resetHealth("")
	SetVersion("2.1.0")
	assert.Equal(t, "2.1.0", GetHealth().Version)
}
