package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Overall states reported by GetHealth and GetReadiness
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// Component names reported by the engine
const (
	ComponentGateway = "gateway"
	ComponentEngine  = "engine"
	ComponentEvents  = "events"
	ComponentBridge  = "bridge"
)

// CriticalComponents must all be registered and healthy before /ready passes
var CriticalComponents = []string{ComponentGateway, ComponentEngine, ComponentEvents}

// ComponentHealthy mirrors the registry as a gauge, 1 for healthy
var ComponentHealthy = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "vcw_component_healthy",
		Help: "Whether a component last reported healthy (1) or not (0)",
	},
	[]string{"component"},
)

func init() {
	prometheus.MustRegister(ComponentHealthy)
}

// HealthStatus is a point-in-time view of the component registry
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth is the last state a component reported
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Updated time.Time
}

// HealthChecker holds the state reported by each component
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	startTime  time.Time
	version    string
}

var healthChecker = newHealthChecker()

func newHealthChecker() *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.version = version
}

// RegisterComponent records the state of a component, replacing any
// earlier report
func RegisterComponent(name string, healthy bool, message string) {
	healthChecker.mu.Lock()
	healthChecker.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
	healthChecker.mu.Unlock()

	value := 0.0
	if healthy {
		value = 1
	}
	ComponentHealthy.WithLabelValues(name).Set(value)
}

// UpdateComponent is RegisterComponent for components already known
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message)
}

func isCritical(name string) bool {
	for _, c := range CriticalComponents {
		if c == name {
			return true
		}
	}
	return false
}

// GetHealth summarizes every registered component. An unhealthy critical
// component makes the whole process unhealthy; any other failure only
// degrades it.
func GetHealth() HealthStatus {
	h := healthChecker
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := StatusHealthy
	components := make(map[string]string, len(h.components))
	for name, comp := range h.components {
		if comp.Healthy {
			components[name] = StatusHealthy
			continue
		}
		components[name] = StatusUnhealthy + ": " + comp.Message
		if isCritical(name) {
			status = StatusUnhealthy
		} else if status == StatusHealthy {
			status = StatusDegraded
		}
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

// GetReadiness reports ready once every critical component has registered
// healthy. Message names the first component still being waited on.
func GetReadiness() HealthStatus {
	h := healthChecker
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := StatusReady
	var waiting []string
	components := make(map[string]string, len(CriticalComponents))
	for _, name := range CriticalComponents {
		comp, ok := h.components[name]
		switch {
		case !ok:
			components[name] = "not registered"
			waiting = append(waiting, name+" initialization")
		case !comp.Healthy:
			components[name] = "not ready: " + comp.Message
			waiting = append(waiting, name)
		default:
			components[name] = StatusReady
		}
	}

	message := ""
	if len(waiting) > 0 {
		status = StatusNotReady
		sort.Strings(waiting)
		message = "waiting for " + waiting[0]
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}
