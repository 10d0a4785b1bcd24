package engine

import (
	"context"
	"time"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
)

const healthCheckTimeout = 5 * time.Second

// CheckHealth probes the backend, records the verdict as the gateway
// component and publishes HEALTH_CHECK. The backend is only reported
// unhealthy after Options.HealthRetries consecutive failed probes.
func (e *Engine) CheckHealth(ctx context.Context) bool {
	result, healthy := e.health.Check(ctx)

	event := &events.Event{Type: events.EventHealthCheck, Healthy: &healthy}
	if !result.Healthy {
		event.Error = result.Message
		e.logger.Warn().
			Str("error", result.Message).
			Dur("duration", result.Duration).
			Int("consecutive_failures", e.health.Status().ConsecutiveFailures).
			Msg("Backend health check failed")
	}
	if healthy {
		metrics.UpdateComponent(metrics.ComponentGateway, true, "")
	} else {
		metrics.UpdateComponent(metrics.ComponentGateway, false, result.Message)
	}
	e.publish(event)
	return healthy
}

// StartHealthLoop checks backend health every interval until
// StopHealthLoop is called. Starting an already running loop is a no-op.
func (e *Engine) StartHealthLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	e.healthMu.Lock()
	defer e.healthMu.Unlock()
	if e.healthStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	e.healthStop, e.healthDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		e.CheckHealth(context.Background())
		for {
			select {
			case <-ticker.C:
				e.CheckHealth(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// StopHealthLoop stops the loop started by StartHealthLoop
func (e *Engine) StopHealthLoop() {
	e.healthMu.Lock()
	stop, done := e.healthStop, e.healthDone
	e.healthStop, e.healthDone = nil, nil
	e.healthMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
