package gateway

import (
	"errors"

	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
)

// observe records one gateway call in the request counters
func observe(op string, timer *metrics.Timer, err error) {
	metrics.GatewayRequestsTotal.WithLabelValues(op, statusLabel(err)).Inc()
	timer.ObserveDurationVec(metrics.GatewayRequestDuration, op)
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrInvalidPassword):
		return "unauthorized"
	case IsTransport(err):
		return "unavailable"
	default:
		return "error"
	}
}
