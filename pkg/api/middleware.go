package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxLimiters bounds the per-client limiter table
const maxLimiters = 10000

// Option configures a Server
type Option func(*Server)

// WithRateLimit limits each client address to rps requests per second with
// the given burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.guard.rps = rps
		s.guard.burst = burst
	}
}

// WithAllowedNetworks restricts the bridge to clients inside the given
// CIDRs or single addresses. An empty list allows every client.
func WithAllowedNetworks(networks []string) Option {
	return func(s *Server) {
		s.guard.allowed = networks
	}
}

// guard applies access control and per-client rate limits ahead of the mux
type guard struct {
	rps     float64
	burst   int
	allowed []string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func (g *guard) allow(r *http.Request) (int, string) {
	ip := clientIP(r)

	if len(g.allowed) > 0 {
		parsed := net.ParseIP(ip)
		if parsed == nil {
			return http.StatusForbidden, "invalid client address"
		}
		permitted := false
		for _, cidr := range g.allowed {
			if matchCIDR(parsed, cidr) {
				permitted = true
				break
			}
		}
		if !permitted {
			return http.StatusForbidden, "client address not allowed"
		}
	}

	if g.rps > 0 && !g.limiter(ip).Allow() {
		return http.StatusTooManyRequests, "rate limit exceeded"
	}
	return 0, ""
}

func (g *guard) limiter(ip string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limiters == nil || len(g.limiters) >= maxLimiters {
		g.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := g.limiters[ip]
	if !ok {
		burst := g.burst
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(g.rps), burst)
		g.limiters[ip] = l
	}
	return l
}

// statusWriter records the status code written by a handler
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack passes through to the underlying writer so /events can upgrade
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if code, msg := s.guard.allow(r); code != 0 {
			s.logger.Warn().
				Str("client", clientIP(r)).
				Str("path", r.URL.Path).
				Int("status", code).
				Msg(msg)
			writeError(w, code, msg)
			return
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		level := zerolog.DebugLevel
		if sw.status >= http.StatusInternalServerError {
			level = zerolog.WarnLevel
		}
		s.logger.WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

// clientIP returns the peer address. Forwarding headers are ignored since
// the bridge is never deployed behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// matchCIDR checks if an IP matches a CIDR range or a single address
func matchCIDR(ip net.IP, cidr string) bool {
	if !strings.Contains(cidr, "/") {
		single := net.ParseIP(cidr)
		return single != nil && single.Equal(ip)
	}
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	return network.Contains(ip)
}
