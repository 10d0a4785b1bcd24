package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/gateway"
	"github.com/Weynie/van-construction-web-sub000/pkg/health"
	"github.com/Weynie/van-construction-web-sub000/pkg/log"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
	"github.com/Weynie/van-construction-web-sub000/pkg/reconciler"
	"github.com/Weynie/van-construction-web-sub000/pkg/security"
	"github.com/Weynie/van-construction-web-sub000/pkg/state"
	"github.com/Weynie/van-construction-web-sub000/pkg/template"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

const (
	DefaultDebounceWindow = time.Second
	DefaultCommitTimeout  = 15 * time.Second
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Registry          *template.Registry
	Store             *reconciler.Store
	Credentials       security.Credentials
	Logger            *zerolog.Logger
	DebounceWindow    time.Duration
	CommitTimeout     time.Duration
	RequireEncryption bool
	// HealthRetries is the number of consecutive failed probes before the
	// backend is reported unhealthy
	HealthRetries int
}

// Engine applies workspace mutations optimistically to a local tree,
// commits them through a Gateway and confirms or rolls them back.
type Engine struct {
	gw       gateway.Gateway
	registry *template.Registry
	store    *reconciler.Store
	creds    security.Credentials
	tree     *state.Tree
	logger   zerolog.Logger

	debounce          time.Duration
	commitTimeout     time.Duration
	requireEncryption bool

	writersMu sync.Mutex
	writers   map[string]*tabWriter

	health     *health.Monitor
	healthMu   sync.Mutex
	healthStop chan struct{}
	healthDone chan struct{}
}

// New creates an engine over gw
func New(gw gateway.Gateway, opts Options) *Engine {
	if opts.Registry == nil {
		opts.Registry = template.MustNewRegistry()
	}
	if opts.Store == nil {
		opts.Store = reconciler.NewStore()
	}
	if opts.Credentials == nil {
		opts.Credentials = security.NoCredentials{}
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = DefaultCommitTimeout
	}
	logger := log.WithComponent("engine")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	metrics.RegisterComponent(metrics.ComponentEngine, true, "")
	metrics.RegisterComponent(metrics.ComponentEvents, true, "")

	monitor := health.NewMonitor(health.Probe(gw.Health), health.Config{
		Timeout: healthCheckTimeout,
		Retries: opts.HealthRetries,
	})

	return &Engine{
		gw:                gw,
		health:            monitor,
		registry:          opts.Registry,
		store:             opts.Store,
		creds:             opts.Credentials,
		tree:              state.NewTree(),
		logger:            logger,
		debounce:          opts.DebounceWindow,
		commitTimeout:     opts.CommitTimeout,
		requireEncryption: opts.RequireEncryption,
		writers:           make(map[string]*tabWriter),
	}
}

// Events returns the broker every state transition is published on
func (e *Engine) Events() *events.Broker {
	return e.store.Events
}

// Registry returns the template registry used for content
func (e *Engine) Registry() *template.Registry {
	return e.registry
}

// Workspace returns a snapshot of the local tree
func (e *Engine) Workspace() *types.Workspace {
	return e.tree.Snapshot()
}

// Project returns a copy of a project from the local tree
func (e *Engine) Project(id string) (*types.Project, bool) {
	return e.tree.Project(e.localID(id))
}

// Page returns a copy of a page from the local tree
func (e *Engine) Page(id string) (*types.Page, bool) {
	return e.tree.Page(e.localID(id))
}

// Tab returns a copy of a tab from the local tree
func (e *Engine) Tab(id string) (*types.Tab, bool) {
	return e.tree.Tab(e.localID(id))
}

// PendingOperations returns the number of in-flight deletes plus tabs with
// unsaved debounced content
func (e *Engine) PendingOperations() int {
	n := e.store.Pending.Len()
	e.writersMu.Lock()
	for _, w := range e.writers {
		if w.hasPending() {
			n++
		}
	}
	e.writersMu.Unlock()
	return n
}

// Notify publishes a NOTIFICATION event
func (e *Engine) Notify(level events.Level, message string) {
	e.publish(&events.Event{Type: events.EventNotification, Level: level, Message: message})
}

// Reset discards all session state, as on logout. Unsaved debounced
// content is dropped, not flushed.
func (e *Engine) Reset() {
	e.writersMu.Lock()
	for id, w := range e.writers {
		w.cancel()
		delete(e.writers, id)
	}
	e.writersMu.Unlock()

	e.store.Reset()
	e.tree.Clear()
	e.logger.Info().Msg("Engine state reset")
}

// Close flushes debounced content, stops the health loop and the broker
func (e *Engine) Close(ctx context.Context) error {
	e.StopHealthLoop()
	err := e.Flush(ctx)
	e.store.Close()
	return err
}

// localID maps id to the id currently used in the local tree
func (e *Engine) localID(id string) string {
	return e.store.IDs.RealID(id)
}

func (e *Engine) publish(event *events.Event) {
	e.store.Events.Publish(event)
}

// commit runs fn under the commit timeout and records its duration
func (e *Engine) commit(ctx context.Context, entity string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.commitTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	err := fn(ctx)
	timer.ObserveDurationVec(metrics.CommitDuration, entity)
	return err
}

// resolve maps id to its server id, waiting for an in-flight create
func (e *Engine) resolve(ctx context.Context, id string) (string, error) {
	return e.store.IDs.Resolve(ctx, id)
}

// confirmed records a successful mutation
func (e *Engine) confirmed(entity, op string) {
	metrics.MutationsTotal.WithLabelValues(entity, op, "confirmed").Inc()
}

// rollback records a failed mutation and broadcasts the failure event
// followed by an error notification
func (e *Engine) rollback(entity, op string, event *events.Event, err error) {
	metrics.MutationsTotal.WithLabelValues(entity, op, "rolled_back").Inc()
	e.logger.Error().
		Err(err).
		Str("entity", entity).
		Str("operation", op).
		Str("entity_id", firstNonEmpty(event.EntityID, event.TempID)).
		Msg("Mutation rolled back")

	event.Error = err.Error()
	e.publish(event)
	e.publish(&events.Event{
		Type:    events.EventNotification,
		Level:   events.LevelError,
		Message: failureMessage(entity, op, err),
	})
}

func failureMessage(entity, op string, err error) string {
	var he *gateway.HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return he.Message
	}
	return "Failed to " + op + " " + entity + ": " + err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func cleanName(op, kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid(op, kind+" name is required", nil)
	}
	return name, nil
}
