package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Weynie/van-construction-web-sub000/pkg/log"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// EventType represents the type of event
type EventType string

const (
	EventProjectCreatedOptimistic EventType = "PROJECT_CREATED_OPTIMISTIC"
	EventProjectCreated           EventType = "PROJECT_CREATED"
	EventProjectCreateFailed      EventType = "PROJECT_CREATE_FAILED"
	EventProjectUpdatedOptimistic EventType = "PROJECT_UPDATED_OPTIMISTIC"
	EventProjectUpdated           EventType = "PROJECT_UPDATED"
	EventProjectUpdateFailed      EventType = "PROJECT_UPDATE_FAILED"
	EventProjectDeletedOptimistic EventType = "PROJECT_DELETED_OPTIMISTIC"
	EventProjectDeleted           EventType = "PROJECT_DELETED"
	EventProjectDeleteFailed      EventType = "PROJECT_DELETE_FAILED"
	EventProjectOrderOptimistic   EventType = "PROJECT_ORDER_UPDATED_OPTIMISTIC"
	EventProjectOrderUpdated      EventType = "PROJECT_ORDER_UPDATED"
	EventProjectOrderFailed       EventType = "PROJECT_ORDER_FAILED"

	EventPageCreatedOptimistic EventType = "PAGE_CREATED_OPTIMISTIC"
	EventPageCreated           EventType = "PAGE_CREATED"
	EventPageCreateFailed      EventType = "PAGE_CREATE_FAILED"
	EventPageUpdatedOptimistic EventType = "PAGE_UPDATED_OPTIMISTIC"
	EventPageUpdated           EventType = "PAGE_UPDATED"
	EventPageUpdateFailed      EventType = "PAGE_UPDATE_FAILED"
	EventPageDeletedOptimistic EventType = "PAGE_DELETED_OPTIMISTIC"
	EventPageDeleted           EventType = "PAGE_DELETED"
	EventPageDeleteFailed      EventType = "PAGE_DELETE_FAILED"
	EventPageMovedOptimistic   EventType = "PAGE_MOVED_OPTIMISTIC"
	EventPageMoved             EventType = "PAGE_MOVED"
	EventPageMoveFailed        EventType = "PAGE_MOVE_FAILED"
	EventPageOrderOptimistic   EventType = "PAGE_ORDER_UPDATED_OPTIMISTIC"
	EventPageOrderUpdated      EventType = "PAGE_ORDER_UPDATED"
	EventPageOrderFailed       EventType = "PAGE_ORDER_FAILED"

	EventTabCreatedOptimistic EventType = "TAB_CREATED_OPTIMISTIC"
	EventTabCreated           EventType = "TAB_CREATED"
	EventTabCreateFailed      EventType = "TAB_CREATE_FAILED"
	EventTabUpdatedOptimistic EventType = "TAB_UPDATED_OPTIMISTIC"
	EventTabUpdated           EventType = "TAB_UPDATED"
	EventTabUpdateFailed      EventType = "TAB_UPDATE_FAILED"
	EventTabDeletedOptimistic EventType = "TAB_DELETED_OPTIMISTIC"
	EventTabDeleted           EventType = "TAB_DELETED"
	EventTabDeleteFailed      EventType = "TAB_DELETE_FAILED"
	EventTabActivated         EventType = "TAB_ACTIVATED"
	EventTabActivateFailed    EventType = "TAB_ACTIVATE_FAILED"
	EventTabOrderOptimistic   EventType = "TAB_ORDER_UPDATED_OPTIMISTIC"
	EventTabOrderUpdated      EventType = "TAB_ORDER_UPDATED"
	EventTabOrderFailed       EventType = "TAB_ORDER_FAILED"

	EventTabDataUpdatedOptimistic EventType = "TAB_DATA_UPDATED_OPTIMISTIC"
	EventTabDataSaved             EventType = "TAB_DATA_SAVED"
	EventTabDataSaveFailed        EventType = "TAB_DATA_SAVE_FAILED"
	EventTabDataLoaded            EventType = "TAB_DATA_LOADED"

	EventLoadingWorkspace EventType = "LOADING_WORKSPACE"
	EventWorkspaceLoaded  EventType = "WORKSPACE_LOADED"
	EventWorkspaceError   EventType = "WORKSPACE_ERROR"

	EventIDMapped     EventType = "ID_MAPPED"
	EventNotification EventType = "NOTIFICATION"
	EventHealthCheck  EventType = "HEALTH_CHECK"
)

// Level is the severity of a NOTIFICATION event
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event carries the minimal payload needed to apply one state transition to
// a locally held tree. Only the fields relevant to Type are set.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Identity
	TempID   string `json:"tempId,omitempty"`
	RealID   string `json:"realId,omitempty"`
	EntityID string `json:"entityId,omitempty"`
	ParentID string `json:"parentId,omitempty"`

	// Entities as confirmed by the backend, or as synthesized optimistically
	Project *types.Project `json:"project,omitempty"`
	Page    *types.Page    `json:"page,omitempty"`
	Tab     *types.Tab     `json:"tab,omitempty"`

	// Rollback information
	PreviousProject *types.Project `json:"previousProject,omitempty"`
	PreviousPage    *types.Page    `json:"previousPage,omitempty"`
	PreviousTab     *types.Tab     `json:"previousTab,omitempty"`
	PreviousIndex   int            `json:"previousIndex,omitempty"`
	PreviousParent  string         `json:"previousParentId,omitempty"`
	PreviousActive  string         `json:"previousActiveId,omitempty"`

	Patch         any              `json:"patch,omitempty"`
	Data          types.Content    `json:"data,omitempty"`
	Workspace     *types.Workspace `json:"workspace,omitempty"`
	// Order is the requested sibling order and PreviousOrder the order
	// before the reorder, which is what a failed reorder restores
	Order         []string         `json:"order,omitempty"`
	PreviousOrder []string         `json:"previousOrder,omitempty"`
	NeedsPassword bool             `json:"needsPassword,omitempty"`
	Healthy       *bool            `json:"healthy,omitempty"`

	Error    string            `json:"error,omitempty"`
	Message  string            `json:"message,omitempty"`
	Level    Level             `json:"level,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Listener is a callback that receives events in broadcast order
type Listener func(*Event)

// Broker manages event subscriptions and distribution. Events are
// distributed by a single goroutine in publish order, so a confirmation is
// never delivered before the optimistic event of the same mutation.
type Broker struct {
	subscribers map[Subscriber]bool
	listeners   map[uint64]Listener
	nextID      uint64
	seq         atomic.Uint64
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once
	startOnce   sync.Once
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		listeners:   make(map[uint64]Listener),
		eventCh:     make(chan *Event, 256),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	b.startOnce.Do(func() {
		go b.run()
	})
}

// Stop stops the broker after delivering events already queued
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	b.startOnce.Do(func() {
		close(b.doneCh)
	})
	<-b.doneCh
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 128)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Listen registers a callback and returns a function that removes it
func (b *Broker) Listen(fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = fmt.Sprintf("evt-%d", b.seq.Add(1))
	}

	select {
	case <-b.stopCh:
		return
	default:
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	defer close(b.doneCh)
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			// Drain what was queued before the stop
			for {
				select {
				case event := <-b.eventCh:
					b.broadcast(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()

	b.mu.RLock()
	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			metrics.EventsDroppedTotal.Inc()
			logger := log.WithComponent("broker")
			logger.Warn().
				Str("event_type", string(event.Type)).
				Msg("Subscriber buffer full, event dropped")
		}
	}
	listeners := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.RUnlock()

	// Listeners run without the lock so they may subscribe or unsubscribe
	for _, fn := range listeners {
		b.deliver(fn, event)
	}
}

func (b *Broker) deliver(fn Listener, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			logger := log.WithComponent("broker")
			logger.Error().
				Str("event_type", string(event.Type)).
				Interface("panic", r).
				Msg("Error in state listener")
		}
	}()
	fn(event)
}

// SubscriberCount returns the number of active subscribers and listeners
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers) + len(b.listeners)
}
