/*
Package events provides the in-memory broadcast mechanism that informs the
UI layer of every workspace state transition.

Every mutation performed by the engine produces a short sequence of events:
an optimistic event published before the backend is contacted, followed by
either a confirmation or a failure event. Subscribers apply these events to
their own copy of the workspace tree without reloading it.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────┐
	│                                                        │
	│  engine.Publish(event)                                 │
	│       │                                                │
	│       ▼                                                │
	│  Event channel (buffer: 256)                           │
	│       │                                                │
	│       ▼                                                │
	│  Distribution goroutine (single, FIFO)                 │
	│       │                                                │
	│       ├──▶ Subscriber channels (buffer: 128 each)      │
	│       │      websocket bridge, CLI watchers            │
	│       │                                                │
	│       └──▶ Listener callbacks (panic isolated)         │
	│              metrics, tests, embedders                 │
	│                                                        │
	└────────────────────────────────────────────────────────┘

# Ordering

A single goroutine distributes events in publish order. Since the engine
publishes the optimistic event of a mutation before it starts the backend
call, no subscriber can observe a confirmation before the optimistic event
it confirms. Events for unrelated entities carry no ordering guarantee
beyond publish order.

# Event Families

	PROJECT_*, PAGE_*, TAB_*     create, update, delete, order
	PAGE_MOVED*                  page moved between projects
	TAB_ACTIVATED*               active tab changed
	TAB_DATA_*                   tab content edits and saves
	LOADING_WORKSPACE ...        bulk load lifecycle
	ID_MAPPED                    temporary id replaced by a server id
	NOTIFICATION                 user facing message with a level
	HEALTH_CHECK                 backend reachability

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for event := range sub {
		fmt.Println(event.Type, event.EntityID)
	}

	cancel := broker.Listen(func(e *events.Event) {
		if e.Type == events.EventIDMapped {
			fmt.Println(e.TempID, "->", e.RealID)
		}
	})
	defer cancel()

# Slow Subscribers

Publishing never waits on a subscriber. When a subscriber channel is full
the event is dropped for that subscriber, counted in
vcw_events_dropped_total and logged at warn level. Listener callbacks run on
the distribution goroutine and must return quickly.
*/
package events
