package reconciler

import (
	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/log"
)

// Store bundles the per-session reconciliation state: the identifier space,
// the pending operation set and the broker that informs subscribers.
type Store struct {
	IDs     *IDs
	Pending *Pending
	Events  *events.Broker
}

// NewStore creates a store and starts its broker
func NewStore() *Store {
	broker := events.NewBroker()
	broker.Start()

	return &Store{
		IDs:     NewIDs(broker),
		Pending: NewPending(),
		Events:  broker,
	}
}

// Reset clears mappings and pending operations, as on logout. Subscribers
// stay registered.
func (s *Store) Reset() {
	s.IDs.Reset()
	s.Pending.Reset()
	logger := log.WithComponent("reconciler")
	logger.Info().Msg("Session state cleared")
}

// Close stops the broker after delivering queued events
func (s *Store) Close() {
	s.Events.Stop()
}
