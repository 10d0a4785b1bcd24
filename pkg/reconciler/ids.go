package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
	"github.com/Weynie/van-construction-web-sub000/pkg/log"
	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
)

// TempPrefix marks identifiers fabricated locally before the backend has
// assigned a real one.
const TempPrefix = "temp_"

var (
	// ErrCreateFailed is returned when resolving a temp id whose create was
	// rolled back
	ErrCreateFailed = errors.New("create of temporary entity failed")

	// ErrUnmappedTempID is returned when resolving a temp id that is neither
	// mapped nor owned by an in-flight create
	ErrUnmappedTempID = errors.New("temporary id has no mapping")

	// ErrConflictingMapping is returned when a temp id is mapped twice to
	// different real ids
	ErrConflictingMapping = errors.New("temporary id already mapped to a different id")
)

// Publisher receives ID_MAPPED events
type Publisher interface {
	Publish(event *events.Event)
}

// IDs is the identifier space of one session. Mappings are append-only
// until Reset.
type IDs struct {
	mu       sync.Mutex
	mappings map[string]string
	reverse  map[string]string
	inflight map[string]chan struct{}
	failed   map[string]bool
	counter  atomic.Uint64
	events   Publisher
	now      func() time.Time
}

// NewIDs creates an empty identifier space. publisher may be nil.
func NewIDs(publisher Publisher) *IDs {
	return &IDs{
		mappings: make(map[string]string),
		reverse:  make(map[string]string),
		inflight: make(map[string]chan struct{}),
		failed:   make(map[string]bool),
		events:   publisher,
		now:      time.Now,
	}
}

// GenerateTempID returns a new temporary id of the form
// temp_<unix millis>_<9 base36 chars>. The last five characters come from a
// process-wide counter, so two ids generated in the same millisecond differ.
func (s *IDs) GenerateTempID() string {
	n := s.counter.Add(1)

	random := uuid.New()
	var r uint64
	for _, b := range random[:8] {
		r = r<<8 | uint64(b)
	}

	suffix := pad36(r%(36*36*36*36), 4) + pad36(n%(36*36*36*36*36), 5)
	return fmt.Sprintf("%s%d_%s", TempPrefix, s.now().UnixMilli(), suffix)
}

func pad36(v uint64, width int) string {
	out := strconv.FormatUint(v, 36)
	if len(out) < width {
		out = strings.Repeat("0", width-len(out)) + out
	}
	return out
}

// IsTempID reports whether id was fabricated by GenerateTempID
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// IsTempID reports whether id was fabricated by GenerateTempID
func (s *IDs) IsTempID(id string) bool {
	return IsTempID(id)
}

// BeginCreate marks tempID as owned by a create that has not finished yet.
// Resolve blocks on it until MapTempID or FailCreate is called.
func (s *IDs) BeginCreate(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inflight[tempID]; ok {
		return
	}
	s.inflight[tempID] = make(chan struct{})
}

// FailCreate records that the create owning tempID rolled back
func (s *IDs) FailCreate(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed[tempID] = true
	if ch, ok := s.inflight[tempID]; ok {
		close(ch)
		delete(s.inflight, tempID)
	}
}

// MapTempID records tempID -> realID and broadcasts ID_MAPPED. Mapping the
// same pair again is a no-op.
func (s *IDs) MapTempID(tempID, realID string) error {
	if !IsTempID(tempID) {
		return fmt.Errorf("cannot map %q: not a temporary id", tempID)
	}
	if realID == "" {
		return fmt.Errorf("cannot map %q to an empty id", tempID)
	}

	s.mu.Lock()
	if existing, ok := s.mappings[tempID]; ok {
		s.mu.Unlock()
		if existing == realID {
			return nil
		}
		return fmt.Errorf("%w: %s -> %s (have %s)", ErrConflictingMapping, tempID, realID, existing)
	}
	s.mappings[tempID] = realID
	s.reverse[realID] = tempID
	delete(s.failed, tempID)
	if ch, ok := s.inflight[tempID]; ok {
		close(ch)
		delete(s.inflight, tempID)
	}
	s.mu.Unlock()

	metrics.IDMappingsTotal.Inc()
	logger := log.WithComponent("reconciler")
	logger.Debug().
		Str("temp_id", tempID).
		Str("real_id", realID).
		Msg("Mapped temporary id")

	if s.events != nil {
		s.events.Publish(&events.Event{
			Type:   events.EventIDMapped,
			TempID: tempID,
			RealID: realID,
		})
	}
	return nil
}

// RealID returns the real id mapped to id, or id itself. It never blocks.
func (s *IDs) RealID(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if real, ok := s.mappings[id]; ok {
		return real
	}
	return id
}

// Aliases returns id together with every id known to name the same
// entity: its real id when id is a mapped temp id, or the temp id it was
// created under when id is real.
func (s *IDs) Aliases(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	aliases := []string{id}
	if real, ok := s.mappings[id]; ok {
		aliases = append(aliases, real)
	}
	if temp, ok := s.reverse[id]; ok {
		aliases = append(aliases, temp)
	}
	return aliases
}

// Resolve is like RealID but waits while the create owning a temp id is
// still in flight.
func (s *IDs) Resolve(ctx context.Context, id string) (string, error) {
	if !IsTempID(id) {
		return id, nil
	}

	for {
		s.mu.Lock()
		if real, ok := s.mappings[id]; ok {
			s.mu.Unlock()
			return real, nil
		}
		if s.failed[id] {
			s.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrCreateFailed, id)
		}
		ch, ok := s.inflight[id]
		s.mu.Unlock()

		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnmappedTempID, id)
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Len returns the number of recorded mappings
func (s *IDs) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mappings)
}

// Reset forgets every mapping. Waiters on in-flight creates are released
// and fail with ErrUnmappedTempID.
func (s *IDs) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.inflight {
		close(ch)
		delete(s.inflight, id)
	}
	s.mappings = make(map[string]string)
	s.reverse = make(map[string]string)
	s.failed = make(map[string]bool)
}
