package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopdesk/backoffice/internal/domain/shared"
)

// EventSerializer turns domain events into outbox payloads and back. Only
// registered event types can be rebuilt from a payload.
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

// NewEventSerializer creates a new event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]func() shared.DomainEvent)}
}

// RegisterEvent makes eventType decodable into a fresh *T. Registering the
// same type name twice keeps the latest registration.
func RegisterEvent[T any, P interface {
	*T
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = func() shared.DomainEvent { return P(new(T)) }
}

// Knows reports whether eventType can be deserialized
func (s *EventSerializer) Knows(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[eventType]
	return ok
}

// Serialize encodes an event as JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize rebuilds the event stored under eventType. A payload whose own
// event type disagrees with the row is rejected as corrupt.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	factory, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	if got := event.EventType(); got != eventType {
		return nil, fmt.Errorf("payload carries event type %q, row says %q", got, eventType)
	}
	return event, nil
}
