// Package testutil holds helpers shared by the integration tests.
package testutil

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/auth"
	"github.com/stretchr/testify/require"
)

// IssueToken signs an access token for a fresh user holding roles
func IssueToken(t *testing.T, svc *auth.JWTService, roles ...string) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, _, err := svc.IssueAccessToken(auth.IssueInput{
		UserID:   userID,
		Username: "it-" + userID.String()[:8],
		Roles:    roles,
	})
	require.NoError(t, err)
	return token, userID
}

// EventRecorder is a bus subscriber that keeps every event it is handed
type EventRecorder struct {
	types []string

	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{types: eventTypes}
}

func (r *EventRecorder) EventTypes() []string { return r.types }

func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// Events returns what was recorded so far, in delivery order
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Types returns the types of the recorded events, in delivery order
func (r *EventRecorder) Types() []string {
	events := r.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}
