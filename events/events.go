// Package events publishes identity lifecycle events to a message broker.
//
// Publishing is best effort: callers log a failed publish and carry on, an
// auth operation never fails because the broker is down.
package events

import (
	"context"
	"time"
)

// Routing keys.
const (
	KeyRegistered = "identity.registered"
	KeyLoggedIn   = "identity.logged_in"
	KeyLinked     = "identity.linked"
)

// Event is the message body, encoded as JSON.
type Event struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name,omitempty"`
	Method string    `json:"method"` // password | oauth2
	Time   time.Time `json:"time"`
}

// Publisher sends an event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
	Close() error
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func NewNoop() Publisher { return Noop{} }

func (Noop) Publish(ctx context.Context, key string, event Event) error { return nil }
func (Noop) Close() error                                               { return nil }
