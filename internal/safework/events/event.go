// Package events publishes entity lifecycle events to Kafka and consumes
// them for auditing. Events describe committed writes; they are never the
// source of truth and may be dropped under back-pressure.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	Created     EventType = "created"
	Updated     EventType = "updated"
	Deactivated EventType = "deactivated"
	Deleted     EventType = "deleted"
)

// Entity names carried by events.
const (
	EntityProvider = "provider"
	EntityClient   = "client"
	EntityEmployee = "employee"
	EntityAddress  = "address"
	EntityContract = "contract"
	EntityExam     = "exam"
	EntityProfile  = "profile"
	EntityUser     = "user"
)

// Event is the wire form of a lifecycle event.
type Event struct {
	Type   EventType `json:"type"`
	Entity string    `json:"entity"`
	ID     uuid.UUID `json:"id"`
	Actor  uuid.UUID `json:"actor"`
	At     time.Time `json:"at"`
}

// New builds an event stamped with the current time.
func New(t EventType, entity string, id, actor uuid.UUID) Event {
	return Event{Type: t, Entity: entity, ID: id, Actor: actor, At: time.Now().UTC()}
}

// Discard drops every event. It stands in for the producer when no broker
// is configured.
type Discard struct{}

func (Discard) Produce(Event) {}

func (Discard) Close() {}
