package contracts

import (
	"time"
)

// Message is the optional envelope interface for bus messages. The bus
// routes any value; messages that implement Message additionally get their
// ID attached to bus logs, and the interface itself is a useful registry
// key for hierarchy-wide subscriptions.
type Message interface {
	GetID() string
	GetTimestamp() time.Time
	GetType() string
	GetCorrelationID() string
	SetCorrelationID(correlationID string)
}

// Command represents an action to be performed
type Command interface {
	Message
	GetTargetService() string
}

// Event represents something that has happened
type Event interface {
	Message
	GetAggregateID() string
	GetSequence() int64
}
