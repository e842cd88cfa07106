package contracts

import (
	"time"

	"github.com/google/uuid"
)

// BaseMessage provides common fields for all message types
type BaseMessage struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// NewBaseMessage creates a new base message with generated ID and current timestamp
func NewBaseMessage(messageType string) BaseMessage {
	return BaseMessage{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      messageType,
	}
}

// GetID returns the message ID
func (m BaseMessage) GetID() string {
	return m.ID
}

// GetTimestamp returns the message timestamp
func (m BaseMessage) GetTimestamp() time.Time {
	return m.Timestamp
}

// GetType returns the message type
func (m BaseMessage) GetType() string {
	return m.Type
}

// GetCorrelationID returns the correlation ID
func (m BaseMessage) GetCorrelationID() string {
	return m.CorrelationID
}

// SetCorrelationID sets the correlation ID
func (m *BaseMessage) SetCorrelationID(correlationID string) {
	m.CorrelationID = correlationID
}

// BaseCommand provides common fields for command messages
type BaseCommand struct {
	BaseMessage
	TargetService string `json:"targetService"`
}

// GetTargetService returns the target service for the command
func (c BaseCommand) GetTargetService() string {
	return c.TargetService
}

// BaseEvent provides common fields for event messages
type BaseEvent struct {
	BaseMessage
	AggregateID string `json:"aggregateId"`
	Sequence    int64  `json:"sequence"`
	Source      string `json:"source,omitempty"`
}

// GetAggregateID returns the aggregate ID
func (e BaseEvent) GetAggregateID() string {
	return e.AggregateID
}

// GetSequence returns the event sequence number
func (e BaseEvent) GetSequence() int64 {
	return e.Sequence
}

// NewBaseCommand creates a new command with generated ID and current timestamp
func NewBaseCommand(messageType string) BaseCommand {
	return BaseCommand{
		BaseMessage: NewBaseMessage(messageType),
	}
}

// NewBaseEvent creates a new event with generated ID and current timestamp
func NewBaseEvent(messageType, aggregateID string) BaseEvent {
	return BaseEvent{
		BaseMessage: NewBaseMessage(messageType),
		AggregateID: aggregateID,
	}
}
