package bus

import (
	"github.com/kinbus/kinbus-go/contracts"
)

// UndeliveredMessage wraps a posted message that resolved to no mailboxes.
// The bus posts it through the normal delivery protocol in place of the
// original message; subscribe to *UndeliveredMessage to observe routing
// gaps. With no application subscriber it is absorbed by the built-in
// Discard fallback, silently — by default nobody is told that a message
// went nowhere.
type UndeliveredMessage struct {
	contracts.BaseMessage
	Bus     *Bus
	Message any
}

// NewUndeliveredMessage wraps an unroutable message
func NewUndeliveredMessage(b *Bus, msg any) *UndeliveredMessage {
	return &UndeliveredMessage{
		BaseMessage: contracts.NewBaseMessage("UndeliveredMessage"),
		Bus:         b,
		Message:     msg,
	}
}

// FailedMessage wraps a recoverable failure raised by a mailbox while it
// was handling Message. It is posted before the remaining mailboxes for
// Message run, so failure observers see failures interleaved in the order
// they occurred. Like UndeliveredMessage it falls through to Discard when
// no application subscriber exists.
type FailedMessage struct {
	contracts.BaseMessage
	Bus     *Bus
	Mailbox Mailbox
	Message any
	Err     error
}

// NewFailedMessage wraps a failed delivery
func NewFailedMessage(b *Bus, mailbox Mailbox, msg any, err error) *FailedMessage {
	return &FailedMessage{
		BaseMessage: contracts.NewBaseMessage("FailedMessage"),
		Bus:         b,
		Mailbox:     mailbox,
		Message:     msg,
		Err:         err,
	}
}

// Unwrap exposes the captured failure to errors.Is and errors.As.
func (f *FailedMessage) Unwrap() error {
	return f.Err
}
