package bus

import (
	"errors"
)

var (
	// Registry misuse errors
	ErrNilType           = errors.New("registry: message type cannot be nil")
	ErrNilMailbox        = errors.New("registry: mailbox cannot be nil")
	ErrTypeNotRegistered = errors.New("registry: no mailboxes registered for message type")
	ErrMailboxNotFound   = errors.New("registry: mailbox not found for message type")

	// Posting errors
	ErrNilMessage = errors.New("bus: message cannot be nil")
)
