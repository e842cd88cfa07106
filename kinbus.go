// Package kinbus is the convenience entry point for the kinbus in-process
// message bus.
//
// It wraps the bus package's Bus in a Client and adds generic typed
// subscription sugar, so most applications never touch reflect.Type
// directly:
//
//	c := kinbus.NewClient()
//
//	mb, err := kinbus.Subscribe(c, func(ctx context.Context, e *OrderPlaced) error {
//		return fulfil(ctx, e)
//	})
//	...
//	err = c.Post(ctx, &OrderPlaced{...})
//	err = kinbus.Unsubscribe[*OrderPlaced](c, mb)
//
// See the bus package for the routing, ordering, and failure-wrapping
// contract, and the contracts package for the optional message envelope.
package kinbus

import (
	"context"
	"fmt"

	"github.com/kinbus/kinbus-go/bus"
)

// Client provides the main entry point for kinbus
type Client struct {
	bus *bus.Bus
}

// NewClient creates a client around a freshly constructed bus.
func NewClient(options ...bus.BusOption) *Client {
	return &Client{bus: bus.NewBus(options...)}
}

// Bus returns the underlying bus for direct registry access.
func (c *Client) Bus() *bus.Bus {
	return c.bus
}

// Post routes msg through the bus.
func (c *Client) Post(ctx context.Context, msg any) error {
	return c.bus.Post(ctx, msg)
}

// Subscribe registers fn for messages assignable to T and returns the
// mailbox that was created, which is the handle Unsubscribe needs. T may be
// a concrete message type or an interface supertype.
func Subscribe[T any](c *Client, fn func(ctx context.Context, msg T) error) (bus.Mailbox, error) {
	if fn == nil {
		return nil, bus.ErrNilMailbox
	}
	mb := &typedMailbox[T]{fn: fn}
	if err := c.bus.Subscribe(bus.TypeOf[T](), mb); err != nil {
		return nil, err
	}
	return mb, nil
}

// Unsubscribe removes a mailbox previously returned by Subscribe[T].
func Unsubscribe[T any](c *Client, mailbox bus.Mailbox) error {
	return c.bus.Unsubscribe(bus.TypeOf[T](), mailbox)
}

// typedMailbox adapts a typed handler func to the Mailbox interface. It is
// a pointer subscriber, so every Subscribe call yields a distinct identity
// for unsubscribe purposes.
type typedMailbox[T any] struct {
	fn func(ctx context.Context, msg T) error
}

func (m *typedMailbox[T]) Deliver(ctx context.Context, msg any) error {
	typed, ok := msg.(T)
	if !ok {
		// Unreachable through the bus, which only routes assignable
		// messages here; guards direct Deliver calls.
		return fmt.Errorf("mailbox for %s received %T", bus.TypeOf[T](), msg)
	}
	return m.fn(ctx, typed)
}
