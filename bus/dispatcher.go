package bus

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/kinbus/kinbus-go/contracts"
)

// Bus routes posted messages to every mailbox registered for the message's
// runtime type or any of its supertypes, in the order defined by
// Registry.Resolve, synchronously on the calling goroutine.
//
// Delivery failures never escape Post: a mailbox error becomes a
// FailedMessage posted through the same protocol, and a message with no
// subscribers becomes an UndeliveredMessage. Both wrapper types get a
// Discard fallback subscription at construction, which is what stops the
// wrapping chain from recursing forever — a wrapper about a wrapper still
// resolves to at least Discard and terminates in one extra hop. An
// application that unsubscribes those fallbacks forfeits that guarantee.
//
// Panics are the fatal category: the bus never recovers them, they unwind
// the whole dispatch cascade out of Post.
type Bus struct {
	registry   *Registry
	logger     *slog.Logger
	middleware []MiddlewareFunc
}

// MiddlewareFunc runs around every mailbox delivery. Returning an error
// counts as a recoverable failure of the wrapped mailbox.
type MiddlewareFunc func(ctx context.Context, msg any, next Mailbox) error

// BusOption configures the Bus
type BusOption func(*Bus)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithMiddleware adds middleware around every delivery
func WithMiddleware(middleware ...MiddlewareFunc) BusOption {
	return func(b *Bus) {
		b.middleware = append(b.middleware, middleware...)
	}
}

// NewBus creates a bus with an empty registry and the two fallback
// subscriptions installed.
func NewBus(options ...BusOption) *Bus {
	b := &Bus{
		registry: NewRegistry(),
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(b)
	}

	// The fallbacks guarantee the wrapper types always resolve to at
	// least one mailbox, so the wrapping chain terminates. Application
	// subscribers to the wrapper types are appended after them and both
	// fire, FIFO within the type.
	_ = b.registry.Subscribe(TypeOf[*UndeliveredMessage](), Discard)
	_ = b.registry.Subscribe(TypeOf[*FailedMessage](), Discard)

	return b
}

// Registry exposes the bus's registry for direct introspection.
func (b *Bus) Registry() *Registry {
	return b.registry
}

// Subscribe registers mailbox for messages assignable to msgType.
func (b *Bus) Subscribe(msgType reflect.Type, mailbox Mailbox) error {
	if err := b.registry.Subscribe(msgType, mailbox); err != nil {
		return err
	}
	b.logger.Debug("subscribed mailbox", "messageType", typeName(msgType))
	return nil
}

// Unsubscribe removes a previously registered (type, mailbox) pair.
func (b *Bus) Unsubscribe(msgType reflect.Type, mailbox Mailbox) error {
	if err := b.registry.Unsubscribe(msgType, mailbox); err != nil {
		return err
	}
	b.logger.Debug("unsubscribed mailbox", "messageType", typeName(msgType))
	return nil
}

// Post routes msg to every compatible mailbox, supertype subscribers
// first, and returns only for a nil message. Mailbox failures are absorbed
// into FailedMessage traffic; the poster is never told about them.
func (b *Bus) Post(ctx context.Context, msg any) error {
	if msg == nil {
		return ErrNilMessage
	}

	concrete := reflect.TypeOf(msg)
	mailboxes := b.registry.Resolve(concrete)

	if len(mailboxes) == 0 {
		b.logger.Debug("no mailboxes for message", messageAttrs(concrete, msg)...)
		return b.Post(ctx, NewUndeliveredMessage(b, msg))
	}

	for _, mailbox := range mailboxes {
		target := b.buildMiddlewareChain(mailbox)
		if err := target.Deliver(ctx, msg); err != nil {
			b.logger.Error("mailbox failed",
				append(messageAttrs(concrete, msg), "error", err)...)
			// Failures are interleaved: the wrapper is posted before the
			// next mailbox in the original list runs.
			_ = b.Post(ctx, NewFailedMessage(b, mailbox, msg, err))
		}
	}

	b.logger.Debug("message posted",
		append(messageAttrs(concrete, msg), "mailboxCount", len(mailboxes))...)
	return nil
}

// buildMiddlewareChain wraps mailbox in the configured middleware, built
// in reverse order so the first middleware added is the outermost.
func (b *Bus) buildMiddlewareChain(mailbox Mailbox) Mailbox {
	if len(b.middleware) == 0 {
		return mailbox
	}

	result := mailbox
	for i := len(b.middleware) - 1; i >= 0; i-- {
		middleware := b.middleware[i]
		next := result
		result = MailboxFunc(func(ctx context.Context, msg any) error {
			return middleware(ctx, msg, next)
		})
	}

	return result
}

// LoggingMiddleware logs every delivery with its duration.
func LoggingMiddleware(logger *slog.Logger) MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, msg any, next Mailbox) error {
		start := time.Now()
		err := next.Deliver(ctx, msg)
		duration := time.Since(start)

		attrs := append(messageAttrs(reflect.TypeOf(msg), msg), "duration", duration)
		if err != nil {
			logger.Error("delivery failed", append(attrs, "error", err)...)
		} else {
			logger.Debug("delivered", attrs...)
		}
		return err
	}
}

// messageAttrs builds log attributes for msg, including the envelope ID
// when the message carries one.
func messageAttrs(concrete reflect.Type, msg any) []any {
	attrs := []any{"messageType", typeName(concrete)}
	if m, ok := msg.(contracts.Message); ok {
		attrs = append(attrs, "messageId", m.GetID())
	}
	return attrs
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
