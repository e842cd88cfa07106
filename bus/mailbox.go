package bus

import (
	"context"
	"reflect"
)

// Mailbox receives messages delivered by the bus.
//
// A nil return value means the message was handled. A non-nil error is a
// recoverable failure: the bus wraps it in a FailedMessage and keeps
// delivering to the remaining mailboxes. A panic is fatal and propagates
// out of Post unrecovered.
type Mailbox interface {
	Deliver(ctx context.Context, msg any) error
}

// MailboxFunc is a function adapter for Mailbox
type MailboxFunc func(ctx context.Context, msg any) error

// Deliver implements Mailbox
func (f MailboxFunc) Deliver(ctx context.Context, msg any) error {
	return f(ctx, msg)
}

// Discard accepts any message and does nothing with it. The bus registers
// it as the fallback mailbox for UndeliveredMessage and FailedMessage at
// construction; applications can also use it to swallow traffic they only
// want routed for its side effects on other subscribers.
var Discard Mailbox = discard{}

type discard struct{}

func (discard) Deliver(ctx context.Context, msg any) error { return nil }

// sameMailbox reports whether two mailboxes are the same subscriber for
// unsubscribe purposes. Mailboxes with a comparable dynamic type (pointers,
// Discard) compare by interface equality. Func-typed mailboxes such as
// MailboxFunc compare by code pointer; note that closures created from the
// same function literal share a code pointer and are therefore
// indistinguishable. Register pointer mailboxes when precise removal of one
// of several similar subscribers matters.
func sameMailbox(a, b Mailbox) bool {
	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Kind() == reflect.Func || vb.Kind() == reflect.Func {
		return va.Kind() == vb.Kind() && va.Pointer() == vb.Pointer()
	}
	if !va.Type().Comparable() || !vb.Type().Comparable() {
		return false
	}
	return a == b
}
