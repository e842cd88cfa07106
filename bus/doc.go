// Package bus implements a synchronous, in-process publish/subscribe
// dispatcher that routes messages by their runtime type hierarchy.
//
// A mailbox subscribes to a reflect.Type key; a posted message is delivered
// to every mailbox whose key the message's runtime type is assignable to,
// so interface keys act as supertype subscriptions. Deliveries are ordered:
//   - supertype subscribers before subtype subscribers
//   - unrelated compatible types in first-registration order
//   - FIFO within a single type
//
// Failures become traffic, not errors:
//   - a message nobody matches is re-posted as an *UndeliveredMessage
//   - a mailbox returning an error produces a *FailedMessage, posted before
//     the remaining mailboxes run
//   - panics are fatal and propagate out of Post unrecovered
//
// Both wrapper types carry a built-in Discard fallback subscription, so by
// default routing gaps and delivery failures are absorbed silently. That is
// deliberate but easy to miss: an application that wants to see them must
// subscribe to the wrapper types itself.
//
// Everything runs on the calling goroutine. A mailbox that posts recurses
// on the same stack; a mailbox that blocks blocks the bus. The registry's
// internal lock makes individual operations atomic, but cross-goroutine
// ordering is the embedding application's responsibility.
//
// Example usage:
//
//	b := bus.NewBus()
//
//	// Audit every envelope message, fulfil one concrete type.
//	_ = b.Subscribe(bus.TypeOf[contracts.Message](), auditor)
//	_ = b.Subscribe(bus.TypeOf[*OrderPlaced](), fulfillment)
//
//	// Observe routing failures.
//	_ = b.Subscribe(bus.TypeOf[*bus.FailedMessage](), bus.MailboxFunc(
//		func(ctx context.Context, msg any) error {
//			f := msg.(*bus.FailedMessage)
//			log.Printf("delivery failed: %v", f.Err)
//			return nil
//		}))
//
//	_ = b.Post(ctx, &OrderPlaced{...}) // auditor first, then fulfillment
package bus
