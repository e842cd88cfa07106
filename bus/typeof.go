package bus

import (
	"reflect"
)

// TypeOf returns the registry key for T. Unlike reflect.TypeOf on an
// instance, it works for interface types, which is how a mailbox subscribes
// to a whole branch of a message hierarchy:
//
//	reg.Subscribe(bus.TypeOf[contracts.Event](), auditor)   // every event
//	reg.Subscribe(bus.TypeOf[*OrderPlaced](), fulfillment)  // one concrete type
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
