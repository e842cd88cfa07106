// Package contracts provides the optional message envelope for the kinbus
// bus.
//
// The bus itself routes any Go value by its runtime type; nothing here is
// required. Messages that embed BaseMessage (or BaseEvent/BaseCommand) gain
// generated IDs, UTC timestamps, and correlation IDs, and satisfy the
// Message interface — which also makes that interface, and the narrower
// Event and Command interfaces, usable as supertype registry keys: a
// mailbox subscribed to contracts.Event receives every event message
// regardless of its concrete type.
package contracts
