package bus

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry maps message types to the ordered mailboxes subscribed to them.
//
// Keys are reflect.Type values; a registered type receives a message when
// the message's runtime type is assignable to it, so interface keys collect
// every implementation and concrete keys collect exact matches. Within one
// key, mailboxes keep subscription (FIFO) order.
//
// The registry carries an internal read-write lock so subscribe,
// unsubscribe, and resolve are individually atomic. That is an extension
// beyond the bus's single-threaded contract: cross-call ordering between
// goroutines is still the embedding application's problem.
type Registry struct {
	mailboxes map[reflect.Type][]Mailbox
	order     []reflect.Type // live keys in first-registration order
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		mailboxes: make(map[reflect.Type][]Mailbox),
	}
}

// Subscribe appends mailbox to the FIFO list for msgType, creating the
// entry on first use. Subscribing the same mailbox to the same type twice
// is permitted and produces duplicate deliveries.
func (r *Registry) Subscribe(msgType reflect.Type, mailbox Mailbox) error {
	if msgType == nil {
		return ErrNilType
	}
	if mailbox == nil {
		return ErrNilMailbox
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mailboxes[msgType]; !exists {
		r.order = append(r.order, msgType)
	}
	r.mailboxes[msgType] = append(r.mailboxes[msgType], mailbox)
	return nil
}

// Unsubscribe removes the first mailbox equal to mailbox (see sameMailbox
// in mailbox.go for the equality notion) from the list for msgType. The
// type's entry is dropped entirely once its list empties. Unsubscribing a
// pair that was never registered is a programmer error and fails with
// ErrTypeNotRegistered or ErrMailboxNotFound.
func (r *Registry) Unsubscribe(msgType reflect.Type, mailbox Mailbox) error {
	if msgType == nil {
		return ErrNilType
	}
	if mailbox == nil {
		return ErrNilMailbox
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list, exists := r.mailboxes[msgType]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTypeNotRegistered, msgType)
	}

	for i, mb := range list {
		if sameMailbox(mb, mailbox) {
			r.mailboxes[msgType] = append(list[:i], list[i+1:]...)
			if len(r.mailboxes[msgType]) == 0 {
				delete(r.mailboxes, msgType)
				r.dropKey(msgType)
			}
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrMailboxNotFound, msgType)
}

// dropKey removes msgType from the registration-order index. Caller holds
// the write lock.
func (r *Registry) dropKey(msgType reflect.Type) {
	for i, t := range r.order {
		if t == msgType {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Resolve returns every mailbox whose registered type is assignable from
// concrete, supertypes first. An empty result means no subscriber matched;
// that is a valid outcome, not an error.
//
// Ordering contract:
//   - a registered supertype's mailboxes come before any of its registered
//     subtypes' mailboxes, so general handlers see the message first
//   - registered types with no assignability relation between each other
//     rank by their number of candidate supertypes, fewest first; exact
//     ties keep first-registration order (the sort is stable)
//   - within one registered type, mailboxes keep FIFO subscription order
//
// Only types assignable from concrete are ever compared; the comparator is
// undefined for arbitrary unrelated types and is never applied to them.
func (r *Registry) Resolve(concrete reflect.Type) []Mailbox {
	if concrete == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]reflect.Type, 0, len(r.order))
	for _, t := range r.order {
		if concrete.AssignableTo(t) {
			candidates = append(candidates, t)
		}
	}

	// The subtype relation is partial, and a pairwise supertype-first
	// comparator is not the total order sorting requires: with an
	// unrelated candidate sitting between a subtype and its supertype,
	// the sort never compares the related pair and leaves the subtype in
	// front. Ranking each candidate by its number of candidate supertypes
	// (itself included) linearizes the relation instead: assignability is
	// transitive, so a strict subtype counts every supertype its
	// supertype counts plus that supertype, and always ranks higher.
	// Equal ranks keep first-registration order through the stable sort.
	ranks := make(map[reflect.Type]int, len(candidates))
	for _, t := range candidates {
		for _, u := range candidates {
			if t.AssignableTo(u) {
				ranks[t]++
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return ranks[candidates[i]] < ranks[candidates[j]]
	})

	var resolved []Mailbox
	for _, t := range candidates {
		resolved = append(resolved, r.mailboxes[t]...)
	}
	return resolved
}

// Types returns the registered message types in first-registration order.
func (r *Registry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]reflect.Type, len(r.order))
	copy(types, r.order)
	return types
}

// Snapshot returns a copy of the full type to mailboxes mapping for
// introspection. Mutating the copy does not affect the registry.
func (r *Registry) Snapshot() map[reflect.Type][]Mailbox {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[reflect.Type][]Mailbox, len(r.mailboxes))
	for t, list := range r.mailboxes {
		copied := make([]Mailbox, len(list))
		copy(copied, list)
		snapshot[t] = copied
	}
	return snapshot
}
