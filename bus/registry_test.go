package bus

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kinbus/kinbus-go/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test message types spanning a small hierarchy:
// contracts.Message ⊃ contracts.Event ⊃ *orderPlaced, and orderMessage is a
// second supertype of *orderPlaced unrelated to the contracts interfaces.
type orderPlaced struct {
	contracts.BaseEvent
	OrderID string
}

func (o *orderPlaced) GetOrderID() string { return o.OrderID }

type orderCancelled struct {
	contracts.BaseEvent
	OrderID string
}

func (o *orderCancelled) GetOrderID() string { return o.OrderID }

type orderMessage interface {
	GetOrderID() string
}

// note is a plain message with no envelope
type note struct {
	Text string
}

// recorder appends its name to a shared log on every delivery
type recorder struct {
	name string
	log  *[]string
	err  error
}

func (r *recorder) Deliver(ctx context.Context, msg any) error {
	*r.log = append(*r.log, r.name)
	return r.err
}

func newOrderPlaced(orderID string) *orderPlaced {
	return &orderPlaced{
		BaseEvent: contracts.NewBaseEvent("OrderPlaced", orderID),
		OrderID:   orderID,
	}
}

func TestRegistrySubscribe(t *testing.T) {
	t.Run("creates entry and preserves FIFO order", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		m1 := &recorder{name: "m1", log: &log}
		m2 := &recorder{name: "m2", log: &log}

		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m1))
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m2))

		resolved := reg.Resolve(TypeOf[*orderPlaced]())
		assert.Equal(t, []Mailbox{m1, m2}, resolved)
	})

	t.Run("duplicate subscription produces duplicate deliveries", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		m1 := &recorder{name: "m1", log: &log}

		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m1))
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m1))

		assert.Len(t, reg.Resolve(TypeOf[*orderPlaced]()), 2)
	})

	t.Run("nil type is rejected", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Subscribe(nil, Discard)
		assert.ErrorIs(t, err, ErrNilType)
	})

	t.Run("nil mailbox is rejected", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Subscribe(TypeOf[*orderPlaced](), nil)
		assert.ErrorIs(t, err, ErrNilMailbox)
	})
}

func TestRegistryUnsubscribe(t *testing.T) {
	t.Run("removes the mailbox and keeps the rest in order", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		m1 := &recorder{name: "m1", log: &log}
		m2 := &recorder{name: "m2", log: &log}
		m3 := &recorder{name: "m3", log: &log}
		for _, m := range []Mailbox{m1, m2, m3} {
			require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m))
		}

		require.NoError(t, reg.Unsubscribe(TypeOf[*orderPlaced](), m2))

		assert.Equal(t, []Mailbox{m1, m3}, reg.Resolve(TypeOf[*orderPlaced]()))
	})

	t.Run("removes only the first of duplicate subscriptions", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		m1 := &recorder{name: "m1", log: &log}
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m1))
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m1))

		require.NoError(t, reg.Unsubscribe(TypeOf[*orderPlaced](), m1))

		assert.Len(t, reg.Resolve(TypeOf[*orderPlaced]()), 1)
	})

	t.Run("fails for a type with no registrations", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Unsubscribe(TypeOf[*orderPlaced](), Discard)
		assert.ErrorIs(t, err, ErrTypeNotRegistered)
	})

	t.Run("fails for a mailbox never subscribed to the type", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		m1 := &recorder{name: "m1", log: &log}
		m2 := &recorder{name: "m2", log: &log}
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m1))

		err := reg.Unsubscribe(TypeOf[*orderPlaced](), m2)
		assert.ErrorIs(t, err, ErrMailboxNotFound)
	})

	t.Run("removing the last mailbox drops the type key", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		m1 := &recorder{name: "m1", log: &log}
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m1))

		require.NoError(t, reg.Unsubscribe(TypeOf[*orderPlaced](), m1))

		assert.Empty(t, reg.Types())
		assert.NotContains(t, reg.Snapshot(), TypeOf[*orderPlaced]())
	})

	t.Run("func mailboxes are matched by code pointer", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Subscribe(TypeOf[note](), MailboxFunc(dropNote)))

		err := reg.Unsubscribe(TypeOf[note](), MailboxFunc(dropNote))
		assert.NoError(t, err)
		assert.Empty(t, reg.Types())
	})
}

func dropNote(ctx context.Context, msg any) error { return nil }

func TestRegistryResolve(t *testing.T) {
	t.Run("includes assignable types and excludes the rest", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		placed := &recorder{name: "placed", log: &log}
		cancelled := &recorder{name: "cancelled", log: &log}
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), placed))
		require.NoError(t, reg.Subscribe(TypeOf[*orderCancelled](), cancelled))

		resolved := reg.Resolve(TypeOf[*orderPlaced]())

		assert.Equal(t, []Mailbox{placed}, resolved)
	})

	t.Run("supertypes resolve before subtypes regardless of registration order", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		concrete := &recorder{name: "concrete", log: &log}
		event := &recorder{name: "event", log: &log}
		message := &recorder{name: "message", log: &log}

		// Most specific registered first; resolution must still put the
		// most general supertype in front.
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), concrete))
		require.NoError(t, reg.Subscribe(TypeOf[contracts.Event](), event))
		require.NoError(t, reg.Subscribe(TypeOf[contracts.Message](), message))

		resolved := reg.Resolve(TypeOf[*orderPlaced]())

		assert.Equal(t, []Mailbox{message, event, concrete}, resolved)
	})

	t.Run("supertype precedes subtype with an unrelated type between them", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		event := &recorder{name: "event", log: &log}
		byOrder := &recorder{name: "byOrder", log: &log}
		message := &recorder{name: "message", log: &log}

		// orderMessage is unrelated to both contracts interfaces and is
		// registered between the subtype and its supertype, so the sort
		// never sees the related pair side by side. The supertype's
		// mailbox must still resolve ahead of the subtype's.
		require.NoError(t, reg.Subscribe(TypeOf[contracts.Event](), event))
		require.NoError(t, reg.Subscribe(TypeOf[orderMessage](), byOrder))
		require.NoError(t, reg.Subscribe(TypeOf[contracts.Message](), message))

		resolved := reg.Resolve(TypeOf[*orderPlaced]())

		assert.Equal(t, []Mailbox{byOrder, message, event}, resolved)
	})

	t.Run("incomparable types keep first-registration order", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		byOrder := &recorder{name: "byOrder", log: &log}
		byEnvelope := &recorder{name: "byEnvelope", log: &log}

		// orderMessage and contracts.Message are both supertypes of
		// *orderPlaced with no relation between each other.
		require.NoError(t, reg.Subscribe(TypeOf[orderMessage](), byOrder))
		require.NoError(t, reg.Subscribe(TypeOf[contracts.Message](), byEnvelope))
		assert.Equal(t, []Mailbox{byOrder, byEnvelope}, reg.Resolve(TypeOf[*orderPlaced]()))

		// Reversed registration order reverses the tie-break.
		reversed := NewRegistry()
		require.NoError(t, reversed.Subscribe(TypeOf[contracts.Message](), byEnvelope))
		require.NoError(t, reversed.Subscribe(TypeOf[orderMessage](), byOrder))
		assert.Equal(t, []Mailbox{byEnvelope, byOrder}, reversed.Resolve(TypeOf[*orderPlaced]()))
	})

	t.Run("no match resolves to an empty sequence", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		require.NoError(t, reg.Subscribe(TypeOf[*orderCancelled](), &recorder{name: "m", log: &log}))

		assert.Empty(t, reg.Resolve(TypeOf[note]()))
	})

	t.Run("resolution is idempotent without intervening mutation", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		require.NoError(t, reg.Subscribe(TypeOf[contracts.Message](), &recorder{name: "a", log: &log}))
		require.NoError(t, reg.Subscribe(TypeOf[orderMessage](), &recorder{name: "b", log: &log}))
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), &recorder{name: "c", log: &log}))

		first := reg.Resolve(TypeOf[*orderPlaced]())
		second := reg.Resolve(TypeOf[*orderPlaced]())

		assert.Equal(t, first, second)
	})

	t.Run("nil type resolves to nothing", func(t *testing.T) {
		reg := NewRegistry()
		assert.Empty(t, reg.Resolve(nil))
	})
}

func TestRegistryIntrospection(t *testing.T) {
	t.Run("Types returns keys in first-registration order", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		m := &recorder{name: "m", log: &log}
		require.NoError(t, reg.Subscribe(TypeOf[*orderCancelled](), m))
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m))
		require.NoError(t, reg.Subscribe(TypeOf[note](), m))

		assert.Equal(t,
			[]reflect.Type{TypeOf[*orderCancelled](), TypeOf[*orderPlaced](), TypeOf[note]()},
			reg.Types())
	})

	t.Run("Snapshot is isolated from the registry", func(t *testing.T) {
		reg := NewRegistry()
		var log []string
		m1 := &recorder{name: "m1", log: &log}
		m2 := &recorder{name: "m2", log: &log}
		require.NoError(t, reg.Subscribe(TypeOf[*orderPlaced](), m1))

		snapshot := reg.Snapshot()
		snapshot[TypeOf[*orderPlaced]()][0] = m2

		assert.Equal(t, []Mailbox{m1}, reg.Resolve(TypeOf[*orderPlaced]()))
	})
}

func TestUnsubscribeErrorMessages(t *testing.T) {
	reg := NewRegistry()
	err := reg.Unsubscribe(TypeOf[*orderPlaced](), Discard)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeNotRegistered))
	assert.Contains(t, err.Error(), "orderPlaced")
}
