package relay

import (
	"github.com/drblury/busbridge/internal/relay/bus"
	errspkg "github.com/drblury/busbridge/internal/relay/errors"
	"github.com/drblury/busbridge/internal/relay/logging"
)

// The pools are fixed-capacity arenas of bindings indexed by topic identity.
// Capacity never grows at runtime: a relay that needs more slots than
// configured is a configuration error, and the excess topics are dropped from
// relaying with a logged capacity error while existing bindings stay intact.
//
// Shared invalid sentinels returned on exhaustion. Every operation on them is
// a no-op reporting no data.
var (
	invalidSubscription = &SubscriptionBinding{}
	invalidPublication  = &PublicationBinding{}
)

// SubscriptionBinding owns a live bus read handle for one topic. A binding
// whose subscribe failed stays in its slot permanently invalid; its methods
// report no data so the topic is simply never relayed.
type SubscriptionBinding struct {
	topic Topic
	sub   bus.Subscription
}

// Valid reports whether the binding holds a live bus handle.
func (b *SubscriptionBinding) Valid() bool { return b.sub != nil }

// Topic returns the bound topic. Zero for the invalid sentinel.
func (b *SubscriptionBinding) Topic() Topic { return b.topic }

// Updated polls the bus for a fresh payload. Always false on an invalid
// binding.
func (b *SubscriptionBinding) Updated() bool {
	return b.sub != nil && b.sub.Updated()
}

// Copy copies the latest bus payload into dst.
func (b *SubscriptionBinding) Copy(dst []byte) bool {
	return b.sub != nil && b.sub.Copy(dst)
}

func (b *SubscriptionBinding) close() {
	if b.sub != nil {
		b.sub.Close()
		b.sub = nil
	}
}

// PublicationBinding owns a live bus write handle for one topic.
type PublicationBinding struct {
	topic Topic
	pub   bus.Publication
}

// Valid reports whether the binding holds a live bus handle.
func (b *PublicationBinding) Valid() bool { return b.pub != nil }

// Topic returns the bound topic. Zero for the invalid sentinel.
func (b *PublicationBinding) Topic() Topic { return b.topic }

// Publish sends data to the bus. Always false on an invalid binding.
func (b *PublicationBinding) Publish(data []byte) bool {
	return b.pub != nil && b.pub.Publish(data)
}

// SubscriptionPool holds at most capacity subscription bindings, one per
// distinct topic.
type SubscriptionPool struct {
	bus      bus.Bus
	log      logging.ServiceLogger
	capacity int
	slots    []*SubscriptionBinding
	index    map[Topic]int
}

// NewSubscriptionPool creates an empty pool bound to b.
func NewSubscriptionPool(b bus.Bus, capacity int, log logging.ServiceLogger) *SubscriptionPool {
	return &SubscriptionPool{
		bus:      b,
		log:      log,
		capacity: capacity,
		index:    make(map[Topic]int, capacity),
	}
}

// Ensure returns the binding for t, subscribing on first sight. On capacity
// exhaustion it logs and returns the shared invalid sentinel; the dropped
// topic is simply not relayed.
func (p *SubscriptionPool) Ensure(t Topic) *SubscriptionBinding {
	if i, ok := p.index[t]; ok {
		return p.slots[i]
	}
	if len(p.slots) >= p.capacity {
		p.log.Error("too many input message subscriptions", errspkg.ErrPoolExhausted,
			logging.LogFields{"topic": t.Name(), "max": p.capacity})
		return invalidSubscription
	}

	binding := &SubscriptionBinding{topic: t}
	sub, err := p.bus.Subscribe(t)
	if err != nil {
		p.log.Error("failed to subscribe to message", err,
			logging.LogFields{"topic": t.Name()})
	} else {
		binding.sub = sub
		p.log.Info("subscribing to input message",
			logging.LogFields{"topic": t.Name(), "size": t.Size()})
	}

	p.index[t] = len(p.slots)
	p.slots = append(p.slots, binding)
	return binding
}

// Len returns the number of occupied slots, valid or not.
func (p *SubscriptionPool) Len() int { return len(p.slots) }

// Close releases every live handle. The pool must not be used afterwards.
func (p *SubscriptionPool) Close() {
	for _, b := range p.slots {
		b.close()
	}
	p.slots = nil
	p.index = make(map[Topic]int)
}

// PublicationPool holds at most capacity publication bindings, one per
// distinct topic. Bindings are created lazily with their first payload
// because the bus advertise primitive requires a seed value.
type PublicationPool struct {
	bus      bus.Bus
	log      logging.ServiceLogger
	capacity int
	slots    []*PublicationBinding
	index    map[Topic]int
}

// NewPublicationPool creates an empty pool bound to b.
func NewPublicationPool(b bus.Bus, capacity int, log logging.ServiceLogger) *PublicationPool {
	return &PublicationPool{
		bus:      b,
		log:      log,
		capacity: capacity,
		index:    make(map[Topic]int, capacity),
	}
}

// Ensure returns the binding for t, advertising with initial as the seed
// payload on first sight. Capacity exhaustion behaves as in
// SubscriptionPool.Ensure.
func (p *PublicationPool) Ensure(t Topic, initial []byte) *PublicationBinding {
	if i, ok := p.index[t]; ok {
		return p.slots[i]
	}
	if len(p.slots) >= p.capacity {
		p.log.Error("too many output message publications", errspkg.ErrPoolExhausted,
			logging.LogFields{"topic": t.Name(), "max": p.capacity})
		return invalidPublication
	}

	binding := &PublicationBinding{topic: t}
	pub, err := p.bus.Advertise(t, initial)
	if err != nil {
		p.log.Error("failed to advertise message", err,
			logging.LogFields{"topic": t.Name()})
	} else {
		binding.pub = pub
		p.log.Info("advertising output message",
			logging.LogFields{"topic": t.Name(), "size": t.Size()})
	}

	p.index[t] = len(p.slots)
	p.slots = append(p.slots, binding)
	return binding
}

// Len returns the number of occupied slots, valid or not.
func (p *PublicationPool) Len() int { return len(p.slots) }

// Close drops all bindings. Publication handles carry no resources beyond the
// bus itself.
func (p *PublicationPool) Close() {
	p.slots = nil
	p.index = make(map[Topic]int)
}
