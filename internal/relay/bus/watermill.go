package bus

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/busbridge/internal/relay/ids"
	"github.com/drblury/busbridge/internal/relay/logging"
)

// WatermillBus adapts a Watermill publisher/subscriber pair to the polled
// last-value Bus contract. Each subscription runs a goroutine draining its
// Watermill channel into a last-value cell: a newer payload replaces the
// stored one and nothing queues, so the relay's non-blocking poll always sees
// the freshest value. Payloads whose length disagrees with the topic's fixed
// size are dropped at the boundary.
//
// Published messages carry ULID UUIDs so they sort by send time on transports
// that surface message identity.
type WatermillBus struct {
	pub message.Publisher
	sub message.Subscriber
	log logging.ServiceLogger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatermillBus wraps the given publisher/subscriber pair. The bus owns
// both and closes them on Close.
func NewWatermillBus(pub message.Publisher, sub message.Subscriber, log logging.ServiceLogger) *WatermillBus {
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WatermillBus{pub: pub, sub: sub, log: log, ctx: ctx, cancel: cancel}
}

// Subscribe opens a read handle for t and starts draining its messages.
func (b *WatermillBus) Subscribe(t Topic) (Subscription, error) {
	ctx, cancel := context.WithCancel(b.ctx)
	ch, err := b.sub.Subscribe(ctx, t.Name())
	if err != nil {
		cancel()
		return nil, err
	}
	s := &watermillSubscription{
		cell:   &lastValueCell{data: make([]byte, t.Size())},
		cancel: cancel,
	}
	go b.drain(t, ch, s.cell)
	return s, nil
}

func (b *WatermillBus) drain(t Topic, ch <-chan *message.Message, cell *lastValueCell) {
	for msg := range ch {
		if len(msg.Payload) != t.Size() {
			b.log.Error("dropping payload with wrong size", nil, logging.LogFields{
				"topic": t.Name(), "expected": t.Size(), "got": len(msg.Payload),
			})
			msg.Ack()
			continue
		}
		cell.store(msg.Payload)
		msg.Ack()
	}
}

// Advertise opens a write handle for t and publishes the initial payload.
func (b *WatermillBus) Advertise(t Topic, initial []byte) (Publication, error) {
	p := &watermillPublication{bus: b, topic: t}
	if !p.Publish(initial) {
		return nil, errors.New("bus: failed to publish initial payload for " + t.Name())
	}
	return p, nil
}

// Close cancels all subscriptions and closes the underlying publisher and
// subscriber.
func (b *WatermillBus) Close() error {
	b.cancel()
	return errors.Join(b.pub.Close(), b.sub.Close())
}

type lastValueCell struct {
	mu    sync.Mutex
	data  []byte
	have  bool
	fresh bool
}

func (c *lastValueCell) store(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.data, payload)
	c.have = true
	c.fresh = true
}

type watermillSubscription struct {
	cell   *lastValueCell
	cancel context.CancelFunc
}

func (s *watermillSubscription) Updated() bool {
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	return s.cell.fresh
}

func (s *watermillSubscription) Copy(dst []byte) bool {
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	if !s.cell.have || len(dst) < len(s.cell.data) {
		return false
	}
	copy(dst, s.cell.data)
	s.cell.fresh = false
	return true
}

func (s *watermillSubscription) Close() { s.cancel() }

type watermillPublication struct {
	bus   *WatermillBus
	topic Topic
}

func (p *watermillPublication) Publish(data []byte) bool {
	if len(data) != p.topic.Size() {
		p.bus.log.Error("refusing to publish payload with wrong size", nil, logging.LogFields{
			"topic": p.topic.Name(), "expected": p.topic.Size(), "got": len(data),
		})
		return false
	}
	msg := message.NewMessage(ids.CreateULID(), slices.Clone(data))
	if err := p.bus.pub.Publish(p.topic.Name(), msg); err != nil {
		p.bus.log.Error("failed to publish message", err, logging.LogFields{
			"topic": p.topic.Name(),
		})
		return false
	}
	return true
}
