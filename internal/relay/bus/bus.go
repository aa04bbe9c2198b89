// Package bus defines the publish/subscribe surface the relay polls against
// and two implementations: an in-memory last-value bus and a Watermill-backed
// bus that bridges to a real transport.
//
// The contract is deliberately narrow. Every read is a non-blocking poll
// (check Updated, then Copy) and every write is fire-and-forget with a boolean
// success result. Subscriptions retain only the latest payload per topic;
// there is no queueing and no delivery guarantee beyond "the freshest value
// wins".
package bus

// Bus hands out per-topic subscription and publication handles.
type Bus interface {
	// Subscribe opens a read handle for the topic. The returned subscription
	// reports updates without blocking and copies at most the latest payload.
	Subscribe(t Topic) (Subscription, error)

	// Advertise opens a write handle for the topic, seeding it with an
	// initial payload. The bus requires the seed at advertisement time.
	Advertise(t Topic, initial []byte) (Publication, error)

	// Close releases all resources held by the bus.
	Close() error
}

// Subscription is a live read handle for one topic.
type Subscription interface {
	// Updated reports, without blocking, whether a payload newer than the
	// last Copy is available.
	Updated() bool

	// Copy writes the latest payload into dst and marks it consumed. It
	// returns false when no payload has been received yet or dst is smaller
	// than the topic's size. The stored payload is retained, so a second Copy
	// before the next update yields the same bytes.
	Copy(dst []byte) bool

	// Close releases the handle. Further calls are no-ops reporting no data.
	Close()
}

// Publication is a live write handle for one topic.
type Publication interface {
	// Publish sends data to the topic and reports success. The payload length
	// must equal the topic's fixed size.
	Publish(data []byte) bool
}
