package bus

import "sync"

// MemoryBus is a process-local Bus keeping one last-value cell per topic.
// Publishing replaces the cell content and bumps a generation counter; each
// subscription tracks the last generation it copied, so every subscriber
// observes every update it polls fast enough for, and nothing queues.
//
// It is the default bus for tests and single-process setups.
type MemoryBus struct {
	mu    sync.Mutex
	cells map[Topic]*memoryCell
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{cells: make(map[Topic]*memoryCell)}
}

type memoryCell struct {
	mu        sync.Mutex
	topic     Topic
	data      []byte
	gen       uint64
	published uint64
}

func (b *MemoryBus) cell(t Topic) *memoryCell {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.cells[t]
	if !ok {
		c = &memoryCell{topic: t, data: make([]byte, t.Size())}
		b.cells[t] = c
	}
	return c
}

// Subscribe opens a read handle. Subscribing before the first publish is
// allowed; Updated stays false until data arrives.
func (b *MemoryBus) Subscribe(t Topic) (Subscription, error) {
	return &memorySubscription{cell: b.cell(t)}, nil
}

// Advertise opens a write handle, seeding the cell with the initial payload.
// The seed becomes visible to subscribers but is not counted by PublishCount.
func (b *MemoryBus) Advertise(t Topic, initial []byte) (Publication, error) {
	c := b.cell(t)
	if len(initial) == t.Size() {
		c.mu.Lock()
		copy(c.data, initial)
		c.gen++
		c.mu.Unlock()
	}
	return &memoryPublication{cell: c}, nil
}

// Close discards all cells.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cells = make(map[Topic]*memoryCell)
	return nil
}

// Latest returns a copy of the newest payload for t and whether any payload
// has been published. Intended for tests and diagnostics.
func (b *MemoryBus) Latest(t Topic) ([]byte, bool) {
	c := b.cell(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == 0 {
		return nil, false
	}
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out, true
}

// PublishCount returns how many publishes t has observed. Intended for tests.
func (b *MemoryBus) PublishCount(t Topic) uint64 {
	c := b.cell(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published
}

type memorySubscription struct {
	cell *memoryCell
	seen uint64
}

func (s *memorySubscription) Updated() bool {
	if s.cell == nil {
		return false
	}
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	return s.cell.gen > s.seen
}

func (s *memorySubscription) Copy(dst []byte) bool {
	if s.cell == nil {
		return false
	}
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	if s.cell.gen == 0 || len(dst) < len(s.cell.data) {
		return false
	}
	copy(dst, s.cell.data)
	s.seen = s.cell.gen
	return true
}

func (s *memorySubscription) Close() { s.cell = nil }

type memoryPublication struct {
	cell *memoryCell
}

func (p *memoryPublication) Publish(data []byte) bool {
	if p.cell == nil || len(data) != p.cell.topic.Size() {
		return false
	}
	p.cell.mu.Lock()
	defer p.cell.mu.Unlock()
	copy(p.cell.data, data)
	p.cell.gen++
	p.cell.published++
	return true
}
