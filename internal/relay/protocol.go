package relay

import "sync"

// StepFunc is the computation callback a ProtocolEngine runs once per cycle.
// It reads inputs and writes outputs through the StepContext.
type StepFunc func(ctx *StepContext, timestampMicros int64)

// ProtocolEngine is the reference Engine implementation: a ledger of input
// and output message entries, one per registered topic, each pairing a
// fixed-size data buffer with an updated flag.
//
// The relay writes inputs (setting the flag) and reads outputs (clearing it);
// the step callback does the reverse. Registration happens before the driver
// starts; the topic sets are fixed while running.
type ProtocolEngine struct {
	// Uncontended in normal operation: the relay loop is single-threaded.
	// The lock keeps StepContext access safe when tests drive the engine
	// from a separate goroutine.
	mu sync.Mutex

	inputs    []*messageEntry
	outputs   []*messageEntry
	inputIdx  map[Topic]int
	outputIdx map[Topic]int

	step StepFunc
}

type messageEntry struct {
	topic   Topic
	data    []byte
	updated bool
}

func newMessageEntry(t Topic) *messageEntry {
	return &messageEntry{topic: t, data: make([]byte, t.Size())}
}

// NewProtocolEngine creates an empty ledger running step each cycle. A nil
// step is allowed; the engine then only stores and hands back payloads.
func NewProtocolEngine(step StepFunc) *ProtocolEngine {
	return &ProtocolEngine{
		inputIdx:  make(map[Topic]int),
		outputIdx: make(map[Topic]int),
		step:      step,
	}
}

// SubscribeTo registers t as an input topic. Registering a topic twice is a
// no-op.
func (e *ProtocolEngine) SubscribeTo(t Topic) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.inputIdx[t]; ok {
		return
	}
	e.inputIdx[t] = len(e.inputs)
	e.inputs = append(e.inputs, newMessageEntry(t))
}

// AdvertiseOn registers t as an output topic. Registering a topic twice is a
// no-op.
func (e *ProtocolEngine) AdvertiseOn(t Topic) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.outputIdx[t]; ok {
		return
	}
	e.outputIdx[t] = len(e.outputs)
	e.outputs = append(e.outputs, newMessageEntry(t))
}

// Step runs the registered step callback.
func (e *ProtocolEngine) Step(timestampMicros int64) {
	if e.step == nil {
		return
	}
	e.step(&StepContext{eng: e}, timestampMicros)
}

func (e *ProtocolEngine) InputCount() (int, ReturnCode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inputs), Success
}

func (e *ProtocolEngine) InputTopicAt(i int) (Topic, ReturnCode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.inputs) {
		return Topic{}, InvalidIndex
	}
	return e.inputs[i].topic, Success
}

func (e *ProtocolEngine) WriteInput(t Topic, data []byte) ReturnCode {
	if len(data) == 0 {
		return NullArgument
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.inputIdx[t]
	if !ok {
		return TopicNotSubscribed
	}
	entry := e.inputs[i]
	if len(data) != len(entry.data) {
		return LengthMismatch
	}
	copy(entry.data, data)
	entry.updated = true
	return Success
}

func (e *ProtocolEngine) OutputCount() (int, ReturnCode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.outputs), Success
}

func (e *ProtocolEngine) OutputTopicAt(i int) (Topic, ReturnCode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.outputs) {
		return Topic{}, InvalidIndex
	}
	return e.outputs[i].topic, Success
}

func (e *ProtocolEngine) OutputHasUpdate(t Topic) (bool, ReturnCode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.outputIdx[t]
	if !ok {
		return false, TopicNotAdvertised
	}
	return e.outputs[i].updated, Success
}

// ReadOutput copies the entry for t into dst and clears its updated flag.
func (e *ProtocolEngine) ReadOutput(t Topic, dst []byte) (int, ReturnCode) {
	if dst == nil {
		return 0, NullArgument
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.outputIdx[t]
	if !ok {
		return 0, TopicNotAdvertised
	}
	entry := e.outputs[i]
	if len(dst) < len(entry.data) {
		return 0, LengthMismatch
	}
	copy(dst, entry.data)
	entry.updated = false
	return len(entry.data), Success
}

// Close is a no-op for the in-process ledger.
func (e *ProtocolEngine) Close() error { return nil }

// StepContext gives a StepFunc access to the engine's ledger for the duration
// of one step.
type StepContext struct {
	eng *ProtocolEngine
}

// Input returns the latest payload for an input topic and whether a new
// payload arrived since the engine last saw one. The returned slice is a
// copy.
func (c *StepContext) Input(t Topic) ([]byte, bool, ReturnCode) {
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()
	i, ok := c.eng.inputIdx[t]
	if !ok {
		return nil, false, TopicNotSubscribed
	}
	entry := c.eng.inputs[i]
	if !entry.updated {
		return nil, false, Success
	}
	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, true, Success
}

// SetOutput stores a payload for an output topic and marks it updated. The
// data length must equal the topic's declared size.
func (c *StepContext) SetOutput(t Topic, data []byte) ReturnCode {
	if len(data) == 0 {
		return NullArgument
	}
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()
	i, ok := c.eng.outputIdx[t]
	if !ok {
		return TopicNotAdvertised
	}
	entry := c.eng.outputs[i]
	if len(data) != len(entry.data) {
		return LengthMismatch
	}
	copy(entry.data, data)
	entry.updated = true
	return Success
}
