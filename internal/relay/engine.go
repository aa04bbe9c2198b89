package relay

import "github.com/drblury/busbridge/internal/relay/bus"

// Topic aliases the bus topic identity so engine implementations do not need
// to import the bus package directly.
type Topic = bus.Topic

// NewTopic declares a topic with the given name and fixed byte size.
func NewTopic(name string, size int) Topic { return bus.NewTopic(name, size) }

// Engine is the opaque computation core the relay feeds and drains. The relay
// discovers the engine's input and output topics at runtime through the
// indexed accessors, writes fresh bus payloads in before each step, and reads
// produced payloads out after it.
//
// All methods are called from the single relay loop goroutine; no method may
// block. Failures are reported through ReturnCode, never panics.
type Engine interface {
	// Step advances the computation once. The timestamp is monotonic
	// microseconds since the relay started.
	Step(timestampMicros int64)

	// InputCount returns the number of topics the engine consumes.
	InputCount() (int, ReturnCode)

	// InputTopicAt resolves the input topic at index i.
	InputTopicAt(i int) (Topic, ReturnCode)

	// WriteInput hands a serialized payload to the engine. The data length
	// must equal the topic's declared size.
	WriteInput(t Topic, data []byte) ReturnCode

	// OutputCount returns the number of topics the engine produces.
	OutputCount() (int, ReturnCode)

	// OutputTopicAt resolves the output topic at index i.
	OutputTopicAt(i int) (Topic, ReturnCode)

	// OutputHasUpdate reports whether the engine produced a new payload for t
	// since the last ReadOutput.
	OutputHasUpdate(t Topic) (bool, ReturnCode)

	// ReadOutput copies the engine's payload for t into dst and marks it
	// consumed. It returns the number of bytes written; dst smaller than the
	// topic's size is a LengthMismatch.
	ReadOutput(t Topic, dst []byte) (int, ReturnCode)

	// Close releases the engine. Called exactly once at shutdown.
	Close() error
}

// EngineFactory constructs the engine at driver startup. A factory error is
// fatal: the driver aborts before entering the loop.
type EngineFactory func() (Engine, error)
