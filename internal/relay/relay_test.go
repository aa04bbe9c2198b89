package relay

import (
	"bytes"
	"testing"

	"github.com/drblury/busbridge/internal/relay/bus"
	"github.com/drblury/busbridge/internal/relay/logging"
)

// runCycle performs one manual relay cycle: input pass, engine step, output
// pass. Identical to the driver loop body without the timing.
func runCycle(in *InputRelay, out *OutputRelay, eng Engine, timestampMicros int64) {
	in.Run(eng)
	eng.Step(timestampMicros)
	out.Run(eng)
}

func TestRelayRoundTrip(t *testing.T) {
	mb := bus.NewMemoryBus()
	inTopic := NewTopic("topic_a", 4)
	outTopic := NewTopic("topic_b", 4)

	// The engine reads A, adds 4 to every byte, and emits the result on B.
	eng := NewProtocolEngine(func(ctx *StepContext, _ int64) {
		payload, fresh, code := ctx.Input(inTopic)
		if code != Success || !fresh {
			return
		}
		for i := range payload {
			payload[i] += 4
		}
		ctx.SetOutput(outTopic, payload)
	})
	eng.SubscribeTo(inTopic)
	eng.AdvertiseOn(outTopic)

	subs := NewSubscriptionPool(mb, 16, logging.Nop())
	pubs := NewPublicationPool(mb, 16, logging.Nop())
	input := NewInputRelay(subs, 1024, logging.Nop(), nil)
	output := NewOutputRelay(pubs, 1024, logging.Nop(), nil)

	// First cycle binds the input topic; nothing has been published yet.
	runCycle(input, output, eng, 0)
	if mb.PublishCount(outTopic) != 0 {
		t.Fatal("expected no output before any input")
	}

	src, err := mb.Advertise(inTopic, []byte{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("unexpected advertise error: %v", err)
	}
	if !src.Publish([]byte{1, 2, 3, 4}) {
		t.Fatal("expected publish to succeed")
	}

	runCycle(input, output, eng, 10_000)

	got, ok := mb.Latest(outTopic)
	if !ok {
		t.Fatal("expected an output payload on the bus")
	}
	if !bytes.Equal(got, []byte{5, 6, 7, 8}) {
		t.Fatalf("unexpected output payload %v", got)
	}
	if mb.PublishCount(outTopic) != 1 {
		t.Fatalf("expected exactly one publish, got %d", mb.PublishCount(outTopic))
	}

	// No new input: further cycles must not republish.
	runCycle(input, output, eng, 20_000)
	runCycle(input, output, eng, 30_000)
	if mb.PublishCount(outTopic) != 1 {
		t.Fatalf("expected no republish without fresh output, got %d", mb.PublishCount(outTopic))
	}
}

func TestInputRelaySkipsStaleTopics(t *testing.T) {
	mb := bus.NewMemoryBus()
	topic := NewTopic("sensor_accel", 2)

	var steps, fresh int
	eng := NewProtocolEngine(func(ctx *StepContext, _ int64) {
		steps++
		if _, f, _ := ctx.Input(topic); f {
			fresh++
		}
	})
	eng.SubscribeTo(topic)

	subs := NewSubscriptionPool(mb, 16, logging.Nop())
	input := NewInputRelay(subs, 1024, logging.Nop(), nil)

	input.Run(eng)
	eng.Step(0)
	if steps != 1 || fresh != 0 {
		t.Fatalf("expected a step with no fresh input, steps=%d fresh=%d", steps, fresh)
	}

	src, _ := mb.Advertise(topic, []byte{0, 0})
	src.Publish([]byte{5, 5})
	input.Run(eng)
	eng.Step(0)
	if fresh != 1 {
		t.Fatalf("expected the published payload to reach the engine, fresh=%d", fresh)
	}
}

func TestInputRelayOversizeTopicNeverRelayed(t *testing.T) {
	mb := bus.NewMemoryBus()
	big := NewTopic("oversize", 64)

	eng := NewProtocolEngine(nil)
	eng.SubscribeTo(big)

	subs := NewSubscriptionPool(mb, 16, logging.Nop())
	input := NewInputRelay(subs, 16, logging.Nop(), nil)

	src, _ := mb.Advertise(big, make([]byte, 64))
	src.Publish(make([]byte, 64))
	input.Run(eng)

	payload, fresh, _ := (&StepContext{eng: eng}).Input(big)
	if fresh || payload != nil {
		t.Fatal("expected the oversize payload to be dropped before the engine")
	}
}

// fixedEngine reports one output topic but returns a read length smaller than
// the topic size, exercising the size mismatch path.
type fixedEngine struct {
	topic   Topic
	badRead bool
}

func (f *fixedEngine) Step(int64)                       {}
func (f *fixedEngine) InputCount() (int, ReturnCode)    { return 0, Success }
func (f *fixedEngine) InputTopicAt(int) (Topic, ReturnCode) {
	return Topic{}, InvalidIndex
}
func (f *fixedEngine) WriteInput(Topic, []byte) ReturnCode { return TopicNotSubscribed }
func (f *fixedEngine) OutputCount() (int, ReturnCode)      { return 1, Success }
func (f *fixedEngine) OutputTopicAt(i int) (Topic, ReturnCode) {
	if i != 0 {
		return Topic{}, InvalidIndex
	}
	return f.topic, Success
}
func (f *fixedEngine) OutputHasUpdate(Topic) (bool, ReturnCode) { return true, Success }
func (f *fixedEngine) ReadOutput(_ Topic, dst []byte) (int, ReturnCode) {
	if f.badRead {
		return f.topic.Size() - 1, Success
	}
	return f.topic.Size(), Success
}
func (f *fixedEngine) Close() error { return nil }

func TestOutputRelaySizeMismatchSkipsPublish(t *testing.T) {
	mb := bus.NewMemoryBus()
	topic := NewTopic("actuator_outputs", 8)
	eng := &fixedEngine{topic: topic, badRead: true}

	pubs := NewPublicationPool(mb, 16, logging.Nop())
	output := NewOutputRelay(pubs, 1024, logging.Nop(), nil)
	output.Run(eng)

	if _, ok := mb.Latest(topic); ok {
		t.Fatal("expected no publish after a short read")
	}
	if pubs.Len() != 0 {
		t.Fatal("expected no binding for a payload that never validated")
	}
}

func TestOutputRelayOversizeTopicNeverRelayed(t *testing.T) {
	mb := bus.NewMemoryBus()
	topic := NewTopic("oversize", 64)
	eng := &fixedEngine{topic: topic}

	pubs := NewPublicationPool(mb, 16, logging.Nop())
	output := NewOutputRelay(pubs, 16, logging.Nop(), nil)
	output.Run(eng)

	if _, ok := mb.Latest(topic); ok {
		t.Fatal("expected the oversize topic to be dropped before the bus")
	}
}

func TestOutputRelayMetricsRecordFailures(t *testing.T) {
	mb := bus.NewMemoryBus()
	topic := NewTopic("actuator_outputs", 8)
	eng := &fixedEngine{topic: topic, badRead: true}

	metrics := NewMetrics(newTestRegistry())
	pubs := NewPublicationPool(mb, 16, logging.Nop())
	output := NewOutputRelay(pubs, 1024, logging.Nop(), metrics)
	output.Run(eng)
	// The mismatch path must not panic with metrics attached; counting is
	// covered by the prometheus client itself.
}
