package relay

import (
	errspkg "github.com/drblury/busbridge/internal/relay/errors"
	"github.com/drblury/busbridge/internal/relay/logging"
)

// OutputRelay moves updated engine payloads onto the bus, one pass per cycle.
// Symmetric to InputRelay, with its own payload buffer.
type OutputRelay struct {
	pool    *PublicationPool
	buf     []byte
	log     logging.ServiceLogger
	metrics *Metrics
}

// NewOutputRelay creates a relay drawing bindings from pool with a payload
// buffer of bufSize bytes.
func NewOutputRelay(pool *PublicationPool, bufSize int, log logging.ServiceLogger, metrics *Metrics) *OutputRelay {
	return &OutputRelay{
		pool:    pool,
		buf:     make([]byte, bufSize),
		log:     log,
		metrics: metrics,
	}
}

// Run performs one output pass: for every topic the engine declares as
// output, read any pending payload and publish it. The publication binding is
// created lazily with the freshly read bytes, because the bus advertise
// primitive requires an initial value. Per-topic failures are logged and
// isolated.
func (r *OutputRelay) Run(eng Engine) {
	count, code := eng.OutputCount()
	if code.IsError() {
		r.log.Error("failed to get output message count", nil,
			logging.LogFields{"code": code.String()})
		r.metrics.RelayError(StageOutputCount)
		return
	}

	for i := 0; i < count; i++ {
		topic, code := eng.OutputTopicAt(i)
		if code.IsError() {
			r.log.Error("failed to get output message ID", nil,
				logging.LogFields{"index": i, "code": code.String()})
			r.metrics.RelayError(StageOutputResolve)
			continue
		}

		hasUpdate, code := eng.OutputHasUpdate(topic)
		if code.IsError() {
			r.log.Error("failed to check update status", nil,
				logging.LogFields{"topic": topic.Name(), "code": code.String()})
			r.metrics.RelayError(StageOutputCheck)
			continue
		}
		if !hasUpdate {
			continue
		}

		size := topic.Size()
		if size > len(r.buf) {
			r.log.Error("message size exceeds buffer capacity", errspkg.ErrPayloadTooLarge,
				logging.LogFields{"topic": topic.Name(), "size": size, "max": len(r.buf)})
			r.metrics.RelayError(StageOutputValidate)
			continue
		}

		n, code := eng.ReadOutput(topic, r.buf)
		if code.IsError() {
			r.log.Error("failed to read output message", nil,
				logging.LogFields{"topic": topic.Name(), "code": code.String()})
			r.metrics.RelayError(StageOutputRead)
			continue
		}
		if n != size {
			r.log.Error("size mismatch reading output message", errspkg.ErrSizeMismatch,
				logging.LogFields{"topic": topic.Name(), "expected": size, "got": n})
			r.metrics.RelayError(StageOutputValidate)
			continue
		}

		pub := r.pool.Ensure(topic, r.buf[:size])
		if !pub.Valid() {
			continue
		}
		if !pub.Publish(r.buf[:size]) {
			r.log.Error("failed to publish output message", nil,
				logging.LogFields{"topic": topic.Name()})
			r.metrics.RelayError(StageOutputPublish)
			continue
		}
		r.metrics.Relayed(DirectionOutput)
	}
}
