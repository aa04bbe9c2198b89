package relay

import (
	errspkg "github.com/drblury/busbridge/internal/relay/errors"
	"github.com/drblury/busbridge/internal/relay/logging"
)

// InputRelay moves updated bus payloads into the engine, one pass per cycle.
// It owns its payload buffer; the buffer is reused across cycles and never
// shared with the output path.
type InputRelay struct {
	pool    *SubscriptionPool
	buf     []byte
	log     logging.ServiceLogger
	metrics *Metrics
}

// NewInputRelay creates a relay drawing bindings from pool with a payload
// buffer of bufSize bytes.
func NewInputRelay(pool *SubscriptionPool, bufSize int, log logging.ServiceLogger, metrics *Metrics) *InputRelay {
	return &InputRelay{
		pool:    pool,
		buf:     make([]byte, bufSize),
		log:     log,
		metrics: metrics,
	}
}

// Run performs one input pass: for every topic the engine declares as input,
// poll the bus and hand any fresh payload to the engine. Per-topic failures
// are logged and isolated; only a failing count query aborts the pass.
func (r *InputRelay) Run(eng Engine) {
	count, code := eng.InputCount()
	if code.IsError() {
		r.log.Error("failed to get input message count", nil,
			logging.LogFields{"code": code.String()})
		r.metrics.RelayError(StageInputCount)
		return
	}

	for i := 0; i < count; i++ {
		topic, code := eng.InputTopicAt(i)
		if code.IsError() {
			r.log.Error("failed to get input message ID", nil,
				logging.LogFields{"index": i, "code": code.String()})
			r.metrics.RelayError(StageInputResolve)
			continue
		}

		sub := r.pool.Ensure(topic)
		if !sub.Updated() {
			continue
		}

		size := topic.Size()
		if size > len(r.buf) {
			r.log.Error("message size exceeds buffer capacity", errspkg.ErrPayloadTooLarge,
				logging.LogFields{"topic": topic.Name(), "size": size, "max": len(r.buf)})
			r.metrics.RelayError(StageInputValidate)
			continue
		}

		if !sub.Copy(r.buf[:size]) {
			r.log.Debug("bus copy returned no data", logging.LogFields{"topic": topic.Name()})
			continue
		}

		if code := eng.WriteInput(topic, r.buf[:size]); code.IsError() {
			r.log.Error("failed to write input message", nil,
				logging.LogFields{"topic": topic.Name(), "code": code.String()})
			r.metrics.RelayError(StageInputWrite)
			continue
		}
		r.metrics.Relayed(DirectionInput)
	}
}
