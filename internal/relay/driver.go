package relay

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/busbridge/internal/relay/bus"
	configpkg "github.com/drblury/busbridge/internal/relay/config"
	errspkg "github.com/drblury/busbridge/internal/relay/errors"
	loggingpkg "github.com/drblury/busbridge/internal/relay/logging"
)

// State is the lifecycle phase of a Driver.
type State int32

const (
	// StateInitializing is the phase before Run has constructed the engine.
	StateInitializing State = iota
	// StateRunning is the fixed-interval relay loop.
	StateRunning
	// StateShuttingDown means the loop has exited and resources are released.
	// Terminal.
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting down"
	default:
		return "unknown"
	}
}

// ParamSource feeds pending configuration changes into the loop. Updated is a
// non-blocking check performed once per cycle; Apply runs on the loop
// goroutine at the cycle boundary.
type ParamSource interface {
	Updated() bool
	Apply() error
}

// DriverDependencies holds the optional collaborators of a Driver. Leave
// fields nil to skip the related feature.
type DriverDependencies struct {
	// Params is polled every cycle and force-applied once at startup.
	Params ParamSource
	// Metrics receives relay statistics. Nil disables collection.
	Metrics *Metrics
	// Clock overrides the time source, mainly for tests.
	Clock Clock
	// Tracer wraps each cycle in a span. Nil uses the global otel tracer,
	// which is a no-op unless a provider is installed.
	Tracer trace.Tracer
}

// Driver owns the relay execution context: the engine handle, one
// subscription pool, one publication pool, and the fixed-interval loop that
// orders input relay, engine step, and output relay.
type Driver struct {
	conf    *configpkg.Config
	log     loggingpkg.ServiceLogger
	factory EngineFactory

	subs   *SubscriptionPool
	pubs   *PublicationPool
	input  *InputRelay
	output *OutputRelay

	params  ParamSource
	metrics *Metrics
	clock   Clock
	tracer  trace.Tracer

	interval time.Duration

	started  atomic.Bool
	state    atomic.Int32
	cycles   atomic.Uint64
	subCount atomic.Int64
	pubCount atomic.Int64
}

// NewDriver wires a Driver for the given bus and engine factory. The engine
// itself is not constructed until Run.
func NewDriver(conf *configpkg.Config, log loggingpkg.ServiceLogger, b bus.Bus, factory EngineFactory, deps DriverDependencies) (*Driver, error) {
	if err := configpkg.ValidateConfig(conf); err != nil {
		return nil, errspkg.ConfigValidationError{Err: err}
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if b == nil {
		return nil, errspkg.ErrBusRequired
	}
	if factory == nil {
		return nil, errspkg.ErrEngineFactoryRequired
	}

	clock := deps.Clock
	if clock == nil {
		clock = SystemClock
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("busbridge/relay")
	}

	subs := NewSubscriptionPool(b, conf.Bindings(), log)
	pubs := NewPublicationPool(b, conf.Bindings(), log)

	d := &Driver{
		conf:     conf,
		log:      log,
		factory:  factory,
		subs:     subs,
		pubs:     pubs,
		input:    NewInputRelay(subs, conf.PayloadSize(), log, deps.Metrics),
		output:   NewOutputRelay(pubs, conf.PayloadSize(), log, deps.Metrics),
		params:   deps.Params,
		metrics:  deps.Metrics,
		clock:    clock,
		tracer:   tracer,
		interval: conf.CycleInterval(),
	}
	d.state.Store(int32(StateInitializing))
	return d, nil
}

// State returns the current lifecycle phase.
func (d *Driver) State() State { return State(d.state.Load()) }

// Cycles returns how many relay cycles have completed.
func (d *Driver) Cycles() uint64 { return d.cycles.Load() }

// Status is a point-in-time diagnostic snapshot of the driver.
type Status struct {
	State           string `json:"state"`
	Cycles          uint64 `json:"cycles"`
	Subscriptions   int64  `json:"subscriptions"`
	Publications    int64  `json:"publications"`
	CycleIntervalMS int64  `json:"cycle_interval_ms"`
}

// Status reports the driver state, cycle count, and pool occupancy.
func (d *Driver) Status() Status {
	return Status{
		State:           d.State().String(),
		Cycles:          d.cycles.Load(),
		Subscriptions:   d.subCount.Load(),
		Publications:    d.pubCount.Load(),
		CycleIntervalMS: d.interval.Milliseconds(),
	}
}

// Run constructs the engine and executes the relay loop until ctx is
// cancelled. Engine construction failure aborts before the loop starts. The
// stop signal is observed once per cycle boundary, never pre-empting a relay
// pass or engine step in progress, so cancellation latency is bounded by one
// cycle. Run returns nil on a clean shutdown and may be called only once.
func (d *Driver) Run(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return errspkg.ErrAlreadyRunning
	}

	eng, err := d.factory()
	if err != nil {
		d.state.Store(int32(StateShuttingDown))
		return fmt.Errorf("%w: %v", errspkg.ErrEngineCreate, err)
	}

	if err := d.metrics.Register(); err != nil {
		d.log.Error("failed to register relay metrics", err, nil)
	}

	d.state.Store(int32(StateRunning))
	d.log.Info("relay driver started", loggingpkg.LogFields{
		"interval": d.interval.String(),
		"pubsub":   d.conf.GetPubSubSystem(),
	})

	epoch := d.clock.Now()
	d.syncParams(true)

	for ctx.Err() == nil {
		start := d.clock.Now()
		_, span := d.tracer.Start(ctx, "relay.cycle")

		d.syncParams(false)
		d.input.Run(eng)
		eng.Step(d.clock.Now().Sub(epoch).Microseconds())
		d.output.Run(eng)

		span.End()
		d.cycles.Add(1)
		d.subCount.Store(int64(d.subs.Len()))
		d.pubCount.Store(int64(d.pubs.Len()))

		elapsed := d.clock.Now().Sub(start)
		d.metrics.CycleObserved(elapsed)

		// Overruns clamp to zero: the next cycle starts immediately with no
		// backward compensation.
		if remaining := d.interval - elapsed; remaining > 0 {
			d.clock.Sleep(remaining)
		}
	}

	d.state.Store(int32(StateShuttingDown))
	closeErr := eng.Close()
	d.subs.Close()
	d.pubs.Close()
	d.log.Info("relay driver stopped", loggingpkg.LogFields{"cycles": d.cycles.Load()})
	return closeErr
}

// syncParams applies pending configuration changes, unconditionally when
// force is set.
func (d *Driver) syncParams(force bool) {
	if d.params == nil {
		return
	}
	if !force && !d.params.Updated() {
		return
	}
	if err := d.params.Apply(); err != nil {
		d.log.Error("failed to apply parameter update", err, nil)
	}
}
