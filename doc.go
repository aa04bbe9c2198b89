// Package busbridge is a bidirectional message-relay layer bridging a
// topic-indexed publish/subscribe bus to an opaque computation engine that
// consumes and produces the same topics. The relay discovers the engine's
// input and output topics at runtime, maintains bounded pools of subscription
// and publication handles keyed by topic identity, and moves fixed-size
// binary payloads across the boundary with strict size validation inside a
// fixed-period control loop.
//
// The bus side is pluggable: an in-memory last-value bus for tests and
// single-process setups, or a Watermill-backed bus reading the target
// transport (Go channels or NATS) from Config. Payloads are copied
// byte-for-byte; the relay performs no schema translation.
//
// # Typical setup
//
// Fill Config, build a bus, register an engine factory, and run the driver:
//
//	logger := busbridge.NewSlogServiceLogger(slog.Default())
//	conf := &busbridge.Config{PubSubSystem: "channel"}
//	b, err := busbridge.OpenBus(ctx, conf, logger)
//	// handle err
//	drv, err := busbridge.NewDriver(conf, logger, b, factory, busbridge.DriverDependencies{})
//	// handle err
//	err = drv.Run(ctx)
//
// The driver loop runs input relay, engine step, and output relay in order
// every cycle, holding a constant cadence with a drift-compensated sleep.
// Cancelling the context stops the loop at the next cycle boundary and
// releases the engine exactly once.
//
// # Error model
//
// Per-topic relay failures are isolated and logged, never fatal: a payload
// dropped this cycle is retried naturally on the next poll because update
// flags persist until consumed. The only fatal error is engine construction
// failure at startup. Pool capacity is fixed; topics beyond it are dropped
// from relaying with a logged capacity error.
package busbridge
