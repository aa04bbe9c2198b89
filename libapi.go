package busbridge

import (
	"context"

	relaypkg "github.com/drblury/busbridge/internal/relay"
	buspkg "github.com/drblury/busbridge/internal/relay/bus"
	configpkg "github.com/drblury/busbridge/internal/relay/config"
	errspkg "github.com/drblury/busbridge/internal/relay/errors"
	idspkg "github.com/drblury/busbridge/internal/relay/ids"
	jsoncodec "github.com/drblury/busbridge/internal/relay/jsoncodec"
	loggingpkg "github.com/drblury/busbridge/internal/relay/logging"
	newtransport "github.com/drblury/busbridge/transport"
)

type (
	Config             = configpkg.Config
	ConfigWatcher      = configpkg.Watcher
	Driver             = relaypkg.Driver
	DriverDependencies = relaypkg.DriverDependencies
	Status             = relaypkg.Status
	State              = relaypkg.State

	Engine        = relaypkg.Engine
	EngineFactory = relaypkg.EngineFactory
	ReturnCode    = relaypkg.ReturnCode
	ParamSource   = relaypkg.ParamSource
	Clock         = relaypkg.Clock
	Metrics       = relaypkg.Metrics

	ProtocolEngine = relaypkg.ProtocolEngine
	StepContext    = relaypkg.StepContext
	StepFunc       = relaypkg.StepFunc

	Topic        = buspkg.Topic
	Bus          = buspkg.Bus
	Subscription = buspkg.Subscription
	Publication  = buspkg.Publication
	MemoryBus    = buspkg.MemoryBus
	WatermillBus = buspkg.WatermillBus

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError

	// Modular transport types
	Transport         = newtransport.Transport
	TransportBuilder  = newtransport.Builder
	TransportConfig   = newtransport.Config
	TransportRegistry = newtransport.Registry
)

var (
	NewDriver         = relaypkg.NewDriver
	NewProtocolEngine = relaypkg.NewProtocolEngine
	NewMetrics        = relaypkg.NewMetrics
	SystemClock       = relaypkg.SystemClock

	NewTopic        = buspkg.NewTopic
	NewMemoryBus    = buspkg.NewMemoryBus
	NewWatermillBus = buspkg.NewWatermillBus

	LoadConfig       = configpkg.Load
	ValidateConfig   = configpkg.ValidateConfig
	NewConfigWatcher = configpkg.NewWatcher

	// Modular transport registry.
	// Import individual transports via: _ "github.com/drblury/busbridge/transport/nats"
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Decode        = jsoncodec.Decode

	ErrBusRequired           = errspkg.ErrBusRequired
	ErrEngineFactoryRequired = errspkg.ErrEngineFactoryRequired
	ErrLoggerRequired        = errspkg.ErrLoggerRequired
	ErrConfigRequired        = errspkg.ErrConfigRequired
	ErrEngineCreate          = errspkg.ErrEngineCreate
	ErrAlreadyRunning        = errspkg.ErrAlreadyRunning
	ErrPoolExhausted         = errspkg.ErrPoolExhausted
	ErrPayloadTooLarge       = errspkg.ErrPayloadTooLarge
	ErrSizeMismatch          = errspkg.ErrSizeMismatch

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewWatermillAdapter       = loggingpkg.NewWatermillAdapter

	CreateULID = idspkg.CreateULID
)

// Return codes crossing the engine boundary.
const (
	Success            = relaypkg.Success
	LengthMismatch     = relaypkg.LengthMismatch
	TopicNotAdvertised = relaypkg.TopicNotAdvertised
	TopicNotSubscribed = relaypkg.TopicNotSubscribed
	InvalidIndex       = relaypkg.InvalidIndex
	NullArgument       = relaypkg.NullArgument
)

// Driver lifecycle states.
const (
	StateInitializing = relaypkg.StateInitializing
	StateRunning      = relaypkg.StateRunning
	StateShuttingDown = relaypkg.StateShuttingDown
)

// Configuration defaults applied when Config fields are zero.
const (
	DefaultCycleInterval  = configpkg.DefaultCycleInterval
	DefaultMaxBindings    = configpkg.DefaultMaxBindings
	DefaultMaxPayloadSize = configpkg.DefaultMaxPayloadSize
)

// OpenBus builds the transport named by conf through the transport registry
// and wraps it in a Watermill-backed bus. Transport packages must be imported
// for their registration side effect before calling OpenBus.
func OpenBus(ctx context.Context, conf *Config, log ServiceLogger) (*WatermillBus, error) {
	if conf == nil {
		return nil, ErrConfigRequired
	}
	if log == nil {
		log = loggingpkg.Nop()
	}
	tr, err := BuildTransport(ctx, conf, NewWatermillAdapter(log))
	if err != nil {
		return nil, err
	}
	return NewWatermillBus(tr.Publisher, tr.Subscriber, log), nil
}
