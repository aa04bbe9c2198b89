package errors

import sterrors "errors"

var (
	ErrBusRequired           = sterrors.New("busbridge: bus is required")
	ErrEngineFactoryRequired = sterrors.New("busbridge: engine factory is required")
	ErrLoggerRequired        = sterrors.New("busbridge: logger is required")
	ErrConfigRequired        = sterrors.New("busbridge: configuration is required")
	ErrEngineCreate          = sterrors.New("busbridge: engine construction failed")
	ErrAlreadyRunning        = sterrors.New("busbridge: relay driver is already running")
	ErrPoolExhausted         = sterrors.New("busbridge: binding pool is exhausted")
	ErrPayloadTooLarge       = sterrors.New("busbridge: payload exceeds buffer capacity")
	ErrSizeMismatch          = sterrors.New("busbridge: payload size disagrees with topic size")
)

// ConfigValidationError wraps the reason a relay configuration was rejected.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "busbridge: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }
