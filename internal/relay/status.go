package relay

// ReturnCode is the closed set of status codes crossing the engine boundary.
type ReturnCode int

const (
	// Success - no error.
	Success ReturnCode = iota
	// LengthMismatch reports a payload length disagreeing with the topic's
	// declared size.
	LengthMismatch
	// TopicNotAdvertised reports an output operation on a topic the engine
	// never advertised.
	TopicNotAdvertised
	// TopicNotSubscribed reports an input operation on a topic the engine
	// never subscribed to.
	TopicNotSubscribed
	// InvalidIndex reports a topic index outside the declared range.
	InvalidIndex
	// NullArgument reports a nil or empty argument where data was required.
	NullArgument
)

// IsSuccess reports whether the code represents a success state.
func (c ReturnCode) IsSuccess() bool { return c == Success }

// IsError reports whether the code represents an error state.
func (c ReturnCode) IsError() bool { return !c.IsSuccess() }

func (c ReturnCode) String() string {
	switch c {
	case Success:
		return "success"
	case LengthMismatch:
		return "message length mismatch"
	case TopicNotAdvertised:
		return "message type not advertised"
	case TopicNotSubscribed:
		return "message type not subscribed"
	case InvalidIndex:
		return "invalid message index"
	case NullArgument:
		return "null argument passed to function"
	default:
		return "unknown error"
	}
}
