package bus

import "fmt"

// Topic identifies one named, fixed-schema message channel on the bus. It is a
// comparable value type: two Topics are the same channel exactly when their
// name and size match, which makes Topic usable directly as a map key. The
// serialized size is fixed for the lifetime of the process.
//
// Topics are declared by bus or engine registration code; the relay core only
// passes them around.
type Topic struct {
	name string
	size int
}

// NewTopic declares a topic with the given name and fixed serialized size in
// bytes.
func NewTopic(name string, size int) Topic {
	return Topic{name: name, size: size}
}

// Name returns the human-readable topic name.
func (t Topic) Name() string { return t.name }

// Size returns the fixed serialized size of the topic's messages in bytes.
func (t Topic) Size() int { return t.size }

// IsZero reports whether t is the zero Topic, which never names a real
// channel.
func (t Topic) IsZero() bool { return t.name == "" && t.size == 0 }

func (t Topic) String() string {
	return fmt.Sprintf("%s[%dB]", t.name, t.size)
}
