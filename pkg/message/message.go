// Package message defines the pipeline messages a web step consumes and emits.
package message

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Kind distinguishes regular data messages from unit-of-work boundary messages.
type Kind int

const (
	// Data carries an ordered list of payload items.
	Data Kind = iota
	// Control marks a unit-of-work boundary (or flow start) and carries no payload.
	Control
)

func (k Kind) String() string {
	if k == Control {
		return "control"
	}
	return "data"
}

// Message is a unit flowing between pipeline steps.
type Message struct {
	ID      string            `json:"id"`
	Kind    Kind              `json:"-"`
	Headers map[string]string `json:"headers,omitempty"`
	Payload []string          `json:"payload,omitempty"`
}

// NewData builds a data message with a fresh id.
func NewData(headers map[string]string, payload ...string) Message {
	return Message{ID: uuid.NewString(), Kind: Data, Headers: headers, Payload: payload}
}

// NewControl builds a control (boundary) message with a fresh id.
func NewControl(headers map[string]string) Message {
	return Message{ID: uuid.NewString(), Kind: Control, Headers: headers}
}

// IsControl reports whether m is a unit-of-work boundary message.
func (m Message) IsControl() bool { return m.Kind == Control }

// Sink receives messages emitted by a step. It is the engine's send callback.
type Sink interface {
	Send(Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message) error

func (f SinkFunc) Send(m Message) error { return f(m) }

// ErrNilSink is returned when a step is handed no sink to emit into.
var ErrNilSink = errors.New("message: sink is nil")

// Collector is an in-memory Sink that keeps every message in arrival order.
type Collector struct {
	mu       sync.Mutex
	messages []Message
}

func (c *Collector) Send(m Message) error {
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()
	return nil
}

// Messages returns a copy of the collected messages.
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Reset drops all collected messages.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}
