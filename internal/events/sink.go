package events

import "sync"

// Sink receives notifications. Implementations must be safe for concurrent use.
type Sink interface {
	Publish(Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message)

// Publish calls f(m).
func (f SinkFunc) Publish(m Message) { f(m) }

// Discard drops every message.
var Discard Sink = SinkFunc(func(Message) {})

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// ChannelSink delivers messages over a bounded channel. Lossy messages are
// dropped when the buffer is full; all others block until there is room.
type ChannelSink struct {
	mu     sync.RWMutex
	ch     chan Message
	closed bool
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan Message, buffer)}
}

// C returns the receive side of the channel.
func (s *ChannelSink) C() <-chan Message {
	return s.ch
}

// Publish enqueues m. Messages published after Close are dropped.
func (s *ChannelSink) Publish(m Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	if Lossy(m) {
		select {
		case s.ch <- m:
		default:
		}
		return
	}
	s.ch <- m
}

// Close closes the channel so consumers ranging over C terminate.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Recorder keeps every message it receives. Used by tests and dry runs.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Publish appends m.
func (r *Recorder) Publish(m Message) {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Names returns the event names in the order they were received.
func (r *Recorder) Names() []string {
	msgs := r.Messages()
	names := make([]string, len(msgs))
	for i, m := range msgs {
		names[i] = m.EventName()
	}
	return names
}

// Count returns how many recorded messages carry the given name.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, m := range r.Messages() {
		if m.EventName() == name {
			n++
		}
	}
	return n
}
