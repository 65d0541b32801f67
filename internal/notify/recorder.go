package notify

import (
	"context"
	"sync"
	"time"
)

// Recorder keeps every message in memory. Used by tests and by local
// runs that want to inspect outgoing mail.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	notify   chan struct{}
}

func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// WaitFor blocks until at least n messages arrived or timeout elapses and
// returns what was recorded.
func (r *Recorder) WaitFor(n int, timeout time.Duration) []Message {
	deadline := time.After(timeout)
	for {
		msgs := r.Messages()
		if len(msgs) >= n {
			return msgs
		}
		select {
		case <-r.notify:
		case <-deadline:
			return r.Messages()
		}
	}
}
