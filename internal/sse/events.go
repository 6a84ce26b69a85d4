package sse

import "time"

// SSE event type constants
const (
	EventSessionUpdate = "session-update"
	EventErrorMessage  = "error-message"
)

const (
	// BufferSize is the buffer size for subscriber channels
	BufferSize = 10

	// SendTimeout bounds how long a publish waits on one slow subscriber
	SendTimeout = time.Second
)

// Message is one server-sent event
type Message struct {
	Event string
	Data  string
}
