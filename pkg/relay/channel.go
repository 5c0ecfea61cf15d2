package relay

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// WriterChannel writes each signal as one JSON line. Used by the one-shot
// process command and as a test double stand-in for the real channel.
type WriterChannel struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterChannel(w io.Writer) *WriterChannel {
	return &WriterChannel{w: w}
}

func (c *WriterChannel) Publish(_ context.Context, sig Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload := map[string]any{
		"kind":  string(sig.Kind),
		"input": sig.WireInput(),
	}
	return json.NewEncoder(c.w).Encode(payload)
}
