package inference

import (
	"context"
)

// Message is one role-tagged entry of the conversation history.
type Message struct {
	Role    string
	Content string
}

// Request describes one streaming inference call.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Stream is a lazy, single-pass, finite sequence of normalized text deltas.
// Next blocks until the next delta arrives and returns false when the
// sequence ends; Err distinguishes a normal end from a broken stream.
type Stream interface {
	Next(ctx context.Context) (string, bool)
	Err() error
	StopReason() string
	Close() error
}

// Client opens one streaming inference call per turn.
type Client interface {
	StreamInference(ctx context.Context, req Request) (Stream, error)
}
