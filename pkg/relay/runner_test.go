package relay

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/easel/pkg/inference"
)

// scriptedStream yields a fixed list of deltas, then either ends normally or
// reports a failure.
type scriptedStream struct {
	deltas     []string
	failWith   error
	stopReason string
	pos        int
	closed     bool
}

func (s *scriptedStream) Next(_ context.Context) (string, bool) {
	if s.pos >= len(s.deltas) {
		return "", false
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, true
}

func (s *scriptedStream) Err() error {
	if s.pos >= len(s.deltas) {
		return s.failWith
	}
	return nil
}

func (s *scriptedStream) StopReason() string {
	if s.stopReason == "" {
		return "end_turn"
	}
	return s.stopReason
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type scriptedClient struct {
	stream  *scriptedStream
	openErr error
	lastReq inference.Request
}

func (c *scriptedClient) StreamInference(_ context.Context, req inference.Request) (inference.Stream, error) {
	c.lastReq = req
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.stream, nil
}

func TestRunner_CompletesTurn(t *testing.T) {
	ch := newCaptureChannel()
	client := &scriptedClient{stream: &scriptedStream{deltas: []string{"Hel", "lo"}}}
	runner := NewRunner(client, ch, Options{
		Model:        "claude-3-5-haiku-20241022",
		SystemPrompt: "be helpful",
		MaxTokens:    4000,
		Temperature:  0.7,
	})

	turn := NewTurn("conv-1", "msg-1", "say hello")
	require.NoError(t, runner.RunTurn(context.Background(), turn))

	signals := ch.recorded()
	require.Len(t, signals, 3)
	require.Equal(t, KindChunk, signals[0].Kind)
	require.Equal(t, "Hel", signals[0].Text)
	require.Equal(t, 0, signals[0].Index)
	require.Equal(t, KindChunk, signals[1].Kind)
	require.Equal(t, "lo", signals[1].Text)
	require.Equal(t, 1, signals[1].Index)

	done := signals[2]
	require.Equal(t, KindDone, done.Kind)
	require.Equal(t, 2, done.DoneAtIndex)
	require.Equal(t, "end_turn", done.StopReason)

	require.Equal(t, StatusCompleted, turn.Status)
	require.Equal(t, "Hello", turn.Response())
	require.True(t, client.stream.closed)

	require.Equal(t, "be helpful", client.lastReq.System)
	require.Equal(t, []inference.Message{{Role: "user", Content: "say hello"}}, client.lastReq.Messages)
}

func TestRunner_StreamFailureEmitsErrorSignal(t *testing.T) {
	ch := newCaptureChannel()
	client := &scriptedClient{stream: &scriptedStream{
		deltas:   []string{"Hel"},
		failWith: errors.New("connection reset"),
	}}
	runner := NewRunner(client, ch, Options{Model: "m"})

	turn := NewTurn("conv-1", "msg-1", "hi")
	require.Error(t, runner.RunTurn(context.Background(), turn))

	signals := ch.recorded()
	require.Len(t, signals, 2)
	require.Equal(t, KindChunk, signals[0].Kind)
	require.Equal(t, 0, signals[0].Index)

	errSig := signals[1]
	require.Equal(t, KindError, errSig.Kind)
	require.Len(t, errSig.Errors, 1)
	require.Equal(t, "ProcessingError", errSig.Errors[0].ErrorType)
	require.Contains(t, errSig.Errors[0].Message, "connection reset")

	require.Equal(t, StatusFailed, turn.Status)
	for _, sig := range signals {
		require.NotEqual(t, KindDone, sig.Kind)
	}
}

func TestRunner_OpenFailureEmitsErrorSignal(t *testing.T) {
	ch := newCaptureChannel()
	client := &scriptedClient{openErr: errors.New("http 500")}
	runner := NewRunner(client, ch, Options{Model: "m"})

	turn := NewTurn("conv-1", "msg-1", "hi")
	require.Error(t, runner.RunTurn(context.Background(), turn))

	signals := ch.recorded()
	require.Len(t, signals, 1)
	require.Equal(t, KindError, signals[0].Kind)
	require.Equal(t, StatusFailed, turn.Status)
}

func TestRunner_EmptyStreamStillCompletes(t *testing.T) {
	ch := newCaptureChannel()
	client := &scriptedClient{stream: &scriptedStream{}}
	runner := NewRunner(client, ch, Options{Model: "m"})

	turn := NewTurn("conv-1", "msg-1", "hi")
	require.NoError(t, runner.RunTurn(context.Background(), turn))

	signals := ch.recorded()
	require.Len(t, signals, 1)
	require.Equal(t, KindDone, signals[0].Kind)
	require.Equal(t, 0, signals[0].DoneAtIndex)
}

func TestFinalizer_EmitsExactlyOneTerminalSignal(t *testing.T) {
	ch := newCaptureChannel()
	fin := NewFinalizer(ch)
	turn := NewTurn("conv-1", "msg-1", "hi")

	fin.Complete(context.Background(), turn, "end_turn")
	fin.Fail(context.Background(), turn, errors.New("late failure"))
	fin.Complete(context.Background(), turn, "end_turn")

	signals := ch.recorded()
	require.Len(t, signals, 1)
	require.Equal(t, KindDone, signals[0].Kind)
}

func TestSignal_WireInput(t *testing.T) {
	turn := NewTurn("conv-1", "msg-1", "hi")

	chunk := ChunkSignal(turn, "Hel").WireInput()
	require.Equal(t, "conv-1", chunk["conversationId"])
	require.Equal(t, "msg-1", chunk["associatedUserMessageId"])
	require.Equal(t, "Hel", chunk["contentBlockText"])
	require.Equal(t, 0, chunk["contentBlockIndex"])
	require.Equal(t, 0, chunk["contentBlockDeltaIndex"])
	require.NotContains(t, chunk, "stopReason")

	turn.BlockIndex = 2
	done := DoneSignal(turn, "end_turn").WireInput()
	require.Equal(t, 2, done["contentBlockDoneAtIndex"])
	require.Equal(t, "end_turn", done["stopReason"])
	require.NotContains(t, done, "contentBlockText")

	errInput := ErrorSignal(turn, errors.New("boom")).WireInput()
	errs, ok := errInput["errors"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	require.Equal(t, "ProcessingError", errs[0]["errorType"])
	require.Equal(t, "boom", errs[0]["message"])
}
