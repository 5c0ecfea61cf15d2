package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/easel/pkg/inference"
	"github.com/go-go-golems/easel/pkg/relay"
)

type fakeStream struct {
	deltas   []string
	failWith error
	pos      int
}

func (s *fakeStream) Next(_ context.Context) (string, bool) {
	if s.pos >= len(s.deltas) {
		return "", false
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, true
}

func (s *fakeStream) Err() error {
	if s.pos >= len(s.deltas) {
		return s.failWith
	}
	return nil
}

func (s *fakeStream) StopReason() string { return "end_turn" }
func (s *fakeStream) Close() error       { return nil }

// fakeClient scripts one stream per user prompt. A prompt scripted as nil
// panics, to exercise the dispatcher's isolation.
type fakeClient struct {
	streams map[string]*fakeStream
}

func (c *fakeClient) StreamInference(_ context.Context, req inference.Request) (inference.Stream, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	stream, ok := c.streams[prompt]
	if !ok {
		return nil, errors.Errorf("no stream scripted for %q", prompt)
	}
	if stream == nil {
		panic("scripted panic for " + prompt)
	}
	return stream, nil
}

type captureChannel struct {
	mu      sync.Mutex
	signals []relay.Signal
}

func (c *captureChannel) Publish(_ context.Context, sig relay.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = append(c.signals, sig)
	return nil
}

func (c *captureChannel) recorded() []relay.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]relay.Signal, len(c.signals))
	copy(out, c.signals)
	return out
}

func newDispatcher(client inference.Client, ch relay.Channel) *Dispatcher {
	return NewDispatcher(relay.NewRunner(client, ch, relay.Options{Model: "m"}))
}

// byMessage groups signals by the user message they answer.
func byMessage(signals []relay.Signal) map[string][]relay.Signal {
	out := map[string][]relay.Signal{}
	for _, sig := range signals {
		out[sig.UserMessageID] = append(out[sig.UserMessageID], sig)
	}
	return out
}

func TestDispatcher_RunsEligibleEventsOnly(t *testing.T) {
	ch := &captureChannel{}
	client := &fakeClient{streams: map[string]*fakeStream{
		"first":  {deltas: []string{"Hel", "lo"}},
		"second": {deltas: []string{"hi"}},
	}}
	d := newDispatcher(client, ch)

	batch := Batch{Records: []ChangeEvent{
		{EventKind: KindInsert, NewRecord: &Record{
			RecordType: MessageRecordType, Role: "user",
			ID: "m1", ConversationID: "c1", Content: mustContent(t, "first"),
		}},
		{EventKind: KindInsert, NewRecord: &Record{
			RecordType: MessageRecordType, Role: "assistant",
			ID: "m2", ConversationID: "c1", Content: mustContent(t, "ignored"),
		}},
		{EventKind: KindInsert, NewRecord: &Record{
			RecordType: MessageRecordType, Role: "user",
			ID: "m3", ConversationID: "c2", Content: mustContent(t, "second"),
		}},
	}}
	d.HandleBatch(context.Background(), batch)

	perMessage := byMessage(ch.recorded())
	require.Len(t, perMessage, 2)
	require.NotContains(t, perMessage, "m2")

	first := perMessage["m1"]
	require.Len(t, first, 3)
	require.Equal(t, relay.KindChunk, first[0].Kind)
	require.Equal(t, relay.KindChunk, first[1].Kind)
	require.Equal(t, relay.KindDone, first[2].Kind)
	require.Equal(t, 2, first[2].DoneAtIndex)

	second := perMessage["m3"]
	require.Len(t, second, 2)
	require.Equal(t, relay.KindDone, second[1].Kind)
	require.Equal(t, "c2", second[1].ConversationID)
}

func TestDispatcher_FailureDoesNotAbortBatch(t *testing.T) {
	ch := &captureChannel{}
	client := &fakeClient{streams: map[string]*fakeStream{
		"broken": {deltas: []string{"Hel"}, failWith: errors.New("connection reset")},
		"fine":   {deltas: []string{"ok"}},
	}}
	d := newDispatcher(client, ch)

	d.HandleBatch(context.Background(), Batch{Records: []ChangeEvent{
		{EventKind: KindInsert, NewRecord: &Record{
			RecordType: MessageRecordType, Role: "user",
			ID: "m1", ConversationID: "c1", Content: mustContent(t, "broken"),
		}},
		{EventKind: KindInsert, NewRecord: &Record{
			RecordType: MessageRecordType, Role: "user",
			ID: "m2", ConversationID: "c1", Content: mustContent(t, "fine"),
		}},
	}})

	perMessage := byMessage(ch.recorded())

	broken := perMessage["m1"]
	require.Equal(t, relay.KindError, broken[len(broken)-1].Kind)

	fine := perMessage["m2"]
	require.Len(t, fine, 2)
	require.Equal(t, relay.KindDone, fine[1].Kind)
}

func TestDispatcher_PanicIsIsolated(t *testing.T) {
	ch := &captureChannel{}
	client := &fakeClient{streams: map[string]*fakeStream{
		"explosive": nil,
		"fine":      {deltas: []string{"ok"}},
	}}
	d := newDispatcher(client, ch)

	require.NotPanics(t, func() {
		d.HandleBatch(context.Background(), Batch{Records: []ChangeEvent{
			{EventKind: KindInsert, NewRecord: &Record{
				RecordType: MessageRecordType, Role: "user",
				ID: "m1", ConversationID: "c1", Content: mustContent(t, "explosive"),
			}},
			{EventKind: KindInsert, NewRecord: &Record{
				RecordType: MessageRecordType, Role: "user",
				ID: "m2", ConversationID: "c1", Content: mustContent(t, "fine"),
			}},
		}})
	})

	perMessage := byMessage(ch.recorded())

	exploded := perMessage["m1"]
	require.Len(t, exploded, 1)
	require.Equal(t, relay.KindError, exploded[0].Kind)
	require.Contains(t, exploded[0].Errors[0].Message, "panic")

	fine := perMessage["m2"]
	require.Len(t, fine, 2)
	require.Equal(t, relay.KindDone, fine[1].Kind)
}

func TestDispatcher_Handler(t *testing.T) {
	ch := &captureChannel{}
	client := &fakeClient{streams: map[string]*fakeStream{
		"hi": {deltas: []string{"hello"}},
	}}
	handler := newDispatcher(client, ch).Handler()

	payload := []byte(`{"records":[{"eventKind":"insert","newRecord":{"recordType":"ConversationMessage","role":"user","id":"m1","conversationId":"c1","content":"hi"}}]}`)
	msg := message.NewMessage(watermill.NewUUID(), payload)
	require.NoError(t, handler(msg))
	require.Len(t, ch.recorded(), 2)
}

func TestDispatcher_HandlerDropsMalformedPayload(t *testing.T) {
	ch := &captureChannel{}
	handler := newDispatcher(&fakeClient{}, ch).Handler()

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{not json`))
	// returning nil acks the message; redelivery would not help
	require.NoError(t, handler(msg))
	require.Empty(t, ch.recorded())
}

func mustContent(t *testing.T, text string) []byte {
	t.Helper()
	raw, err := json.Marshal(text)
	require.NoError(t, err)
	return raw
}
