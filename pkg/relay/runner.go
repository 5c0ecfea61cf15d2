package relay

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/easel/pkg/inference"
)

// Options carries the inference parameters applied to every turn.
type Options struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Runner drives one relay execution: open a model stream for the turn's
// prompt, republish each delta as an indexed chunk signal, then finalize with
// exactly one terminal signal. The loop is strictly sequential: the publish
// for delta i is settled before delta i+1 is pulled, keeping the block index
// consistent and memory bounded to one in-flight delta.
type Runner struct {
	client  inference.Client
	channel Channel
	opts    Options
}

func NewRunner(client inference.Client, channel Channel, opts Options) *Runner {
	return &Runner{client: client, channel: channel, opts: opts}
}

// Channel exposes the publish channel so callers sharing a runner can emit
// error signals for turns that never reached the streaming loop.
func (r *Runner) Channel() Channel {
	return r.channel
}

// RunTurn executes the full pipeline for one turn. The terminal signal has
// already been published by the time it returns; the error return is for the
// caller's log, not for retry.
func (r *Runner) RunTurn(ctx context.Context, t *Turn) error {
	pub := NewChunkPublisher(r.channel, t)
	fin := NewFinalizer(r.channel)

	req := inference.Request{
		Model:       r.opts.Model,
		System:      r.opts.SystemPrompt,
		MaxTokens:   r.opts.MaxTokens,
		Temperature: r.opts.Temperature,
		Messages: []inference.Message{
			{Role: "user", Content: t.Prompt},
		},
	}

	log.Info().
		Str("component", "relay").
		Str("turn_id", t.ID).
		Str("conversation_id", t.ConversationID).
		Str("user_message_id", t.UserMessageID).
		Str("model", r.opts.Model).
		Msg("starting turn")

	stream, err := r.client.StreamInference(ctx, req)
	if err != nil {
		err = errors.Wrap(err, "open model stream")
		fin.Fail(ctx, t, err)
		return err
	}
	defer func() { _ = stream.Close() }()

	t.Status = StatusStreaming
	for {
		delta, ok := stream.Next(ctx)
		if !ok {
			break
		}
		pub.PublishDelta(ctx, delta)
	}
	if err := stream.Err(); err != nil {
		err = errors.Wrap(err, "model stream broke")
		fin.Fail(ctx, t, err)
		return err
	}

	fin.Complete(ctx, t, stream.StopReason())
	log.Debug().
		Str("component", "relay").
		Str("turn_id", t.ID).
		Str("conversation_id", t.ConversationID).
		Int("chunks", t.BlockIndex).
		Int("dropped", pub.Dropped()).
		Int("response_len", len(t.Response())).
		Msg("turn finished")
	return nil
}
