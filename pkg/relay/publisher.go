package relay

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ChunkPublisher assigns block indices to outgoing deltas and sends them as
// chunk signals. Indices are assigned in the order deltas arrive; a failed
// publish is logged and skipped without aborting the turn, but still consumes
// its index so assignment stays strictly increasing.
type ChunkPublisher struct {
	ch      Channel
	turn    *Turn
	dropped int
}

func NewChunkPublisher(ch Channel, t *Turn) *ChunkPublisher {
	return &ChunkPublisher{ch: ch, turn: t}
}

// PublishDelta sends one delta as a chunk signal and appends it to the turn's
// accumulated response. The publish for this delta completes (or is accepted
// as failed) before the caller pulls the next one.
func (p *ChunkPublisher) PublishDelta(ctx context.Context, delta string) {
	sig := ChunkSignal(p.turn, delta)
	if err := p.ch.Publish(ctx, sig); err != nil {
		p.dropped++
		log.Warn().
			Str("component", "chunk_publisher").
			Str("conversation_id", p.turn.ConversationID).
			Str("user_message_id", p.turn.UserMessageID).
			Int("block_index", sig.Index).
			Err(err).
			Msg("chunk publish failed; continuing")
	}
	p.turn.BlockIndex++
	p.turn.appendResponse(delta)
}

// Dropped returns how many chunk publishes failed during this turn.
func (p *ChunkPublisher) Dropped() int {
	return p.dropped
}
