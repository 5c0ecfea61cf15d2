package appsync

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/easel/pkg/relay"
)

// assistantResponseMutation is the single mutation used for all three signal
// kinds; the input determines which fields are set.
const assistantResponseMutation = `
mutation CreateAssistantResponseStream($input: CreateAssistantResponseStreamInput!) {
  createAssistantResponseStream(input: $input) {
    id
    conversationId
    associatedUserMessageId
    contentBlockText
    contentBlockIndex
    contentBlockDoneAtIndex
    contentBlockDeltaIndex
    stopReason
    errors {
      errorType
      message
    }
  }
}
`

// RequestSigner authenticates one outgoing publish request. The channel
// treats signing as opaque; tests inject a no-op signer.
type RequestSigner interface {
	Sign(ctx context.Context, req *http.Request, body []byte) error
}

// Config holds publish channel settings.
type Config struct {
	Endpoint       string
	RequestTimeout time.Duration
}

// Channel publishes signals as signed GraphQL mutations against an
// AppSync-style endpoint. It implements relay.Channel.
type Channel struct {
	endpoint   string
	signer     RequestSigner
	httpClient *http.Client
}

var _ relay.Channel = (*Channel)(nil)

func NewChannel(cfg Config, signer RequestSigner) (*Channel, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("publish endpoint required")
	}
	if signer == nil {
		return nil, errors.New("request signer required")
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Channel{
		endpoint:   endpoint,
		signer:     signer,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Publish sends one signal. Each call is a single signed request; retrying
// is the caller's policy, not the channel's.
func (c *Channel) Publish(ctx context.Context, sig relay.Signal) error {
	body, err := json.Marshal(graphqlRequest{
		Query:     assistantResponseMutation,
		Variables: map[string]any{"input": sig.WireInput()},
	})
	if err != nil {
		return errors.Wrap(err, "marshal publish request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create publish request")
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.signer.Sign(ctx, req, body); err != nil {
		return errors.Wrap(err, "sign publish request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send publish request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read publish response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("publish channel: http %d: %s", resp.StatusCode, string(data))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(data, &gqlResp); err != nil {
		return errors.Wrap(err, "decode publish response")
	}
	if len(gqlResp.Errors) > 0 {
		return errors.Errorf("publish channel: %s", gqlResp.Errors[0].Message)
	}

	log.Trace().
		Str("component", "publish_channel").
		Str("kind", string(sig.Kind)).
		Str("conversation_id", sig.ConversationID).
		Msg("signal published")
	return nil
}
