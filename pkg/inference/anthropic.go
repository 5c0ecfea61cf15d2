package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultVersion = "2023-06-01"
)

// AnthropicClient speaks the Anthropic-compatible /v1/messages SSE protocol.
type AnthropicClient struct {
	baseURL    string
	apiKey     string
	version    string
	httpClient *http.Client
}

var _ Client = (*AnthropicClient)(nil)

// Config holds connection settings for the model endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	Version        string
	RequestTimeout time.Duration
}

func NewAnthropicClient(cfg Config) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("model api key required")
	}
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = defaultVersion
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &AnthropicClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		version:    version,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type wireContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireMessage struct {
	Role    string             `json:"role"`
	Content []wireContentBlock `json:"content"`
}

// StreamInference opens one streaming call and returns the delta sequence.
// A non-success status or connection failure surfaces as an error; no retry
// happens at this level.
func (c *AnthropicClient) StreamInference(ctx context.Context, req Request) (Stream, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("no messages provided")
	}

	messages := make([]wireMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, wireMessage{
			Role:    m.Role,
			Content: []wireContentBlock{{Type: "text", Text: m.Content}},
		})
	}

	payload := map[string]any{
		"model":      req.Model,
		"messages":   messages,
		"max_tokens": req.MaxTokens,
		"stream":     true,
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal model request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create model request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.version)
	httpReq.Header.Set("Accept", "text/event-stream")

	log.Debug().
		Str("component", "model_client").
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Msg("opening model stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "send model request")
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(resp.Body)
		if msg, ok := decodeErrorEnvelope(data); ok {
			return nil, errors.Errorf("model endpoint: %s (http %d)", msg, resp.StatusCode)
		}
		return nil, errors.Errorf("model endpoint: http %d: %s", resp.StatusCode, string(data))
	}

	return newSSEStream(resp.Body), nil
}

func decodeErrorEnvelope(data []byte) (string, bool) {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Message == "" {
		return "", false
	}
	return envelope.Error.Message, true
}

// sseStream reads "data:" frames off the response body and yields only the
// fragments that normalize to text. Control fragments update the stop reason
// or terminate the sequence.
type sseStream struct {
	body       io.ReadCloser
	scanner    *bufio.Scanner
	err        error
	stopReason string
	done       bool
}

var _ Stream = (*sseStream)(nil)

func newSSEStream(body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{
		body:       body,
		scanner:    scanner,
		stopReason: "end_turn",
	}
}

// control fields of a streaming fragment
type fragmentControl struct {
	Type  string `json:"type"`
	Delta struct {
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
}

func (s *sseStream) Next(ctx context.Context) (string, bool) {
	if s.done {
		return "", false
	}
	for {
		select {
		case <-ctx.Done():
			s.done = true
			s.err = ctx.Err()
			return "", false
		default:
		}

		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				s.err = errors.Wrap(err, "read model stream")
			}
			return "", false
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, "event:") || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			if payload == "[DONE]" {
				s.done = true
				return "", false
			}
			continue
		}

		var ctl fragmentControl
		if err := json.Unmarshal([]byte(payload), &ctl); err == nil {
			if ctl.Delta.StopReason != "" {
				s.stopReason = ctl.Delta.StopReason
			}
			if ctl.Type == "message_stop" {
				s.done = true
				return "", false
			}
		}

		if text, ok := ExtractText([]byte(payload)); ok {
			return text, true
		}
		// metadata-only fragment; keep reading
	}
}

func (s *sseStream) Err() error {
	return s.err
}

func (s *sseStream) StopReason() string {
	return s.stopReason
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}
