package inference

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

// Settings holds model endpoint configuration.
type Settings struct {
	Model       string  `glazed:"model"`
	BaseURL     string  `glazed:"model-base-url"`
	APIKey      string  `glazed:"model-api-key"`
	Version     string  `glazed:"model-api-version"`
	MaxTokens   int     `glazed:"max-tokens"`
	Temperature float64 `glazed:"temperature"`
}

// NewParameterLayer returns the section definition for model settings.
func NewParameterLayer() (schema.Section, error) {
	return schema.NewSection(
		"model",
		"Model endpoint configuration",
		schema.WithFields(
			fields.New("model", fields.TypeString, fields.WithDefault("claude-3-5-haiku-20241022"), fields.WithHelp("Model identifier")),
			fields.New("model-base-url", fields.TypeString, fields.WithDefault(""), fields.WithHelp("Model endpoint base URL (defaults to the Anthropic API)")),
			fields.New("model-api-key", fields.TypeString, fields.WithDefault(""), fields.WithHelp("Model endpoint API key")),
			fields.New("model-api-version", fields.TypeString, fields.WithDefault(""), fields.WithHelp("Model API version header")),
			fields.New("max-tokens", fields.TypeInteger, fields.WithDefault(4000), fields.WithHelp("Maximum output tokens per turn")),
			fields.New("temperature", fields.TypeFloat, fields.WithDefault(0.7), fields.WithHelp("Sampling temperature")),
		),
	)
}
