// Package prompts assembles the assistant's system prompt from embedded part
// files and the tool manifest. Prompt text is configuration, not behavior;
// the relay only passes the composed prompt to the model call.
package prompts

import (
	"embed"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/easel/pkg/manifest"
)

//go:embed parts/*.txt
var partsFS embed.FS

// partOrder fixes the composition order; later parts refine earlier ones.
var partOrder = []string{
	"parts/base-instructions.txt",
	"parts/canvas-state.txt",
	"parts/positioning-rules.txt",
	"parts/critical-rules.txt",
}

// Compose joins the prompt parts and appends the rendered tool manifest.
func Compose() (string, error) {
	var sections []string
	for _, name := range partOrder {
		data, err := partsFS.ReadFile(name)
		if err != nil {
			return "", errors.Wrapf(err, "read prompt part %s", name)
		}
		sections = append(sections, strings.TrimSpace(string(data)))
	}

	m, err := manifest.Load()
	if err != nil {
		return "", err
	}
	sections = append(sections, strings.TrimSpace(m.Render()))

	return strings.Join(sections, "\n\n"), nil
}
