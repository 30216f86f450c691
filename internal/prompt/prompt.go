package prompt

import (
	"strings"

	"github.com/dmorgan81/imagegen/internal/errs"
)

// Prompt is a validated, trimmed image description.
type Prompt string

func Parse(raw string) (Prompt, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", errs.New(errs.KindInvalidPrompt, "prompt is empty")
	}
	return Prompt(p), nil
}

func (p Prompt) String() string {
	return string(p)
}
