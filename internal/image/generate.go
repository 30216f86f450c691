package image

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/samber/lo"
)

type Params struct {
	Prompt            string  `json:"prompt"`
	Model             string  `json:"model"`
	APIKey            string  `json:"-"`
	AspectRatio       string  `json:"-"`
	ImageSize         string  `json:"-"`
	Temperature       float32 `json:"-"`
	TopP              float32 `json:"-"`
	SystemInstruction string  `json:"-"`
}

// Result is a single image payload. MediaType is whatever the service
// reported and may be empty.
type Result struct {
	Data      []byte
	MediaType string
	Model     string
	Text      string
}

// Generator issues exactly one request per call. Failures are *errs.Error
// values of kind transport, content rejected or empty result.
type Generator interface {
	Generate(context.Context, Params) (*Result, error)
}

func userAgent() string {
	revision := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		revision = lo.FindOrElse(info.Settings, debug.BuildSetting{Value: "unknown"}, func(s debug.BuildSetting) bool {
			return s.Key == "vcs.revision"
		}).Value
	}
	return fmt.Sprintf("imagegen/%s", revision)
}
