package handler

import (
	"context"

	"github.com/dmorgan81/imagegen/internal/config"
	"github.com/dmorgan81/imagegen/internal/image"
	"github.com/dmorgan81/imagegen/internal/log"
	"github.com/dmorgan81/imagegen/internal/prompt"
	"github.com/dmorgan81/imagegen/internal/report"
	"github.com/dmorgan81/imagegen/internal/store"
	"github.com/samber/do"
)

type Input struct {
	Prompt string `json:"prompt"`
}

type Output struct {
	Prompt    string `json:"prompt"`
	Model     string `json:"model"`
	Path      string `json:"path"`
	Size      int    `json:"size"`
	MediaType string `json:"media_type"`
	Text      string `json:"text,omitempty"`
}

func (o Output) toReportParams(cfg config.Config) report.Params {
	return report.Params{
		Prompt:      o.Prompt,
		Provider:    cfg.Provider,
		Model:       o.Model,
		AspectRatio: cfg.AspectRatio,
		ImageSize:   cfg.ImageSize,
		Path:        o.Path,
		Size:        o.Size,
		MediaType:   o.MediaType,
		Text:        o.Text,
	}
}

type Handler struct {
	config    config.Config
	generator image.Generator
	store     store.Store
	templator *report.Templator
}

func New(cfg config.Config, generator image.Generator, store store.Store, templator *report.Templator) *Handler {
	return &Handler{config: cfg, generator: generator, store: store, templator: templator}
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return New(
		do.MustInvoke[config.Config](i),
		do.MustInvoke[image.Generator](i),
		do.MustInvoke[store.Store](i),
		do.MustInvoke[*report.Templator](i),
	), nil
}

// Handle turns one prompt into one file. The prompt is validated before
// anything leaves the process and the generator is called at most once.
func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	p, err := prompt.Parse(input.Prompt)
	if err != nil {
		return Output{}, err
	}

	log := log.FromContextOrDiscard(ctx).WithGroup("handler").With("prompt", p.String())
	log.Info("handling prompt", "provider", h.config.Provider, "model", h.config.Model)

	result, err := h.generator.Generate(ctx, image.Params{
		Prompt:            p.String(),
		Model:             h.config.Model,
		APIKey:            h.config.APIKey,
		AspectRatio:       h.config.AspectRatio,
		ImageSize:         h.config.ImageSize,
		Temperature:       h.config.Temperature,
		TopP:              h.config.TopP,
		SystemInstruction: h.config.SystemInstruction,
	})
	if err != nil {
		return Output{}, err
	}

	file, err := h.store.Save(ctx, store.SaveParams{Data: result.Data, MediaType: result.MediaType})
	if err != nil {
		return Output{}, err
	}

	return Output{
		Prompt:    p.String(),
		Model:     result.Model,
		Path:      file.Path,
		Size:      file.Size,
		MediaType: file.MediaType,
		Text:      result.Text,
	}, nil
}

// Report renders the summary printed after a successful run.
func (h *Handler) Report(ctx context.Context, out Output) ([]byte, error) {
	return h.templator.Template(ctx, out.toReportParams(h.config))
}
