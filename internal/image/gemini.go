package image

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmorgan81/imagegen/internal/errs"
	"github.com/dmorgan81/imagegen/internal/log"
	"github.com/samber/do"
	"google.golang.org/genai"
)

// Finish reasons that mean the service refused the prompt rather than
// failing to answer it.
var rejectedFinishReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:                       true,
	genai.FinishReason("RECITATION"):               true,
	genai.FinishReason("BLOCKLIST"):                true,
	genai.FinishReason("PROHIBITED_CONTENT"):       true,
	genai.FinishReason("SPII"):                     true,
	genai.FinishReason("IMAGE_SAFETY"):             true,
	genai.FinishReason("IMAGE_PROHIBITED_CONTENT"): true,
	genai.FinishReason("IMAGE_RECITATION"):         true,
}

type GeminiGenerator struct {
	Client  *http.Client
	BaseURL string
}

func NewGeminiGenerator(i *do.Injector) (Generator, error) {
	return &GeminiGenerator{Client: do.MustInvoke[*http.Client](i)}, nil
}

// Generate builds a client for the credential in params and sends a single
// generateContent request that only asks for image output.
func (g *GeminiGenerator) Generate(ctx context.Context, params Params) (*Result, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("gemini").With("model", params.Model)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      params.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  g.Client,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.BaseURL},
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, err, "create gemini client")
	}

	log.Info("generating image", "aspect_ratio", params.AspectRatio, "size", params.ImageSize)
	resp, err := client.Models.GenerateContent(ctx, params.Model, genai.Text(params.Prompt), requestConfig(params))
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, err, "call gemini")
	}

	result, err := parseResponse(resp)
	if err != nil {
		log.Warn("no usable image in response", "error", err)
		return nil, err
	}
	result.Model = lookupModel(resp, params.Model)
	log.Info("received image", "media_type", result.MediaType, "bytes", len(result.Data))
	return result, nil
}

func requestConfig(params Params) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:        genai.Ptr(params.Temperature),
		TopP:               genai.Ptr(params.TopP),
		ResponseModalities: []string{"IMAGE"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: params.AspectRatio,
			ImageSize:   params.ImageSize,
		},
	}
	if params.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(params.SystemInstruction, genai.RoleUser)
	}
	return cfg
}

// parseResponse returns the first inline image across all candidates. A
// response without one is classified as rejected when the service says so
// and as empty otherwise.
func parseResponse(resp *genai.GenerateContentResponse) (*Result, error) {
	if resp == nil {
		return nil, errs.New(errs.KindEmptyResult, "gemini returned no response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return nil, errs.New(errs.KindContentRejected, "prompt blocked (%s) %s", fb.BlockReason, fb.BlockReasonMessage)
	}

	var texts []string
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &Result{
					Data:      part.InlineData.Data,
					MediaType: part.InlineData.MIMEType,
					Text:      strings.Join(candidateText(c), "\n"),
				}, nil
			}
		}
		texts = append(texts, candidateText(c)...)
	}

	for _, c := range resp.Candidates {
		if c != nil && rejectedFinishReasons[c.FinishReason] {
			return nil, errs.New(errs.KindContentRejected, "generation stopped (%s) %s", c.FinishReason, c.FinishMessage)
		}
	}

	if len(resp.Candidates) == 0 {
		return nil, errs.New(errs.KindEmptyResult, "gemini returned no candidates")
	}
	if len(texts) > 0 {
		return nil, errs.New(errs.KindEmptyResult, "gemini returned text but no image: %s", strings.Join(texts, " "))
	}
	return nil, errs.New(errs.KindEmptyResult, "gemini returned no image data")
}

func candidateText(c *genai.Candidate) []string {
	var out []string
	for _, part := range c.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought && part.InlineData == nil {
			out = append(out, strings.TrimSpace(part.Text))
		}
	}
	return out
}

func lookupModel(resp *genai.GenerateContentResponse, fallback string) string {
	if resp.ModelVersion != "" {
		return resp.ModelVersion
	}
	return fallback
}
