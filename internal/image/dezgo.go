package image

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dmorgan81/imagegen/internal/errs"
	"github.com/go-logr/logr"
	"github.com/samber/do"
)

const DezgoEndpoint = "https://api.dezgo.com/text2image"

type DezgoGenerator struct {
	Client   *http.Client
	Endpoint string
}

func NewDezgoGenerator(i *do.Injector) (Generator, error) {
	return &DezgoGenerator{Client: do.MustInvoke[*http.Client](i), Endpoint: DezgoEndpoint}, nil
}

func (g *DezgoGenerator) Generate(ctx context.Context, params Params) (*Result, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("dezgo").WithValues("model", params.Model)
	log.Info("generating image via api.dezgo.com")

	body, err := json.Marshal(params)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, err, "encode dezgo request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, err, "build dezgo request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("X-Dezgo-Key", params.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, err, "call dezgo")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, err, "read dezgo response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.New(errs.KindTransport, "dezgo status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if len(data) == 0 {
		return nil, errs.New(errs.KindEmptyResult, "dezgo returned no image")
	}

	log.Info("received image via api.dezgo.com", "seed", resp.Header.Get("X-Input-Seed"), "bytes", len(data))
	return &Result{
		Data:      data,
		MediaType: resp.Header.Get("Content-Type"),
		Model:     params.Model,
	}, nil
}
