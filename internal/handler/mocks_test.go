package handler

import (
	"context"

	"github.com/dmorgan81/imagegen/internal/image"
)

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, params image.Params) (*image.Result, error)
	calls        []image.Params
}

func (m *mockGenerator) Generate(ctx context.Context, params image.Params) (*image.Result, error) {
	m.calls = append(m.calls, params)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, params)
	}
	return &image.Result{}, nil
}
