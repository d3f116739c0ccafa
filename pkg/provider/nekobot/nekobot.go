// Package nekobot implements the nekobot.xyz image API.
package nekobot

import (
	"context"

	"nekodl/pkg/config"
	"nekodl/pkg/gateway"
	"nekodl/pkg/provider"
)

const (
	Name    = "nekobot"
	BaseURL = "https://nekobot.xyz/api/image"
)

type Provider struct {
	provider.Base
}

func New(deps provider.Deps, _ config.Extras) (provider.Provider, error) {
	return newProvider(BaseURL, deps), nil
}

func newProvider(baseURL string, deps provider.Deps) *Provider {
	return &Provider{Base: provider.NewBase(Name, baseURL, deps)}
}

func (p *Provider) FetchImage(ctx context.Context, category string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := p.Gateway().RequestJSON(ctx, p.URL(""), &resp, gateway.WithParam("type", category)); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (p *Provider) FetchMany(ctx context.Context, category string) ([]string, error) {
	return p.FetchRepeated(ctx, category, p.FetchImage)
}

// FetchCategories returns the per-category image counts from the stats
// endpoint
func (p *Provider) FetchCategories(ctx context.Context) (provider.Categories, error) {
	var resp struct {
		Stats map[string]int `json:"stats"`
	}
	if err := p.Gateway().RequestJSON(ctx, p.URL(""), &resp); err != nil {
		return nil, err
	}
	cats := provider.Categories{}
	for name, count := range resp.Stats {
		cats[name] = count
	}
	return cats, nil
}
