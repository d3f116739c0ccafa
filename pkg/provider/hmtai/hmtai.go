// Package hmtai implements the hmtai image API.
package hmtai

import (
	"context"

	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider"
)

const (
	Name    = "hmtai"
	BaseURL = "https://hmtai.herokuapp.com/v2/"
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
		URL string `json:"url"`
	}
	if err := p.Gateway().RequestJSON(ctx, p.URL(category), &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (p *Provider) FetchMany(ctx context.Context, category string) ([]string, error) {
	return p.FetchRepeated(ctx, category, p.FetchImage)
}

func (p *Provider) FetchCategories(ctx context.Context) (provider.Categories, error) {
	var resp struct {
		SFW  []string `json:"sfw"`
		NSFW []string `json:"nsfw"`
	}
	if err := p.Gateway().RequestJSON(ctx, p.URL("endpoints"), &resp); err != nil {
		return nil, err
	}
	cats := provider.Categories{}
	for _, name := range append(resp.SFW, resp.NSFW...) {
		cats[name] = provider.Unbounded
	}
	return cats, nil
}

// IdentifierFromURL accepts Discord CDN attachment URLs only
func (p *Provider) IdentifierFromURL(rawURL string) (string, error) {
	hash, ok := provider.DiscordCDNHash(rawURL)
	if !ok {
		return "", errs.New(errs.ErrorTypeParsing, "not a Discord CDN attachment url: %q", rawURL)
	}
	return hash, nil
}
