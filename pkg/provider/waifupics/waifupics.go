// Package waifupics implements the waifu.pics API.
package waifupics

import (
	"context"
	"net/http"

	"nekodl/pkg/config"
	"nekodl/pkg/gateway"
	"nekodl/pkg/provider"
)

const (
	Name    = "waifu.pics"
	BaseURL = "https://api.waifu.pics/"
)

type Provider struct {
	provider.Base
	nsfw bool
}

func New(deps provider.Deps, extras config.Extras) (provider.Provider, error) {
	return newProvider(BaseURL, deps, extras.Bool("nsfw")), nil
}

func newProvider(baseURL string, deps provider.Deps, nsfw bool) *Provider {
	return &Provider{Base: provider.NewBase(Name, baseURL, deps), nsfw: nsfw}
}

func (p *Provider) kind() string {
	if p.nsfw {
		return "nsfw"
	}
	return "sfw"
}

func (p *Provider) FetchImage(ctx context.Context, category string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := p.Gateway().RequestJSON(ctx, p.URL(p.kind()+"/"+category), &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// FetchMany uses the bulk endpoint
func (p *Provider) FetchMany(ctx context.Context, category string) ([]string, error) {
	var resp struct {
		Files []string `json:"files"`
	}
	err := p.Gateway().RequestJSON(ctx, p.URL("many/"+p.kind()+"/"+category), &resp,
		gateway.WithMethod(http.MethodPost),
		gateway.WithJSONBody(map[string][]string{"exclude": {}}),
	)
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (p *Provider) FetchCategories(ctx context.Context) (provider.Categories, error) {
	var resp struct {
		SFW  []string `json:"sfw"`
		NSFW []string `json:"nsfw"`
	}
	if err := p.Gateway().RequestJSON(ctx, p.URL("endpoints"), &resp); err != nil {
		return nil, err
	}
	names := resp.SFW
	if p.nsfw {
		names = resp.NSFW
	}
	cats := provider.Categories{}
	for _, name := range names {
		cats[name] = provider.Unbounded
	}
	return cats, nil
}
