// Package waifuim implements the waifu.im API.
package waifuim

import (
	"context"
	"strconv"

	"nekodl/pkg/config"
	"nekodl/pkg/gateway"
	"nekodl/pkg/provider"
)

const (
	Name    = "waifu.im"
	BaseURL = "https://api.waifu.im/"
)

type Provider struct {
	provider.Base
	nsfw bool
}

type image struct {
	URL string `json:"url"`
}

type tag struct {
	Name string `json:"name"`
}

func New(deps provider.Deps, extras config.Extras) (provider.Provider, error) {
	return newProvider(BaseURL, deps, extras.Bool("nsfw")), nil
}

func newProvider(baseURL string, deps provider.Deps, nsfw bool) *Provider {
	return &Provider{Base: provider.NewBase(Name, baseURL, deps), nsfw: nsfw}
}

func (p *Provider) random(ctx context.Context, category string, many bool) ([]image, error) {
	opts := []gateway.Option{
		gateway.WithParam("selected_tags", category),
		gateway.WithParam("nsfw", strconv.FormatBool(p.nsfw)),
	}
	if many {
		opts = append(opts, gateway.WithParam("many", "true"))
	}
	var resp struct {
		Images []image `json:"images"`
	}
	if err := p.Gateway().RequestJSON(ctx, p.URL("random"), &resp, opts...); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

func (p *Provider) FetchImage(ctx context.Context, category string) (string, error) {
	images, err := p.random(ctx, category, false)
	if err != nil || len(images) == 0 {
		return "", err
	}
	return images[0].URL, nil
}

func (p *Provider) FetchMany(ctx context.Context, category string) ([]string, error) {
	images, err := p.random(ctx, category, true)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.URL)
	}
	return urls, nil
}

// FetchCategories lists the versatile tags, plus the nsfw tags when the
// nsfw flag is set
func (p *Provider) FetchCategories(ctx context.Context) (provider.Categories, error) {
	var resp struct {
		Versatile []tag `json:"versatile"`
		NSFW      []tag `json:"nsfw"`
	}
	if err := p.Gateway().RequestJSON(ctx, p.URL("tags"), &resp, gateway.WithParam("full", "on")); err != nil {
		return nil, err
	}
	tags := resp.Versatile
	if p.nsfw {
		tags = append(tags, resp.NSFW...)
	}
	cats := provider.Categories{}
	for _, t := range tags {
		cats[t.Name] = provider.Unbounded
	}
	return cats, nil
}
