// Package akaneko implements the Akaneko image API.
package akaneko

import (
	"context"
	"net/url"
	"strings"

	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider"
)

const (
	Name    = "akaneko"
	BaseURL = "https://akaneko-api.herokuapp.com/api/"
)

// categories is fixed; the API has no listing endpoint
var categories = []string{
	"ass", "bdsm", "bondage", "cum", "hentai", "femdom",
	"doujin", "maid", "maids", "orgy", "panties", "nsfwwallpapers",
	"nsfwmobilewallpapers", "netorare", "gifs", "gif", "blowjob",
	"feet", "pussy", "uglybastard", "uniform", "gangbang", "foxgirl",
	"cumslut", "glasses", "thighs", "tentacles", "masturbation",
	"school", "yuri", "zettaiRyouiki", "succubus", "neko",
	"sfwfoxes", "wallpapers", "mobilewallpapers",
}

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

func (p *Provider) FetchCategories(context.Context) (provider.Categories, error) {
	cats := make(provider.Categories, len(categories))
	for _, name := range categories {
		cats[name] = provider.Unbounded
	}
	return cats, nil
}

// IdentifierFromURL hashes Discord media attachments. Other URLs are
// identified by their second path segment, or by the only one.
func (p *Provider) IdentifierFromURL(rawURL string) (string, error) {
	if hash, ok := provider.DiscordMediaHash(rawURL); ok {
		return hash, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeParsing, err, "invalid url %q", rawURL)
	}
	if strings.Count(u.Path, "/") <= 1 {
		return provider.LastSegment(rawURL)
	}
	return provider.PathSegment(rawURL, 1)
}
