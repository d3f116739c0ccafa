// Package booru implements the booru.io legacy query API, which pages
// through results with an opaque cursor.
package booru

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/gateway"
	"nekodl/pkg/provider"
)

const (
	Name    = "booru.io"
	BaseURL = "https://booru.io/api/legacy"
)

// Image is an entity record as cached by the provider
type Image struct {
	Key         string
	ContentType string
	Width       int
	Height      int
	Tags        []string
	Transforms  []string
	url         string
}

func (i Image) URL() string { return i.url }

type Provider struct {
	provider.Base
	tags   []string
	cursor int
	cache  provider.Cache[Image]
}

func New(deps provider.Deps, extras config.Extras) (provider.Provider, error) {
	tags, err := extras.Strings("tags")
	if err != nil {
		return nil, err
	}
	cursor, err := extras.Int("cursor", 0)
	if err != nil {
		return nil, err
	}
	return newProvider(BaseURL, deps, tags, cursor), nil
}

func newProvider(baseURL string, deps provider.Deps, tags []string, cursor int) *Provider {
	return &Provider{
		Base:   provider.NewBase(Name, baseURL, deps),
		tags:   tags,
		cursor: cursor,
	}
}

type entity struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Attributes  struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"attributes"`
	Tags       map[string]json.RawMessage `json:"tags"`
	Transforms map[string]string          `json:"transforms"`
}

func (p *Provider) fetchPage(ctx context.Context) ([]Image, error) {
	var resp struct {
		Cursor json.RawMessage `json:"cursor"`
		Data   []entity        `json:"data"`
	}
	err := p.Gateway().RequestJSON(ctx, p.URL("query/entity"), &resp,
		gateway.WithParam("query", strings.Join(p.tags, " ")),
		gateway.WithParam("cursor", strconv.Itoa(p.cursor)),
	)
	if err != nil {
		return nil, err
	}
	p.cursor = parseCursor(resp.Cursor)

	images := make([]Image, 0, len(resp.Data))
	for _, e := range resp.Data {
		transforms := sortedValues(e.Transforms)
		if len(transforms) == 0 {
			continue
		}
		tags := make([]string, 0, len(e.Tags))
		for tag := range e.Tags {
			tags = append(tags, tag)
		}
		images = append(images, Image{
			Key:         e.Key,
			ContentType: e.ContentType,
			Width:       e.Attributes.Width,
			Height:      e.Attributes.Height,
			Tags:        tags,
			Transforms:  transforms,
			url:         p.URL("data/" + transforms[0]),
		})
	}
	return images, nil
}

// parseCursor accepts a number or a numeric string and falls back to 0
func parseCursor(raw json.RawMessage) int {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return 0
	}
	n, ok := config.ToInt(v)
	if !ok {
		return 0
	}
	return n
}

func (p *Provider) FetchImage(ctx context.Context, _ string) (string, error) {
	img, ok, err := p.cache.Pop(ctx, p.fetchPage)
	if err != nil || !ok {
		return "", err
	}
	return img.URL(), nil
}

func (p *Provider) FetchMany(ctx context.Context, _ string) ([]string, error) {
	images, err := p.fetchPage(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.URL())
	}
	return urls, nil
}

// CachedImages returns the entities fetched but not yet handed out
func (p *Provider) CachedImages() []Image {
	return p.cache.Snapshot()
}

// IdentifierFromURL uses the segment before the last one, which is the
// transform key for nested transform paths
func (p *Provider) IdentifierFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeParsing, err, "invalid url %q", rawURL)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] == "data" {
		return provider.LastSegment(rawURL)
	}
	return provider.SafeIdentifier(parts[len(parts)-2])
}

// sortedValues returns map values ordered by key
func sortedValues(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
