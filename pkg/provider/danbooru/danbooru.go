// Package danbooru implements the Danbooru posts API. Every request is
// authenticated with the account's username and API key.
package danbooru

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/gateway"
	"nekodl/pkg/provider"
)

const (
	Name    = "danbooru"
	BaseURL = "https://danbooru.donmai.us/"

	defaultLimit = 30
	maxLimit     = 200
)

var routes = map[string]string{
	"popular": "explore/posts/popular.json",
	"curated": "explore/posts/curated.json",
	"viewed":  "explore/posts/viewed.json",
	"random":  "posts/random.json",
}

var ratings = map[string]string{
	"safe":         "s",
	"questionable": "q",
	"explicit":     "e",
}

var scales = []string{"day", "week", "month"}

// File is the media file of a post
type File struct {
	Extension string
	Size      int
	URL       string
}

// Image is a post record as cached by the provider
type Image struct {
	MD5    string
	Source string
	File   File
	Tags   []string
}

// Options are the validated danbooru extras
type Options struct {
	Username string
	APIKey   string
	Tags     []string
	Limit    int
	SortBy   string
	Scale    string
	Date     string
}

// Route returns the endpoint for the configured sort
func (o Options) Route() string {
	if r, ok := routes[o.SortBy]; ok {
		return r
	}
	return "posts.json"
}

type Provider struct {
	provider.Base
	opts  Options
	page  int
	cache provider.Cache[Image]
}

// ParseOptions validates danbooru extras. Missing credentials are looked up
// in creds when it is non-nil.
func ParseOptions(extras config.Extras, creds provider.Credentials) (Options, error) {
	var opts Options
	var err error

	if opts.Username, err = extras.OptionalString("username", ""); err != nil {
		return opts, err
	}
	if opts.APIKey, err = extras.OptionalString("api_key", ""); err != nil {
		return opts, err
	}
	if (opts.Username == "" || opts.APIKey == "") && creds != nil {
		if user, key, lookupErr := creds.Lookup(Name); lookupErr == nil {
			if opts.Username == "" {
				opts.Username = user
			}
			if opts.APIKey == "" {
				opts.APIKey = key
			}
		}
	}
	if opts.Username == "" {
		return opts, errs.Config("username is required (set it in extras or run 'nekodl auth login %s')", Name)
	}
	if opts.APIKey == "" {
		return opts, errs.Config("api_key is required (set it in extras or run 'nekodl auth login %s')", Name)
	}

	if opts.Tags, err = extras.Strings("tags"); err != nil {
		return opts, err
	}
	opts.Tags = slices.Clone(opts.Tags)

	rating, err := extras.OptionalString("rating", "")
	if err != nil {
		return opts, err
	}
	if rating != "" {
		short, ok := ratings[rating]
		if !ok {
			return opts, errs.Config("rating must be one of safe, questionable, explicit, got %q", rating)
		}
		opts.Tags = append(opts.Tags, "rating:"+short)
	}

	if opts.Limit, err = extras.Int("limit", defaultLimit); err != nil {
		return opts, err
	}
	if opts.Limit < 1 {
		return opts, errs.Config("limit must be positive, got %d", opts.Limit)
	}
	opts.Limit = min(opts.Limit, maxLimit)

	sortBy, err := extras.Map("sort")
	if err != nil {
		return opts, err
	}
	if sortBy != nil {
		if opts.SortBy, err = sortBy.String("by"); err != nil {
			return opts, err
		}
		if _, ok := routes[opts.SortBy]; !ok {
			return opts, errs.Config("sort.by must be one of popular, curated, random, viewed, got %q", opts.SortBy)
		}
		if opts.Scale, err = sortBy.OptionalString("scale", ""); err != nil {
			return opts, err
		}
		if opts.Scale != "" && !slices.Contains(scales, opts.Scale) {
			return opts, errs.Config("sort.scale must be one of day, week, month, got %q", opts.Scale)
		}
		if opts.Date, err = sortBy.OptionalString("date", ""); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func New(deps provider.Deps, extras config.Extras) (provider.Provider, error) {
	opts, err := ParseOptions(extras, deps.Credentials)
	if err != nil {
		return nil, err
	}
	return newProvider(BaseURL, deps, opts), nil
}

func newProvider(baseURL string, deps provider.Deps, opts Options) *Provider {
	return &Provider{Base: provider.NewBase(Name, baseURL, deps), opts: opts}
}

type post struct {
	MD5        string `json:"md5"`
	Source     string `json:"source"`
	FileExt    string `json:"file_ext"`
	FileSize   int    `json:"file_size"`
	FileURL    string `json:"file_url"`
	TagsString string `json:"tag_string_general"`
}

// decodePosts accepts a list of posts or the single post posts/random.json
// answers with
func decodePosts(raw json.RawMessage) ([]post, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '{' {
		var one post
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		return []post{one}, nil
	}
	var posts []post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (p *Provider) fetchPage(ctx context.Context) ([]Image, error) {
	opts := []gateway.Option{
		gateway.WithBasicAuth(p.opts.Username, p.opts.APIKey),
		gateway.WithParam("limit", strconv.Itoa(p.opts.Limit)),
		gateway.WithParam("tags", strings.Join(p.opts.Tags, " ")),
		gateway.RaiseOnError(),
	}
	if p.opts.Scale != "" {
		opts = append(opts, gateway.WithParam("scale", p.opts.Scale))
	}
	if p.opts.Date != "" {
		opts = append(opts, gateway.WithParam("date", p.opts.Date))
	}
	route := p.opts.Route()
	if route == "posts.json" {
		p.page++
		opts = append(opts, gateway.WithParam("page", strconv.Itoa(p.page)))
	}

	raw, err := p.Gateway().Request(ctx, p.URL(route), opts...)
	if err != nil {
		return nil, err
	}
	posts, err := decodePosts(raw)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "decoding response from %s", route)
	}

	images := make([]Image, 0, len(posts))
	for _, data := range posts {
		// restricted posts carry no file url
		if data.FileURL == "" {
			continue
		}
		images = append(images, Image{
			MD5:    data.MD5,
			Source: data.Source,
			File:   File{Extension: data.FileExt, Size: data.FileSize, URL: data.FileURL},
			Tags:   strings.Fields(data.TagsString),
		})
	}
	return images, nil
}

func (p *Provider) FetchImage(ctx context.Context, _ string) (string, error) {
	img, ok, err := p.cache.Pop(ctx, p.fetchPage)
	if err != nil || !ok {
		return "", err
	}
	return img.File.URL, nil
}

func (p *Provider) FetchMany(ctx context.Context, _ string) ([]string, error) {
	images, err := p.fetchPage(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.File.URL)
	}
	return urls, nil
}

// CachedImages returns the posts fetched but not yet handed out
func (p *Provider) CachedImages() []Image {
	return p.cache.Snapshot()
}
