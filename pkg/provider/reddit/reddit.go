// Package reddit downloads media posted to a subreddit. Gallery posts are
// expanded through the comments endpoint and imgur albums through the
// imgur album API.
package reddit

import (
	"context"
	"net/http"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/koffeinsource/go-imgur"
	"mvdan.cc/xurls/v2"
	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/gateway"
	"nekodl/pkg/provider"
)

const (
	Name     = "reddit"
	BaseURL  = "https://reddit.com/"
	ImgurAPI = "https://api.imgur.com/3/"

	// UserAgent is sent to reddit, which throttles generic clients heavily
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/103.0.0.0 Safari/537.36"

	imgurClientID = "ab1802d70cb1deb"
	defaultLimit  = 30
	maxLimit      = 100
)

var (
	sorts      = []string{"hot", "new", "rising", "top", "controversial"}
	timeRanges = []string{"hour", "day", "week", "month", "year", "all"}
	mediaExts  = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webm": true, ".mp4": true}
)

// Post is one downloadable media item found in the feed
type Post struct {
	URL     string
	Gallery string
	Tags    []string
	Source  string
}

// Options are the validated reddit extras
type Options struct {
	Subreddit string
	Sort      string
	Time      string
	Limit     int
}

type Provider struct {
	provider.Base
	opts     Options
	imgurAPI string
	after    string
	cache    provider.Cache[Post]
}

// ParseOptions validates reddit extras
func ParseOptions(extras config.Extras) (Options, error) {
	var opts Options
	var err error

	if opts.Subreddit, err = extras.String("subreddit"); err != nil {
		return opts, err
	}
	if opts.Subreddit = strings.TrimPrefix(strings.TrimSpace(opts.Subreddit), "r/"); opts.Subreddit == "" {
		return opts, errs.Config("subreddit must not be empty")
	}
	if opts.Sort, err = extras.OptionalString("sort", "hot"); err != nil {
		return opts, err
	}
	if !slices.Contains(sorts, opts.Sort) {
		return opts, errs.Config("sort must be one of %s, got %q", strings.Join(sorts, ", "), opts.Sort)
	}
	if opts.Time, err = extras.OptionalString("time", ""); err != nil {
		return opts, err
	}
	if opts.Time != "" && !slices.Contains(timeRanges, opts.Time) {
		return opts, errs.Config("time must be one of %s, got %q", strings.Join(timeRanges, ", "), opts.Time)
	}
	if opts.Limit, err = extras.Int("limit", defaultLimit); err != nil {
		return opts, err
	}
	if opts.Limit < 1 || opts.Limit > maxLimit {
		return opts, errs.Config("limit must be between 1 and %d, got %d", maxLimit, opts.Limit)
	}
	return opts, nil
}

func New(deps provider.Deps, extras config.Extras) (provider.Provider, error) {
	opts, err := ParseOptions(extras)
	if err != nil {
		return nil, err
	}
	return newProvider(BaseURL, ImgurAPI, deps, opts), nil
}

func newProvider(baseURL, imgurAPI string, deps provider.Deps, opts Options) *Provider {
	return &Provider{
		Base:     provider.NewBase(Name, baseURL, deps),
		opts:     opts,
		imgurAPI: imgurAPI,
	}
}

// DownloadHeader sends the browser user agent to the media hosts too
func (p *Provider) DownloadHeader() http.Header {
	return http.Header{"User-Agent": []string{UserAgent}}
}

func (p *Provider) FetchImage(ctx context.Context, _ string) (string, error) {
	post, ok, err := p.cache.Pop(ctx, p.fetchPage)
	if err != nil || !ok {
		return "", err
	}
	return post.URL, nil
}

// FetchMany returns the media of the next feed page
func (p *Provider) FetchMany(ctx context.Context, _ string) ([]string, error) {
	posts, err := p.fetchPage(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(posts))
	for _, post := range posts {
		urls = append(urls, post.URL)
	}
	return urls, nil
}

// CachedPosts returns the posts fetched but not yet handed out
func (p *Provider) CachedPosts() []Post {
	return p.cache.Snapshot()
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	URL           string                   `json:"url"`
	IsSelf        bool                     `json:"is_self"`
	IsGallery     bool                     `json:"is_gallery"`
	Selftext      string                   `json:"selftext"`
	Permalink     string                   `json:"permalink"`
	LinkFlairText string                   `json:"link_flair_text"`
	MediaMetadata map[string]mediaMetadata `json:"media_metadata"`
}

type mediaMetadata struct {
	Status string `json:"status"`
	Mime   string `json:"m"`
}

func (p *Provider) fetchPage(ctx context.Context) ([]Post, error) {
	opts := []gateway.Option{
		gateway.WithHeader("User-Agent", UserAgent),
		gateway.WithParam("limit", strconv.Itoa(p.opts.Limit)),
	}
	if p.after != "" {
		opts = append(opts, gateway.WithParam("after", p.after))
	}
	if p.opts.Time != "" {
		opts = append(opts, gateway.WithParam("t", p.opts.Time))
	}

	var feed listing
	route := "r/" + p.opts.Subreddit + "/" + p.opts.Sort + ".json"
	if err := p.Gateway().RequestJSON(ctx, p.URL(route), &feed, opts...); err != nil {
		return nil, err
	}

	var posts []Post
	for _, child := range feed.Data.Children {
		data := child.Data
		media, err := p.expand(ctx, data)
		if err != nil {
			p.Logger().WithError(err).DebugWithFields("skipping post", map[string]interface{}{"post": data.Name})
			continue
		}
		posts = append(posts, media...)
		p.after = data.Name
	}
	if feed.Data.After != "" {
		p.after = feed.Data.After
	}
	return posts, nil
}

// expand turns one feed entry into zero or more media posts
func (p *Provider) expand(ctx context.Context, data postData) ([]Post, error) {
	base := Post{Source: data.Permalink}
	if data.LinkFlairText != "" {
		base.Tags = []string{data.LinkFlairText}
	}
	with := func(urls []string, gallery string) []Post {
		out := make([]Post, 0, len(urls))
		for _, u := range urls {
			post := base
			post.URL = u
			post.Gallery = gallery
			out = append(out, post)
		}
		return out
	}

	switch {
	case data.IsGallery:
		urls, err := p.galleryMedia(ctx, data)
		return with(urls, data.ID), err
	case data.IsSelf:
		return with(selfLinks(data.Selftext), ""), nil
	case isImgurAlbum(data.URL):
		urls, err := p.imgurAlbum(ctx, data.URL)
		return with(urls, albumHash(data.URL)), err
	default:
		return with([]string{data.URL}, ""), nil
	}
}

// galleryMedia resolves gallery items, asking the comments endpoint when
// the feed entry carries no media metadata
func (p *Provider) galleryMedia(ctx context.Context, data postData) ([]string, error) {
	metadata := data.MediaMetadata
	if len(metadata) == 0 {
		var thread []listing
		err := p.Gateway().RequestJSON(ctx, p.URL("comments/"+data.ID+".json"), &thread,
			gateway.WithHeader("User-Agent", UserAgent))
		if err != nil {
			return nil, err
		}
		if len(thread) == 0 || len(thread[0].Data.Children) == 0 {
			return nil, errs.New(errs.ErrorTypeParsing, "gallery %s has no post data", data.ID)
		}
		metadata = thread[0].Data.Children[0].Data.MediaMetadata
	}
	return galleryURLs(metadata), nil
}

func galleryURLs(metadata map[string]mediaMetadata) []string {
	ids := make([]string, 0, len(metadata))
	for id := range metadata {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var urls []string
	for _, id := range ids {
		m := metadata[id]
		if m.Status != "valid" {
			continue
		}
		_, subtype, ok := strings.Cut(m.Mime, "/")
		if !ok || subtype == "" {
			continue
		}
		urls = append(urls, "https://i.redd.it/"+id+"."+subtype)
	}
	return urls
}

// selfLinks extracts direct media links from a text post
func selfLinks(text string) []string {
	var urls []string
	for _, u := range xurls.Strict().FindAllString(text, -1) {
		if mediaExts[strings.ToLower(path.Ext(strings.SplitN(u, "?", 2)[0]))] {
			urls = append(urls, u)
		}
	}
	return urls
}

func isImgurAlbum(u string) bool {
	return strings.HasPrefix(u, "https://imgur.com/a/") || strings.HasPrefix(u, "https://imgur.com/gallery/")
}

// albumHash takes the trailing 7 characters of an album slug
func albumHash(u string) string {
	slug := path.Base(strings.TrimSuffix(u, "/"))
	if len(slug) > 7 {
		slug = slug[len(slug)-7:]
	}
	return slug
}

func (p *Provider) imgurAlbum(ctx context.Context, albumURL string) ([]string, error) {
	hash := albumHash(albumURL)
	if len(hash) < 7 {
		return nil, errs.New(errs.ErrorTypeParsing, "imgur album hash too short: %q", hash)
	}

	var resp struct {
		Data    *imgur.AlbumInfo `json:"data"`
		Success bool             `json:"success"`
	}
	err := p.Gateway().RequestJSON(ctx, gateway.Join(p.imgurAPI, "album/"+hash), &resp,
		gateway.WithHeader("Authorization", "Client-ID "+imgurClientID),
		gateway.RaiseOnError())
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, errs.New(errs.ErrorTypeParsing, "imgur album %s: unsuccessful response", hash)
	}

	urls := make([]string, 0, len(resp.Data.Images))
	for _, img := range resp.Data.Images {
		urls = append(urls, img.Link)
	}
	return urls, nil
}
