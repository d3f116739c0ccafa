// Package nhentai downloads the pages of nhentai galleries. Gallery pages
// are rendered in a headless browser owned by the provider, then parsed
// for their lazily loaded thumbnails.
package nhentai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider"
)

const (
	Name    = "nhentai"
	BaseURL = "https://nhentai.net"

	DefaultTimeout = 120 * time.Second

	thumbnailSelector = ".lazyload"
	imageHost         = "i5.nhentai.net"
)

var (
	galleryRegex = regexp.MustCompile(`https://nhentai\.net/g/(\d+)/?`)
	imageRegex   = regexp.MustCompile(`^https://(\w{2})\.nhentai\.net/galleries/(\d+)/(\d+)\.(jpg|png)$`)
	hostRegex    = regexp.MustCompile(`\w{2}\.nhentai\.net`)
)

// Renderer loads a page in a browser and returns its HTML once selector
// matches
type Renderer interface {
	Render(ctx context.Context, url, selector string, timeout time.Duration) (string, error)
	Close() error
}

type Provider struct {
	provider.Base
	ids       []int
	timeout   time.Duration
	renderer  Renderer
	closeOnce sync.Once
	closeErr  error
}

func New(deps provider.Deps, extras config.Extras) (provider.Provider, error) {
	ids, invalid, err := extras.IDs("ids", galleryRegex)
	if err != nil {
		return nil, err
	}
	seconds, err := extras.Int("timeout", int(DefaultTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	if seconds <= 0 {
		return nil, errs.Config("timeout must be positive, got %d", seconds)
	}

	renderer, err := NewChromeRenderer()
	if err != nil {
		return nil, err
	}
	p := newProvider(BaseURL, deps, ids, time.Duration(seconds)*time.Second, renderer)
	for _, id := range invalid {
		p.Logger().DebugWithFields("ignoring invalid gallery id", map[string]interface{}{"id": id})
	}
	return p, nil
}

func newProvider(baseURL string, deps provider.Deps, ids []int, timeout time.Duration, renderer Renderer) *Provider {
	return &Provider{
		Base:     provider.NewBase(Name, baseURL, deps),
		ids:      ids,
		timeout:  timeout,
		renderer: renderer,
	}
}

// Targets is the number of galleries to download
func (p *Provider) Targets() int { return len(p.ids) }

func (p *Provider) FetchImage(context.Context, string) (string, error) {
	return "", nil
}

// FetchMany renders every gallery and returns its page image URLs. A
// gallery that does not load in time is skipped.
func (p *Provider) FetchMany(ctx context.Context, _ string) ([]string, error) {
	var urls []string
	for _, id := range p.ids {
		p.Logger().InfoWithFields("fetching gallery", map[string]interface{}{"id": id})

		html, err := p.renderer.Render(ctx, p.URL(fmt.Sprintf("g/%d", id)), thumbnailSelector, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return urls, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				p.Logger().WarnWithFields("timed out while fetching gallery", map[string]interface{}{"id": id})
				continue
			}
			return urls, err
		}

		images, err := ParseGallery(html)
		if err != nil {
			return urls, err
		}
		urls = append(urls, images...)
	}
	return urls, nil
}

// ParseGallery extracts full size image URLs from a rendered gallery page.
// The first thumbnail is the cover and the last five belong to the
// related galleries strip.
func ParseGallery(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "parsing gallery html")
	}

	var thumbs []string
	doc.Find(thumbnailSelector).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("data-src"); ok && src != "" {
			thumbs = append(thumbs, src)
		}
	})
	if len(thumbs) < 7 {
		return nil, nil
	}

	urls := make([]string, 0, len(thumbs)-6)
	for _, thumb := range thumbs[1 : len(thumbs)-5] {
		urls = append(urls, fullSize(thumb))
	}
	return urls, nil
}

// fullSize maps a thumbnail URL such as
// https://t3.nhentai.net/galleries/1/2t.jpg to its original on the image host
func fullSize(thumb string) string {
	dir, file := thumb, ""
	if i := strings.LastIndex(thumb, "/"); i >= 0 {
		dir, file = thumb[:i+1], thumb[i+1:]
	}
	file = strings.Replace(file, "t.", ".", 1)
	return hostRegex.ReplaceAllString(dir, imageHost) + file
}

// IdentifierFromURL names an image <gallery>_<page>.<ext>
func (p *Provider) IdentifierFromURL(rawURL string) (string, error) {
	m := imageRegex.FindStringSubmatch(rawURL)
	if m == nil {
		return "", errs.New(errs.ErrorTypeParsing, "not a gallery image url: %q", rawURL)
	}
	return fmt.Sprintf("%s_%s.%s", m[2], m[3], m[4]), nil
}

// Finalize shuts the browser down. Later calls are no-ops.
func (p *Provider) Finalize() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.renderer.Close()
	})
	return p.closeErr
}
