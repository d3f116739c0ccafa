// Package pixiv downloads every page of a list of pixiv artworks.
//
// Artworks whose metadata hides the original URL are located by rebuilding
// the original image URL from the upload timestamp and probing the image
// host for the missing seconds and extension.
package pixiv

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider"
)

const (
	Name      = "pixiv"
	BaseURL   = "https://www.pixiv.net"
	ImageBase = "https://i.pximg.net"

	// probeWidth is the number of candidate seconds probed at once
	probeWidth = 60
)

var (
	artworkRegex = regexp.MustCompile(`https://www\.pixiv\.net/(?:en/)?artworks/(\d+)`)
	jst          = time.FixedZone("JST", 9*60*60)
	extensions   = []string{"png", "jpg"}
)

type Provider struct {
	provider.Base
	ids       []int
	imageBase string
}

func New(deps provider.Deps, extras config.Extras) (provider.Provider, error) {
	ids, invalid, err := extras.IDs("ids", artworkRegex)
	if err != nil {
		return nil, err
	}
	p := newProvider(BaseURL, ImageBase, deps, ids)
	for _, id := range invalid {
		p.Logger().DebugWithFields("ignoring invalid artwork id", map[string]interface{}{"id": id})
	}
	return p, nil
}

func newProvider(baseURL, imageBase string, deps provider.Deps, ids []int) *Provider {
	return &Provider{
		Base:      provider.NewBase(Name, baseURL, deps),
		ids:       ids,
		imageBase: imageBase,
	}
}

// Targets is the number of artworks to download
func (p *Provider) Targets() int { return len(p.ids) }

// DownloadHeader returns the Referer the image host insists on
func (p *Provider) DownloadHeader() http.Header {
	return http.Header{"Referer": []string{BaseURL}}
}

// FetchImage never yields anything; artworks are fetched in bulk
func (p *Provider) FetchImage(context.Context, string) (string, error) {
	return "", nil
}

type illustration struct {
	ID        string `json:"illustId"`
	PageCount int    `json:"pageCount"`
	URLs      struct {
		Original *string `json:"original"`
	} `json:"urls"`
	UploadDate string `json:"uploadDate"`
}

// FetchMany returns the image URLs of every page of every artwork
func (p *Provider) FetchMany(ctx context.Context, _ string) ([]string, error) {
	var urls []string
	for _, id := range p.ids {
		var resp struct {
			Body illustration `json:"body"`
		}
		if err := p.Gateway().RequestJSON(ctx, p.URL(fmt.Sprintf("ajax/illust/%d", id)), &resp); err != nil {
			return urls, err
		}
		illust := resp.Body
		if illust.ID == "" {
			p.Logger().WarnWithFields("failed to fetch illustration", map[string]interface{}{"id": id})
			continue
		}

		if illust.URLs.Original != nil && *illust.URLs.Original != "" {
			for page := 0; page < illust.PageCount; page++ {
				urls = append(urls, strings.Replace(*illust.URLs.Original, "_p0", fmt.Sprintf("_p%d", page), 1))
			}
			continue
		}

		guessed, err := p.reconstruct(ctx, illust)
		if err != nil {
			if ctx.Err() != nil {
				return urls, ctx.Err()
			}
			p.Logger().WithError(err).ErrorWithFields("failed to locate original images", map[string]interface{}{"id": id})
			continue
		}
		urls = append(urls, guessed...)
	}
	return urls, nil
}

// IdentifierFromURL uses the file name, which already carries the page
func (p *Provider) IdentifierFromURL(rawURL string) (string, error) {
	return provider.LastSegment(rawURL)
}

// imageURL builds an original image URL for an upload time and page
func (p *Provider) imageURL(at time.Time, second int, id string, page int, ext string) string {
	return fmt.Sprintf("%s/img-original/img/%04d/%02d/%02d/%02d/%02d/%02d/%s_p%d.%s",
		strings.TrimSuffix(p.imageBase, "/"),
		at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute(), second, id, page, ext)
}

// reconstruct locates the originals of an illustration whose metadata
// omits them. The upload time is trusted to the minute only.
func (p *Provider) reconstruct(ctx context.Context, illust illustration) ([]string, error) {
	uploaded, err := time.Parse(time.RFC3339, illust.UploadDate)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "upload date %q", illust.UploadDate)
	}
	uploaded = uploaded.In(jst)

	second, ext, err := p.locate(ctx, uploaded, illust.ID)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, illust.PageCount)
	for page := 0; page < illust.PageCount; page++ {
		urls = append(urls, p.imageURL(uploaded, second, illust.ID, page, ext))
	}
	return urls, nil
}

// locate finds the second and extension of the first page. A failed
// probe only surfaces when no candidate matched.
func (p *Provider) locate(ctx context.Context, uploaded time.Time, id string) (int, string, error) {
	var probeErr error
	for _, ext := range extensions {
		ok, err := p.Gateway().Exists(ctx, p.imageURL(uploaded, uploaded.Second(), id, 0, ext), p.DownloadHeader())
		if err != nil {
			if ctx.Err() != nil {
				return 0, "", ctx.Err()
			}
			probeErr = err
			continue
		}
		if ok {
			return uploaded.Second(), ext, nil
		}
	}

	for _, ext := range extensions {
		second, err := p.probeSeconds(ctx, uploaded, id, ext)
		if second >= 0 {
			return second, ext, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return 0, "", ctx.Err()
			}
			probeErr = err
		}
	}
	if probeErr != nil {
		return 0, "", probeErr
	}
	return 0, "", errs.New(errs.ErrorTypeNotFound, "no original image found for illustration %s", id)
}

// probeSeconds checks every second of the upload minute concurrently and
// returns the lowest one that exists, or -1 with the first probe error
func (p *Provider) probeSeconds(ctx context.Context, uploaded time.Time, id, ext string) (int, error) {
	var mu sync.Mutex
	found := -1
	var firstErr error

	var g errgroup.Group
	g.SetLimit(probeWidth)
	for second := 0; second < 60; second++ {
		second := second
		g.Go(func() error {
			ok, err := p.Gateway().Exists(ctx, p.imageURL(uploaded, second, id, 0, ext), p.DownloadHeader())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				if firstErr == nil {
					firstErr = err
				}
			case ok && (found < 0 || second < found):
				found = second
			}
			return nil
		})
	}
	_ = g.Wait()

	if found >= 0 {
		return found, nil
	}
	return -1, firstErr
}
