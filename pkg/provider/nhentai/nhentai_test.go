package nhentai

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider/providertest"
)

type fakeRenderer struct {
	pages  map[string]string
	closed int
}

func (f *fakeRenderer) Render(_ context.Context, url, selector string, _ time.Duration) (string, error) {
	html, ok := f.pages[url]
	if !ok {
		return "", context.DeadlineExceeded
	}
	return html, nil
}

func (f *fakeRenderer) Close() error {
	f.closed++
	return nil
}

func galleryHTML(id, pages int) string {
	var b strings.Builder
	b.WriteString(`<html><body><img class="lazyload" data-src="https://t3.nhentai.net/galleries/9/cover.jpg">`)
	for i := 1; i <= pages; i++ {
		fmt.Fprintf(&b, `<img class="lazyload" data-src="https://t3.nhentai.net/galleries/%d/%dt.jpg">`, id, i)
	}
	for i := 0; i < 5; i++ {
		b.WriteString(`<img class="lazyload" data-src="https://t5.nhentai.net/galleries/1/thumb.jpg">`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func TestFetchMany(t *testing.T) {
	renderer := &fakeRenderer{pages: map[string]string{
		BaseURL + "/g/177013": galleryHTML(987, 2),
	}}
	p := newProvider(BaseURL, providertest.Deps(t), []int{177013, 1}, time.Second, renderer)
	assert.Equal(t, 2, p.Targets())

	urls, err := p.FetchMany(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://i5.nhentai.net/galleries/987/1.jpg",
		"https://i5.nhentai.net/galleries/987/2.jpg",
	}, urls)

	id, err := p.IdentifierFromURL(urls[1])
	require.NoError(t, err)
	assert.Equal(t, "987_2.jpg", id)

	require.NoError(t, p.Finalize())
	require.NoError(t, p.Finalize())
	assert.Equal(t, 1, renderer.closed)
}

func TestParseGalleryTooFewThumbnails(t *testing.T) {
	urls, err := ParseGallery(`<img class="lazyload" data-src="https://t3.nhentai.net/galleries/1/1t.jpg">`)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestIdentifierRejectsOtherURLs(t *testing.T) {
	p := newProvider(BaseURL, providertest.Deps(t), nil, time.Second, &fakeRenderer{})
	_, err := p.IdentifierFromURL("https://example.com/a.jpg")
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))
}

func TestNewValidatesBeforeStartingBrowser(t *testing.T) {
	_, err := New(providertest.Deps(t), config.Extras{"timeout": 10})
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))

	_, err = New(providertest.Deps(t), config.Extras{"ids": []any{1}, "timeout": -5})
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
}
