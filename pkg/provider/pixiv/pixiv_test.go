package pixiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider"
	"nekodl/pkg/provider/providertest"
)

func TestNewParsesIDs(t *testing.T) {
	p, err := New(providertest.Deps(t), config.Extras{
		"ids": []any{int64(1), "2", "https://www.pixiv.net/en/artworks/3", "bogus"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, p.(*Provider).ids)
	assert.Equal(t, 3, p.(provider.Targeted).Targets())
	assert.Equal(t, BaseURL, p.(provider.HeaderProvider).DownloadHeader().Get("Referer"))

	_, err = New(providertest.Deps(t), config.Extras{})
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
}

func TestFetchManyWithOriginals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ajax/illust/100":
			providertest.JSON(t, w, map[string]interface{}{"body": map[string]interface{}{
				"illustId":   "100",
				"pageCount":  3,
				"urls":       map[string]string{"original": "https://i.pximg.net/img-original/img/2022/01/02/03/04/05/100_p0.png"},
				"uploadDate": "2022-01-01T18:04:05+00:00",
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := newProvider(server.URL, server.URL, providertest.Deps(t), []int{100, 404})
	urls, err := p.FetchMany(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://i.pximg.net/img-original/img/2022/01/02/03/04/05/100_p0.png",
		"https://i.pximg.net/img-original/img/2022/01/02/03/04/05/100_p1.png",
		"https://i.pximg.net/img-original/img/2022/01/02/03/04/05/100_p2.png",
	}, urls)

	id, err := p.IdentifierFromURL(urls[1])
	require.NoError(t, err)
	assert.Equal(t, "100_p1.png", id)

	img, err := p.FetchImage(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, img)
}

func TestFetchManyReconstructsHiddenOriginals(t *testing.T) {
	var probes int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ajax/illust/200" {
			providertest.JSON(t, w, map[string]interface{}{"body": map[string]interface{}{
				"illustId":   "200",
				"pageCount":  2,
				"urls":       map[string]interface{}{"original": nil},
				"uploadDate": "2022-01-01T18:04:00+00:00",
			}})
			return
		}
		atomic.AddInt32(&probes, 1)
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, BaseURL, r.Header.Get("Referer"))
		// uploaded at 18:04 UTC, which is 03:04 the next day in JST
		if r.URL.Path == "/img-original/img/2022/01/02/03/04/37/200_p0.jpg" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := newProvider(server.URL, server.URL, providertest.Deps(t), []int{200})
	urls, err := p.FetchMany(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, urls, 2)
	assert.True(t, strings.HasSuffix(urls[0], "/img-original/img/2022/01/02/03/04/37/200_p0.jpg"))
	assert.True(t, strings.HasSuffix(urls[1], "/img-original/img/2022/01/02/03/04/37/200_p1.jpg"))
	// two exact checks, 60 png probes, 60 jpg probes
	assert.Equal(t, int32(122), atomic.LoadInt32(&probes))
}

// dropConnection closes the connection without answering
func dropConnection(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	require.True(t, ok)
	conn, _, err := hj.Hijack()
	require.NoError(t, err)
	conn.Close()
}

func hiddenOriginalServer(t *testing.T, image func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ajax/illust/300" {
			providertest.JSON(t, w, map[string]interface{}{"body": map[string]interface{}{
				"illustId":   "300",
				"pageCount":  1,
				"urls":       map[string]interface{}{"original": nil},
				"uploadDate": "2022-01-01T18:04:00+00:00",
			}})
			return
		}
		image(w, r)
	}))
}

func TestFetchManyIgnoresFailedProbesWhenMatched(t *testing.T) {
	server := hiddenOriginalServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img-original/img/2022/01/02/03/04/12/300_p0.png":
			dropConnection(t, w)
		case "/img-original/img/2022/01/02/03/04/41/300_p0.png":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer server.Close()

	p := newProvider(server.URL, server.URL, providertest.Deps(t), []int{300})
	urls, err := p.FetchMany(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.True(t, strings.HasSuffix(urls[0], "/img-original/img/2022/01/02/03/04/41/300_p0.png"))
}

func TestLocateReportsProbeErrorWhenNothingMatched(t *testing.T) {
	server := hiddenOriginalServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/12/300_p0.jpg") {
			dropConnection(t, w)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	p := newProvider(server.URL, server.URL, providertest.Deps(t), []int{300})
	uploaded := time.Date(2022, time.January, 2, 3, 4, 0, 0, jst)
	_, _, err := p.locate(context.Background(), uploaded, "300")
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
}

func TestImageURL(t *testing.T) {
	p := newProvider(BaseURL, ImageBase, providertest.Deps(t), nil)
	at := time.Date(2021, time.March, 4, 5, 6, 7, 0, jst)
	assert.Equal(t, "https://i.pximg.net/img-original/img/2021/03/04/05/06/09/42_p1.jpg", p.imageURL(at, 9, "42", 1, "jpg"))
}
