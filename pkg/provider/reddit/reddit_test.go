package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider/providertest"
)

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(config.Extras{"subreddit": "r/cats"})
	require.NoError(t, err)
	assert.Equal(t, Options{Subreddit: "cats", Sort: "hot", Limit: 30}, opts)

	tests := []struct {
		name   string
		extras config.Extras
	}{
		{"missing subreddit", config.Extras{}},
		{"subreddit not a string", config.Extras{"subreddit": 5}},
		{"bad sort", config.Extras{"subreddit": "cats", "sort": "best"}},
		{"bad time", config.Extras{"subreddit": "cats", "time": "decade"}},
		{"limit too big", config.Extras{"subreddit": "cats", "limit": 500}},
		{"limit not int", config.Extras{"subreddit": "cats", "limit": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOptions(tt.extras)
			assert.True(t, errs.IsType(err, errs.ErrorTypeConfig), "got %v", err)
		})
	}
}

func newServer(t *testing.T, afters *[]string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/r/cats/top.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "week", r.URL.Query().Get("t"))
		*afters = append(*afters, r.URL.Query().Get("after"))
		providertest.JSON(t, w, map[string]interface{}{
			"data": map[string]interface{}{
				"after": "t3_next",
				"children": []map[string]interface{}{
					{"data": map[string]interface{}{"id": "a", "name": "t3_a", "url": "https://i.redd.it/a.jpg", "link_flair_text": "Cute", "permalink": "/r/cats/comments/a/"}},
					{"data": map[string]interface{}{"id": "b", "name": "t3_b", "is_self": true, "selftext": "look https://i.example.com/b.png and https://example.com/page"}},
					{"data": map[string]interface{}{"id": "c", "name": "t3_c", "is_gallery": true, "url": "https://www.reddit.com/gallery/c"}},
					{"data": map[string]interface{}{"id": "d", "name": "t3_d", "url": "https://imgur.com/a/AbCdEfG"}},
				},
			},
		})
	})
	mux.HandleFunc("/comments/c.json", func(w http.ResponseWriter, r *http.Request) {
		providertest.JSON(t, w, []interface{}{
			map[string]interface{}{"data": map[string]interface{}{"children": []map[string]interface{}{
				{"data": map[string]interface{}{"id": "c", "media_metadata": map[string]interface{}{
					"g1": map[string]string{"status": "valid", "m": "image/png"},
					"g2": map[string]string{"status": "failed", "m": "image/jpg"},
				}}},
			}}},
		})
	})
	mux.HandleFunc("/imgur/album/AbCdEfG", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), "Client-ID")
		providertest.JSON(t, w, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": "AbCdEfG", "images": []map[string]string{{"link": "https://i.imgur.com/x.jpg"}}},
		})
	})
	return httptest.NewServer(mux)
}

func TestFetchManyExpandsPosts(t *testing.T) {
	var afters []string
	server := newServer(t, &afters)
	defer server.Close()

	opts := Options{Subreddit: "cats", Sort: "top", Time: "week", Limit: 30}
	p := newProvider(server.URL, server.URL+"/imgur/", providertest.Deps(t), opts)

	urls, err := p.FetchMany(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://i.redd.it/a.jpg",
		"https://i.example.com/b.png",
		"https://i.redd.it/g1.png",
		"https://i.imgur.com/x.jpg",
	}, urls)

	_, err = p.FetchMany(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "t3_next"}, afters)
}

func TestFetchImageUsesCache(t *testing.T) {
	var afters []string
	server := newServer(t, &afters)
	defer server.Close()

	opts := Options{Subreddit: "cats", Sort: "top", Time: "week", Limit: 30}
	p := newProvider(server.URL, server.URL+"/imgur/", providertest.Deps(t), opts)

	first, err := p.FetchImage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://i.imgur.com/x.jpg", first)

	cached := p.CachedPosts()
	require.Len(t, cached, 3)
	assert.Equal(t, []string{"Cute"}, cached[0].Tags)
	assert.Equal(t, "/r/cats/comments/a/", cached[0].Source)
	assert.Equal(t, "c", cached[2].Gallery)

	for i := 0; i < 3; i++ {
		_, err := p.FetchImage(context.Background(), "")
		require.NoError(t, err)
	}
	assert.Len(t, afters, 1)
	assert.Equal(t, UserAgent, p.DownloadHeader().Get("User-Agent"))
}

func TestSelfLinksAndAlbumHash(t *testing.T) {
	assert.Equal(t, []string{"https://a.example.com/x.gif?w=1"},
		selfLinks("see https://a.example.com/x.gif?w=1 and https://a.example.com/page.html"))
	assert.Equal(t, "AbCdEfG", albumHash("https://imgur.com/gallery/cute-cats-AbCdEfG"))
}
