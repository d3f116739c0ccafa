package danbooru

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nekodl/pkg/auth"
	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider/providertest"
)

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(config.Extras{
		"username": "neko",
		"api_key":  "key",
		"tags":     []any{"cat_ears"},
		"rating":   "safe",
		"limit":    float64(500),
		"sort":     map[string]any{"by": "popular", "scale": "week", "date": "2022-01-01"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat_ears", "rating:s"}, opts.Tags)
	assert.Equal(t, 200, opts.Limit)
	assert.Equal(t, "explore/posts/popular.json", opts.Route())
	assert.Equal(t, "week", opts.Scale)

	plain, err := ParseOptions(config.Extras{"username": "neko", "api_key": "key"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "posts.json", plain.Route())
	assert.Equal(t, 30, plain.Limit)

	bad := []config.Extras{
		{"api_key": "key"},
		{"username": "neko"},
		{"username": "neko", "api_key": "key", "rating": "nsfw"},
		{"username": "neko", "api_key": "key", "sort": map[string]any{"by": "newest"}},
		{"username": "neko", "api_key": "key", "sort": map[string]any{"by": "popular", "scale": "year"}},
		{"username": "neko", "api_key": "key", "sort": "popular"},
	}
	for _, extras := range bad {
		_, err := ParseOptions(extras, nil)
		assert.True(t, errs.IsType(err, errs.ErrorTypeConfig), "extras %v: got %v", extras, err)
	}
}

func TestParseOptionsUsesStoredCredentials(t *testing.T) {
	store := auth.NewMockStore()
	manager := auth.NewManagerWithStores(store)
	require.NoError(t, manager.Store(&auth.Account{Provider: Name, Username: "stored", APIKey: "secret"}))

	opts, err := ParseOptions(config.Extras{"tags": "cat"}, manager)
	require.NoError(t, err)
	assert.Equal(t, "stored", opts.Username)
	assert.Equal(t, "secret", opts.APIKey)
}

func TestFetch(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, key, ok := r.BasicAuth()
		if !ok || user != "neko" || key != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/posts.json", r.URL.Path)
		assert.Equal(t, "cat_ears rating:s", r.URL.Query().Get("tags"))
		pages = append(pages, r.URL.Query().Get("page"))
		providertest.JSON(t, w, []map[string]interface{}{
			{"md5": "m1", "file_url": "https://cdn.donmai.us/original/m1.jpg", "file_ext": "jpg", "tag_string_general": "cat_ears smile"},
			{"md5": "m2", "file_url": ""},
			{"md5": "m3", "file_url": "https://cdn.donmai.us/original/m3.png", "file_ext": "png"},
		})
	}))
	defer server.Close()

	opts := Options{Username: "neko", APIKey: "key", Tags: []string{"cat_ears", "rating:s"}, Limit: 30}
	p := newProvider(server.URL, providertest.Deps(t), opts)

	urls, err := p.FetchMany(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.donmai.us/original/m1.jpg", "https://cdn.donmai.us/original/m3.png"}, urls)

	got, err := p.FetchImage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.donmai.us/original/m3.png", got)

	cached := p.CachedImages()
	require.Len(t, cached, 1)
	assert.Equal(t, []string{"cat_ears", "smile"}, cached[0].Tags)
	assert.Equal(t, []string{"1", "2"}, pages)
}

func TestFetchRandomPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts/random.json", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("page"))
		providertest.JSON(t, w, map[string]interface{}{
			"md5": "r1", "file_url": "https://cdn.donmai.us/original/r1.webp", "file_ext": "webp",
		})
	}))
	defer server.Close()

	opts := Options{Username: "neko", APIKey: "key", Limit: 30, SortBy: "random"}
	p := newProvider(server.URL, providertest.Deps(t), opts)

	got, err := p.FetchImage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.donmai.us/original/r1.webp", got)

	urls, err := p.FetchMany(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.donmai.us/original/r1.webp"}, urls)
}

func TestDecodePosts(t *testing.T) {
	posts, err := decodePosts(json.RawMessage(` [{"md5": "a"}, {"md5": "b"}]`))
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	posts, err = decodePosts(json.RawMessage(`{"md5": "c"}`))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "c", posts[0].MD5)

	posts, err = decodePosts(nil)
	require.NoError(t, err)
	assert.Empty(t, posts)

	_, err = decodePosts(json.RawMessage(`"nope"`))
	assert.Error(t, err)
}

func TestFetchRaisesOnAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := newProvider(server.URL, providertest.Deps(t), Options{Username: "neko", APIKey: "wrong", Limit: 30})
	_, err := p.FetchMany(context.Background(), "")
	assert.True(t, errs.IsType(err, errs.ErrorTypeAuth))
}
