package nekobot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nekodl/pkg/provider"
	"nekodl/pkg/provider/providertest"
)

func TestFetchImageAndCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if typ := r.URL.Query().Get("type"); typ != "" {
			providertest.JSON(t, w, map[string]interface{}{"success": true, "message": "https://i0.nekobot.xyz/a/" + typ + ".jpg"})
			return
		}
		providertest.JSON(t, w, map[string]interface{}{"stats": map[string]int{"neko": 100, "kemonomimi": 42}})
	}))
	defer server.Close()

	p := newProvider(server.URL, providertest.Deps(t))

	url, err := p.FetchImage(context.Background(), "neko")
	require.NoError(t, err)
	assert.Equal(t, "https://i0.nekobot.xyz/a/neko.jpg", url)

	cats, err := p.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.Categories{"neko": 100, "kemonomimi": 42}, cats)

	id, err := p.IdentifierFromURL(url)
	require.NoError(t, err)
	assert.Equal(t, "neko.jpg", id)
}

func TestFetchManyRepeatsSingleFetch(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		providertest.JSON(t, w, map[string]string{"message": "https://i0.nekobot.xyz/a/x.jpg"})
	}))
	defer server.Close()

	p := newProvider(server.URL, providertest.Deps(t))
	urls, err := p.FetchMany(context.Background(), "neko")
	require.NoError(t, err)
	assert.Len(t, urls, provider.ManyCount)
	assert.Equal(t, provider.ManyCount, calls)
}

func TestFetchImageNon200IsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := newProvider(server.URL, providertest.Deps(t))
	url, err := p.FetchImage(context.Background(), "neko")
	require.NoError(t, err)
	assert.Empty(t, url)
}
