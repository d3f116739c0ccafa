package akaneko

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

func TestFetchImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/neko", r.URL.Path)
		providertest.JSON(t, w, map[string]string{"url": "https://cdn.example.com/images/abc123/neko.png"})
	}))
	defer server.Close()

	p := newProvider(server.URL+"/api/", providertest.Deps(t))
	got, err := p.FetchImage(context.Background(), "neko")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/images/abc123/neko.png", got)
}

func TestFetchCategoriesIsFixed(t *testing.T) {
	p := newProvider(BaseURL, providertest.Deps(t))
	cats, err := p.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, len(categories))
	assert.Equal(t, provider.Unbounded, cats["zettaiRyouiki"])
}

func TestIdentifierFromURL(t *testing.T) {
	p := newProvider(BaseURL, providertest.Deps(t))

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"second segment", "https://cdn.example.com/images/abc123/neko.png", "abc123"},
		{"single segment", "https://cdn.example.com/neko.png", "neko.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.IdentifierFromURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	hash, err := p.IdentifierFromURL("https://media.discordapp.net/attachments/1/2/a.png")
	require.NoError(t, err)
	assert.Len(t, hash, 32)
}
