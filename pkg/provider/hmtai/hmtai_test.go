package hmtai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/provider"
	"nekodl/pkg/provider/providertest"
)

func newServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/endpoints":
			providertest.JSON(t, w, map[string][]string{"sfw": {"wave", "hug"}, "nsfw": {"ero"}})
		case "/v2/wave":
			providertest.JSON(t, w, map[string]string{"url": "https://cdn.discordapp.com/attachments/10/20/wave.gif"})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetch(t *testing.T) {
	server := newServer(t)
	defer server.Close()
	p := newProvider(server.URL+"/v2/", providertest.Deps(t))

	got, err := p.FetchImage(context.Background(), "wave")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.discordapp.com/attachments/10/20/wave.gif", got)

	missing, err := p.FetchImage(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, missing)

	cats, err := p.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.Categories{"wave": -1, "hug": -1, "ero": -1}, cats)
}

func TestIdentifierFromURL(t *testing.T) {
	p := newProvider(BaseURL, providertest.Deps(t))

	id, err := p.IdentifierFromURL("https://cdn.discordapp.com/attachments/10/20/wave.gif")
	require.NoError(t, err)
	assert.Len(t, id, 32)

	_, err = p.IdentifierFromURL("https://example.com/wave.gif")
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))
}
