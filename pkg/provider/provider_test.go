package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/logger"
)

type stubProvider struct {
	Base
	extras config.Extras
}

func (s *stubProvider) FetchImage(ctx context.Context, category string) (string, error) {
	return "https://i.example.com/" + category + ".png", nil
}

func (s *stubProvider) FetchMany(ctx context.Context, category string) ([]string, error) {
	return s.FetchRepeated(ctx, category, s.FetchImage)
}

func newStub(deps Deps, extras config.Extras) (Provider, error) {
	return &stubProvider{Base: NewBase("stub", "https://api.example.com", deps), extras: extras}, nil
}

func testDeps() Deps {
	return Deps{Logger: logger.NewNopLogger()}
}

func TestBaseDefaults(t *testing.T) {
	p, err := newStub(testDeps(), nil)
	require.NoError(t, err)

	assert.Equal(t, "stub", p.Name())

	cats, err := p.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)

	id, err := p.IdentifierFromURL("https://i.example.com/path/to/cat.png?size=large")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", id)

	assert.NoError(t, p.Finalize())
	assert.Equal(t, "https://api.example.com/image", p.(*stubProvider).URL("/image"))
}

func TestFetchRepeated(t *testing.T) {
	p, _ := newStub(testDeps(), nil)
	urls, err := p.FetchMany(context.Background(), "neko")
	require.NoError(t, err)
	assert.Len(t, urls, ManyCount)
	assert.Equal(t, "https://i.example.com/neko.png", urls[0])
}

func TestFetchRepeatedSkipsEmptyAndStopsOnError(t *testing.T) {
	b := NewBase("stub", "https://api.example.com", testDeps())

	calls := 0
	urls, err := b.FetchRepeated(context.Background(), "", func(context.Context, string) (string, error) {
		calls++
		if calls%2 == 0 {
			return "", nil
		}
		return "https://i.example.com/x.png", nil
	})
	require.NoError(t, err)
	assert.Len(t, urls, ManyCount/2)

	boom := errors.New("boom")
	calls = 0
	urls, err = b.FetchRepeated(context.Background(), "", func(context.Context, string) (string, error) {
		calls++
		if calls == 3 {
			return "", boom
		}
		return "https://i.example.com/x.png", nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, urls, 2)
}

func TestFetchRepeatedHonoursCancellation(t *testing.T) {
	b := NewBase("stub", "https://api.example.com", testDeps())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.FetchRepeated(ctx, "", func(context.Context, string) (string, error) {
		return "https://i.example.com/x.png", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeIdentifier(t *testing.T) {
	id, err := SafeIdentifier("a/b\\c:d.png")
	require.NoError(t, err)
	assert.NotContains(t, id, "/")
	assert.NotContains(t, id, "\\")

	_, err = LastSegment("https://example.com/")
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))

	seg, err := PathSegment("https://example.com/api/v2/image.png", 1)
	require.NoError(t, err)
	assert.Equal(t, "v2", seg)
	_, err = PathSegment("https://example.com/api", 3)
	assert.Error(t, err)
}

func TestDiscordHashes(t *testing.T) {
	h1, ok := DiscordMediaHash("https://media.discordapp.net/attachments/1/2/cat.png")
	require.True(t, ok)
	assert.Len(t, h1, 32)

	h2, ok := DiscordMediaHash("https://media.discordapp.net/attachments/1/2/cat.png?width=100")
	require.True(t, ok)
	assert.Equal(t, h1, h2)

	h3, ok := DiscordCDNHash("https://cdn.discordapp.com/attachments/1/2/cat.png")
	require.True(t, ok)
	assert.Equal(t, h1, h3)

	_, ok = DiscordCDNHash("https://example.com/attachments/1/2/cat.png")
	assert.False(t, ok)
}

func TestCacheLIFO(t *testing.T) {
	var c Cache[string]
	refills := 0
	refill := func(context.Context) ([]string, error) {
		refills++
		return []string{"a", "b", "c"}, nil
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		item, ok, err := c.Pop(context.Background(), refill)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, seen[item], "item %s returned twice", item)
		seen[item] = true
	}
	assert.Equal(t, 1, refills)
	assert.Equal(t, 0, c.Len())

	item, _, _ := c.Pop(context.Background(), refill)
	assert.Equal(t, "c", item)
	assert.Equal(t, 2, refills)
	assert.Equal(t, []string{"a", "b"}, c.Snapshot())
}

func TestCacheEmptyRefill(t *testing.T) {
	var c Cache[int]
	_, ok, err := c.Pop(context.Background(), func(context.Context) ([]int, error) { return nil, nil })
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("boom")
	_, ok, err = c.Pop(context.Background(), func(context.Context) ([]int, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(Entry{Name: "stub", New: newStub})
	r.Register(Entry{Name: "gated", New: newStub, RequiresExtras: true})

	assert.Equal(t, []string{"gated", "stub"}, r.Names())
	assert.True(t, r.RequiresExtras("gated"))
	assert.False(t, r.RequiresExtras("stub"))
	assert.False(t, r.RequiresExtras("missing"))

	p, err := r.New("stub", testDeps(), nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", p.Name())

	_, err = r.New("missing", testDeps(), nil)
	assert.True(t, errs.IsType(err, errs.ErrorTypeUnsupported))

	_, err = r.New("gated", testDeps(), config.Extras{"nsfw": true})
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))

	_, err = r.New("gated", testDeps(), config.Extras{"subreddit": "cats"})
	assert.NoError(t, err)
}
