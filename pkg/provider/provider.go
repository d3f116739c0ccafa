package provider

import (
	"context"
	"net/http"

	"nekodl/pkg/config"
	"nekodl/pkg/gateway"
	"nekodl/pkg/logger"
	"nekodl/pkg/ratelimit"
)

// Unbounded marks a category whose size is unknown
const Unbounded = -1

// ManyCount is how many single fetches the default FetchMany performs
const ManyCount = 30

// Categories maps a category name to its image count, or Unbounded
type Categories map[string]int

// Provider is the capability set every upstream adapter implements
type Provider interface {
	// Name returns the registry name of the provider
	Name() string
	// FetchImage returns one image URL. An empty string means no image was available.
	FetchImage(ctx context.Context, category string) (string, error)
	// FetchMany returns a page of image URLs
	FetchMany(ctx context.Context, category string) ([]string, error)
	// FetchCategories returns the known categories, or an empty map when the
	// upstream has no notion of categories
	FetchCategories(ctx context.Context) (Categories, error)
	// IdentifierFromURL derives a stable, filesystem-safe name for an image URL
	IdentifierFromURL(rawURL string) (string, error)
	// Finalize releases resources owned by the provider
	Finalize() error
}

// HeaderProvider is implemented by providers whose media hosts require
// extra request headers, such as a Referer
type HeaderProvider interface {
	DownloadHeader() http.Header
}

// Targeted is implemented by providers that download an explicit list of
// items rather than sampling a category. Their amount is the number of
// targets and they are fetched with a single FetchMany call.
type Targeted interface {
	Targets() int
}

// Credentials resolves stored API credentials for a provider
type Credentials interface {
	Lookup(provider string) (username, apiKey string, err error)
}

// Deps carries the shared collaborators handed to every constructor
type Deps struct {
	Gateway     *gateway.Client
	Logger      logger.Logger
	Limiter     ratelimit.Limiter
	Credentials Credentials
}

// Constructor builds a provider from its extras
type Constructor func(deps Deps, extras config.Extras) (Provider, error)
