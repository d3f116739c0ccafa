package provider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/flytam/filenamify"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/gateway"
	"nekodl/pkg/logger"
	"nekodl/pkg/ratelimit"
)

// Base carries what every adapter needs and supplies default behaviour.
// Adapters embed it and override what they must.
type Base struct {
	name    string
	baseURL string
	gw      *gateway.Client
	log     logger.Logger
	limiter ratelimit.Limiter
}

// NewBase builds the shared part of an adapter
func NewBase(name, baseURL string, deps Deps) Base {
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return Base{
		name:    name,
		baseURL: baseURL,
		gw:      deps.Gateway,
		log:     log.WithField("provider", name),
		limiter: limiter,
	}
}

func (b *Base) Name() string { return b.name }

// URL joins a route onto the provider's base URL
func (b *Base) URL(route string) string {
	return gateway.Join(b.baseURL, route)
}

func (b *Base) Gateway() *gateway.Client { return b.gw }

func (b *Base) Logger() logger.Logger { return b.log }

// FetchCategories reports that the provider has no categories
func (b *Base) FetchCategories(ctx context.Context) (Categories, error) {
	return Categories{}, nil
}

// IdentifierFromURL uses the last path segment of the URL
func (b *Base) IdentifierFromURL(rawURL string) (string, error) {
	return LastSegment(rawURL)
}

func (b *Base) Finalize() error { return nil }

// FetchRepeated emulates a bulk endpoint with ManyCount paced single
// fetches. Empty results are dropped.
func (b *Base) FetchRepeated(ctx context.Context, category string, fetch func(context.Context, string) (string, error)) ([]string, error) {
	urls := make([]string, 0, ManyCount)
	for i := 0; i < ManyCount; i++ {
		if err := b.limiter.Wait(ctx); err != nil {
			return urls, err
		}
		u, err := fetch(ctx, category)
		if err != nil {
			return urls, err
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// LastSegment returns the sanitised last path segment of a URL
func LastSegment(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeParsing, err, "invalid url %q", rawURL)
	}
	segment := path.Base(u.Path)
	if segment == "/" || segment == "." || segment == "" {
		return "", errs.New(errs.ErrorTypeParsing, "url %q has no path segment", rawURL)
	}
	return SafeIdentifier(segment)
}

// PathSegment returns the sanitised n-th (0-based) segment of the URL path,
// not counting the leading slash
func PathSegment(rawURL string, n int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeParsing, err, "invalid url %q", rawURL)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if n < 0 || n >= len(parts) || parts[n] == "" {
		return "", errs.New(errs.ErrorTypeParsing, "url %q has no path segment %d", rawURL, n)
	}
	return SafeIdentifier(parts[n])
}

// SafeIdentifier makes a name usable as a file name. Path separators never
// survive.
func SafeIdentifier(name string) (string, error) {
	safe, err := filenamify.Filenamify(name, filenamify.Options{Replacement: "_", MaxLength: 200})
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeParsing, err, "sanitising identifier %q", name)
	}
	safe = strings.NewReplacer("/", "_", "\\", "_").Replace(safe)
	if safe == "" {
		return "", errs.New(errs.ErrorTypeParsing, "empty identifier for %q", name)
	}
	return safe, nil
}

var (
	discordMediaRegex = regexp.MustCompile(`^https://media\.discordapp\.net/attachments/(\d+)/(\d+)/([^?]*)`)
	discordCDNRegex   = regexp.MustCompile(`^https://cdn\.discordapp\.com/attachments/(\d+)/(\d+)/([^?]*)`)
)

// DiscordMediaHash returns the md5 of channel/message/filename for a
// media.discordapp.net attachment URL
func DiscordMediaHash(rawURL string) (string, bool) {
	return discordHash(discordMediaRegex, rawURL)
}

// DiscordCDNHash returns the md5 of channel/message/filename for a
// cdn.discordapp.com attachment URL
func DiscordCDNHash(rawURL string) (string, bool) {
	return discordHash(discordCDNRegex, rawURL)
}

func discordHash(re *regexp.Regexp, rawURL string) (string, bool) {
	m := re.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	sum := md5.Sum([]byte(m[1] + "/" + m[2] + "/" + m[3]))
	return hex.EncodeToString(sum[:]), true
}
