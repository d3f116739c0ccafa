// Package downloader streams a single image URL to disk under the name the
// provider derives for it.
package downloader

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	errs "nekodl/pkg/errors"
	"nekodl/pkg/gateway"
	"nekodl/pkg/logger"
	"nekodl/pkg/provider"
)

// AllowedExtensions are the file types that may be written
var AllowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webm": true,
	"mp4":  true,
}

// Store is where downloaded files end up
type Store interface {
	Path(name string) string
	Save(r io.Reader, name string, chunkSize int) (string, error)
}

// Target is one planned download. Path is empty until resolved.
type Target struct {
	Identifier string
	URL        string
	Header     http.Header
	Path       string
}

// Downloader fetches images for one provider
type Downloader struct {
	gw        *gateway.Client
	provider  provider.Provider
	store     Store
	chunkSize int
	header    http.Header
	logger    logger.Logger
}

// New creates a downloader. Extra request headers are taken from the
// provider when it implements provider.HeaderProvider.
func New(gw *gateway.Client, p provider.Provider, store Store, chunkSize int, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	var header http.Header
	if hp, ok := p.(provider.HeaderProvider); ok {
		header = hp.DownloadHeader()
	}
	return &Downloader{
		gw:        gw,
		provider:  p,
		store:     store,
		chunkSize: chunkSize,
		header:    header,
		logger:    log.WithFields(map[string]interface{}{"component": "downloader", "provider": p.Name()}),
	}
}

// Target derives the identifier of url without touching the network
func (d *Downloader) Target(url string) (Target, error) {
	identifier, err := d.provider.IdentifierFromURL(url)
	if err != nil {
		return Target{}, err
	}
	return Target{Identifier: identifier, URL: url, Header: d.header}, nil
}

// Download fetches url and writes it to its final path. It reports false
// without an error when the server answers with a status other than 200.
func (d *Downloader) Download(ctx context.Context, url string) (bool, error) {
	target, err := d.Target(url)
	if err != nil {
		return false, err
	}

	resp, err := d.gw.Get(ctx, url, target.Header)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.DebugWithFields("failed to download", map[string]interface{}{
			"identifier": target.Identifier,
			"status":     resp.StatusCode,
		})
		return false, nil
	}

	path, err := d.ResolvePath(target.Identifier, resp.Header.Get("Content-Type"))
	if err != nil {
		return false, err
	}

	saved, err := d.store.Save(resp.Body, filepath.Base(path), d.chunkSize)
	logger.LogDownload(d.provider.Name(), url, saved, err == nil, err)
	if err != nil {
		return false, err
	}
	return true, nil
}

// FetchDownloadPath predicts where url will be written
func (d *Downloader) FetchDownloadPath(ctx context.Context, url string) (string, error) {
	target, err := d.Resolve(ctx, url)
	if err != nil {
		return "", err
	}
	return target.Path, nil
}

// Resolve builds the full target of url, including its destination path.
// The server is only asked for the content type when the identifier
// carries no extension.
func (d *Downloader) Resolve(ctx context.Context, url string) (Target, error) {
	target, err := d.Target(url)
	if err != nil {
		return target, err
	}

	contentType := ""
	if filepath.Ext(target.Identifier) == "" {
		resp, err := d.gw.Head(ctx, url, target.Header)
		if err != nil {
			return target, err
		}
		contentType = resp.Header.Get("Content-Type")
	}

	target.Path, err = d.ResolvePath(target.Identifier, contentType)
	return target, err
}

// ResolvePath maps an identifier and a Content-Type to the destination
// path. An extension on the identifier wins over the content type.
func (d *Downloader) ResolvePath(identifier, contentType string) (string, error) {
	name := identifier
	ext := strings.TrimPrefix(filepath.Ext(identifier), ".")
	if ext == "" {
		ext = extensionFromContentType(contentType)
		if ext == "" {
			return "", errs.New(errs.ErrorTypeUnsupported, "cannot determine file type of %q", identifier)
		}
		name = identifier + "." + ext
	}

	if !AllowedExtensions[strings.ToLower(ext)] {
		return "", errs.New(errs.ErrorTypeUnsupported, "unsupported file type %q for %q", ext, identifier)
	}
	return d.store.Path(name), nil
}

// extensionFromContentType returns the subtype of a media type
func extensionFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	_, subtype, ok := strings.Cut(mediaType, "/")
	if !ok {
		return ""
	}
	return strings.ToLower(subtype)
}
