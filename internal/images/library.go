// Package images downloads remote product images and re-encodes them into a
// single web-optimized format under content-unique filenames.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	// Source-format decoders. The origin serves JPEG, PNG, GIF, and WebP.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/chai2010/webp"
	"github.com/google/uuid"

	"github.com/webshelf/webshelf/internal/config"
	"github.com/webshelf/webshelf/internal/types"
)

// subdir is the fixed drawer under the images root; recorded image paths are
// relative ("products/<id>.webp") so the root can move without rewrites.
const subdir = "products"

// Library writes converted images under a root directory.
type Library struct {
	root     string
	client   *http.Client
	maxBytes int64
	quality  float32
	logger   *slog.Logger
}

// NewLibrary creates an image library rooted at cfg.Dir.
func NewLibrary(cfg config.ImagesConfig, logger *slog.Logger) *Library {
	return &Library{
		root:     cfg.Dir,
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: cfg.MaxSizeMB * 1024 * 1024,
		quality:  float32(cfg.WebpQuality),
		logger:   logger.With("component", "image_library"),
	}
}

// Download fetches a remote image, enforces the byte-size policy, flattens
// it onto an opaque background, re-encodes it as lossy webp, and stores it
// under a random filename. It returns the relative path to record against
// the catalog entry. The size check happens before anything touches disk.
func (l *Library) Download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, encodePath(rawURL), nil)
	if err != nil {
		return "", &types.FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
			Retryable:  resp.StatusCode >= 500,
		}
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return "", &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	if int64(len(content)) > l.maxBytes {
		return "", fmt.Errorf("%w: %s over %d bytes", types.ErrImageTooLarge, rawURL, l.maxBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("decode image %s: %w", rawURL, err)
	}

	dir := filepath.Join(l.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create images dir: %w", err)
	}

	filename := uuid.NewString() + ".webp"
	fullPath := filepath.Join(dir, filename)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	err = webp.Encode(f, flatten(img), &webp.Options{Quality: l.quality})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("encode webp: %w", err)
	}

	rel := path.Join(subdir, filename)
	l.logger.Debug("image stored",
		"url", rawURL,
		"path", rel,
		"source_format", format,
		"bytes_in", len(content),
	)
	return rel, nil
}

// Remove deletes a previously stored image by its recorded relative path.
func (l *Library) Remove(relPath string) error {
	return os.Remove(filepath.Join(l.root, filepath.FromSlash(relPath)))
}

// flatten composites the image onto an opaque white background, which both
// discards any alpha channel and normalizes palette-indexed sources into a
// plain RGB-equivalent raster.
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}

// encodePath percent-encodes the URL's path segments so origins with
// non-ASCII filenames fetch cleanly. Unparseable input is passed through.
func encodePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.String()
}
