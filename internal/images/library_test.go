package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/webshelf/webshelf/internal/config"
	"github.com/webshelf/webshelf/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 128})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func newTestLibrary(t *testing.T, maxMB int64) (*Library, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.ImagesConfig{Dir: dir, MaxSizeMB: maxMB, WebpQuality: 80}
	return NewLibrary(cfg, testLogger), dir
}

func TestDownloadConverts(t *testing.T) {
	payload := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	lib, dir := newTestLibrary(t, 5)
	rel, err := lib.Download(context.Background(), srv.URL+"/large_1.png")
	if err != nil {
		t.Fatalf("download: %v", err)
	}

	if !strings.HasPrefix(rel, "products/") || !strings.HasSuffix(rel, ".webp") {
		t.Errorf("relative path = %q, want products/<id>.webp", rel)
	}
	if filepath.IsAbs(rel) {
		t.Errorf("path must be relative: %q", rel)
	}
	if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
		t.Errorf("converted file missing: %v", err)
	}
}

func TestDownloadOversizeRejectedBeforeWrite(t *testing.T) {
	big := bytes.Repeat([]byte{0xff}, 2*1024*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big)
	}))
	defer srv.Close()

	lib, dir := newTestLibrary(t, 1)
	_, err := lib.Download(context.Background(), srv.URL+"/huge.jpg")
	if !errors.Is(err, types.ErrImageTooLarge) {
		t.Fatalf("err = %v, want ErrImageTooLarge", err)
	}

	// Nothing may be written for a rejected payload.
	entries, _ := os.ReadDir(filepath.Join(dir, "products"))
	if len(entries) != 0 {
		t.Errorf("oversize download left %d files behind", len(entries))
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	lib, _ := newTestLibrary(t, 5)
	_, err := lib.Download(context.Background(), srv.URL+"/gone.jpg")
	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FetchError", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", fe.StatusCode)
	}
	if fe.IsRetryable() {
		t.Error("404 must not be retryable")
	}
}

func TestDownloadGarbagePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not an image"))
	}))
	defer srv.Close()

	lib, _ := newTestLibrary(t, 5)
	if _, err := lib.Download(context.Background(), srv.URL+"/fake.jpg"); err == nil {
		t.Error("expected decode error")
	}
}

func TestDownloadEncodesURLPath(t *testing.T) {
	payload := testPNG(t)
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write(payload)
	}))
	defer srv.Close()

	lib, _ := newTestLibrary(t, 5)
	if _, err := lib.Download(context.Background(), srv.URL+"/изображение.png"); err != nil {
		t.Fatalf("download: %v", err)
	}
	if strings.ContainsAny(gotPath, "абвгдежзи") {
		t.Errorf("request path was not percent-encoded: %q", gotPath)
	}
}

func TestRemove(t *testing.T) {
	lib, dir := newTestLibrary(t, 5)
	if err := os.MkdirAll(filepath.Join(dir, "products"), 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "products", "x.webp")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := lib.Remove("products/x.webp"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("file still present after Remove")
	}
	if err := lib.Remove("products/x.webp"); err == nil {
		t.Error("removing a missing file should error")
	}
}
