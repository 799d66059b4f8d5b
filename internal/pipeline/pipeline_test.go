package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/webshelf/webshelf/internal/catalog"
	"github.com/webshelf/webshelf/internal/config"
	"github.com/webshelf/webshelf/internal/fetcher"
	"github.com/webshelf/webshelf/internal/storage"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeImages struct {
	mu        sync.Mutex
	downloads int
}

func (f *fakeImages) Download(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	return fmt.Sprintf("products/img-%d.webp", f.downloads), nil
}

func (f *fakeImages) Remove(relPath string) error { return nil }

const page1 = `<html><body>
<a href="/product/zont-sinij" class="inner">Зонт синий</a>
<a href="?page=2">2</a>
</body></html>`

const page2 = `<html><body>
<a href="/product/chemodan-krasnyj" class="inner">Чемодан красный</a>
</body></html>`

const productPage = `<html><body>
<a href="/">Главная</a>
<a href="/collection/tovary">Товары</a>
<h1>%s</h1>
<div>%d руб</div>
</body></html>`

const emptyProductPage = `<html><body><div>товар снят с продажи</div></body></html>`

// testOrigin is a storefront stub: one collection with two listing pages and
// two product pages, plus one page with no usable product data.
func testOrigin(t *testing.T) (*httptest.Server, *map[string]int) {
	t.Helper()
	requests := make(map[string]int)
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests[r.URL.RequestURI()]++
		mu.Unlock()

		switch {
		case r.URL.Path == "/collection/tovary" && r.URL.Query().Get("page") == "2":
			fmt.Fprint(w, page2)
		case r.URL.Path == "/collection/tovary":
			fmt.Fprint(w, page1)
		case r.URL.Path == "/product/zont-sinij":
			fmt.Fprintf(w, productPage, "Зонт синий", 1500)
		case r.URL.Path == "/product/chemodan-krasnyj":
			fmt.Fprintf(w, productPage, "Чемодан красный", 4200)
		case r.URL.Path == "/product/snyat":
			fmt.Fprint(w, emptyProductPage)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func testPipeline(t *testing.T, srv *httptest.Server, store catalog.Store, opts Options) *Pipeline {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Fetcher.MaxRetries = 0
	f := fetcher.NewHTTPFetcher(cfg, testLogger)
	t.Cleanup(func() { f.Close() })
	if opts.CollectionURL == "" {
		opts.CollectionURL = srv.URL + "/collection/tovary"
	}
	return New(cfg, f, store, &fakeImages{}, nil, opts, testLogger)
}

func TestRunImportsCollection(t *testing.T) {
	srv, _ := testOrigin(t)
	store := catalog.NewMemoryStore()

	pipe := testPipeline(t, srv, store, Options{})
	stats, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if stats.Discovered != 2 || stats.Created != 2 {
		t.Errorf("stats = %+v, want 2 discovered and created", stats)
	}
	products, categories, _, _ := store.Counts()
	if products != 2 {
		t.Errorf("products = %d, want 2", products)
	}
	if categories != 1 {
		t.Errorf("categories = %d, want 1", categories)
	}
	if p := store.ProductBySlug("zont-sinij"); p == nil || p.Price != 1500 {
		t.Errorf("product not reconciled: %+v", p)
	}

	// A second run over the same origin updates instead of duplicating.
	stats, err = pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats.Updated != 2 || stats.Created != 0 {
		t.Errorf("second run stats = %+v, want 2 updated", stats)
	}
	products, _, _, _ = store.Counts()
	if products != 2 {
		t.Errorf("second run duplicated rows: %d", products)
	}
}

func TestRunDryRunLeavesCatalogUntouched(t *testing.T) {
	srv, _ := testOrigin(t)
	store := catalog.NewMemoryStore()

	pipe := testPipeline(t, srv, store, Options{DryRun: true})
	stats, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Outcomes are still labelled, but nothing is committed.
	if stats.Created != 2 {
		t.Errorf("stats = %+v, want 2 created labels", stats)
	}
	products, categories, characteristics, images := store.Counts()
	if products+categories+characteristics+images != 0 {
		t.Errorf("dry run wrote rows: %d/%d/%d/%d", products, categories, characteristics, images)
	}
}

func TestRunMaxPagesBoundsFetches(t *testing.T) {
	srv, requests := testOrigin(t)
	store := catalog.NewMemoryStore()

	pipe := testPipeline(t, srv, store, Options{MaxPages: 1})
	stats, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if stats.Discovered != 1 {
		t.Errorf("discovered = %d, want 1 (page 2 excluded)", stats.Discovered)
	}
	for uri, n := range *requests {
		if uri == "/collection/tovary?page=2" && n > 0 {
			t.Error("page 2 was fetched despite --max-pages=1")
		}
	}
}

func TestRunSkipsUnusableProduct(t *testing.T) {
	srv, _ := testOrigin(t)
	store := catalog.NewMemoryStore()
	pipe := testPipeline(t, srv, store, Options{})

	records := pipe.Scrape(context.Background(), []string{
		srv.URL + "/product/zont-sinij",
		srv.URL + "/product/snyat",
		srv.URL + "/product/propal", // 404
	})
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (unusable and failed pages skipped)", len(records))
	}
	if records[0].Slug != "zont-sinij" {
		t.Errorf("surviving record = %q", records[0].Slug)
	}
}

func TestScrapeProgressIndexStartsAtOne(t *testing.T) {
	srv, _ := testOrigin(t)
	store := catalog.NewMemoryStore()
	pipe := testPipeline(t, srv, store, Options{})

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	pipe.Scrape(context.Background(), []string{srv.URL + "/product/propal"})
	w.Close()
	os.Stdout = old

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(out), "[1] skipped (fetch failed):") {
		t.Errorf("progress line = %q, want a 1-based index", out)
	}
}

func TestRunExportThenImport(t *testing.T) {
	srv, _ := testOrigin(t)
	jsonPath := filepath.Join(t.TempDir(), "products.json")

	// Export-only: no catalog writes, records land in the file.
	exportStore := catalog.NewMemoryStore()
	pipe := testPipeline(t, srv, exportStore, Options{ExportJSON: true, JSONPath: jsonPath})
	if _, err := pipe.Run(context.Background()); err != nil {
		t.Fatalf("export run: %v", err)
	}
	products, _, _, _ := exportStore.Counts()
	if products != 0 {
		t.Errorf("export-only run wrote %d products", products)
	}
	records, err := storage.ImportJSONFile(jsonPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("exported %d records, want 2", len(records))
	}

	// Import replays reconciliation without touching the origin.
	importStore := catalog.NewMemoryStore()
	pipe = testPipeline(t, srv, importStore, Options{ImportJSON: jsonPath})
	stats, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if stats.Created != 2 {
		t.Errorf("import stats = %+v, want 2 created", stats)
	}
	p := importStore.ProductBySlug("chemodan-krasnyj")
	if p == nil || p.Price != 4200 {
		t.Errorf("imported product wrong: %+v", p)
	}
}

func TestRunResetDryRun(t *testing.T) {
	srv, _ := testOrigin(t)
	store := catalog.NewMemoryStore()

	// Seed one row, then dry-run with reset requested: the row survives.
	seed := testPipeline(t, srv, store, Options{})
	if _, err := seed.Run(context.Background()); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	pipe := testPipeline(t, srv, store, Options{DryRun: true, ResetCatalog: true})
	if _, err := pipe.Run(context.Background()); err != nil {
		t.Fatalf("dry-run reset: %v", err)
	}
	products, _, _, _ := store.Counts()
	if products != 2 {
		t.Errorf("dry-run reset wiped the catalog: %d products left", products)
	}
}

func TestWithPageParam(t *testing.T) {
	got, err := withPageParam("https://shop.example/collection/tovary", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://shop.example/collection/tovary?page=3" {
		t.Errorf("withPageParam = %q", got)
	}

	got, err = withPageParam("https://shop.example/collection/tovary?page=1&sort=new", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://shop.example/collection/tovary?page=2&sort=new" {
		t.Errorf("withPageParam replace = %q", got)
	}
}

func TestCollectionCategory(t *testing.T) {
	if got := CollectionCategory("https://shop.example/collection/zonty", "/collection/"); got != "zonty" {
		t.Errorf("CollectionCategory = %q", got)
	}
	if got := CollectionCategory("https://shop.example/other", "/collection/"); got != "" {
		t.Errorf("CollectionCategory non-collection = %q", got)
	}
}
