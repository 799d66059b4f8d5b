// Package pipeline sequences the ingestion run: optional catalog reset,
// collection crawl, and per-product fetch/parse/reconcile with each product
// inside its own transaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/webshelf/webshelf/internal/catalog"
	"github.com/webshelf/webshelf/internal/config"
	"github.com/webshelf/webshelf/internal/fetcher"
	"github.com/webshelf/webshelf/internal/reconcile"
	"github.com/webshelf/webshelf/internal/scrape"
	"github.com/webshelf/webshelf/internal/storage"
	"github.com/webshelf/webshelf/internal/types"
)

// Options are the per-run knobs, mostly CLI flags.
type Options struct {
	CollectionURL string
	MaxPages      int
	Delay         time.Duration

	SkipExisting  bool
	DryRun        bool
	RefreshImages bool
	ResetCatalog  bool

	ExportJSON bool
	JSONPath   string
	ImportJSON string
}

// Stats summarizes a finished run.
type Stats struct {
	Discovered int
	Created    int
	Updated    int
	Skipped    int
	Failed     int
}

// Pipeline owns the moving parts of one ingestion run.
type Pipeline struct {
	cfg     *config.Config
	fetcher fetcher.Fetcher
	store   catalog.Store
	images  reconcile.ImageStore
	archive storage.Archive // optional, may be nil
	opts    Options
	logger  *slog.Logger
}

func New(cfg *config.Config, f fetcher.Fetcher, store catalog.Store, images reconcile.ImageStore, archive storage.Archive, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: f,
		store:   store,
		images:  images,
		archive: archive,
		opts:    opts,
		logger:  logger.With("component", "pipeline"),
	}
}

// Run executes the full ingestion sequence and returns run statistics.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	if p.opts.ResetCatalog {
		if p.opts.DryRun {
			fmt.Println("[reset] dry-run: skip catalog reset")
		} else if err := p.store.Reset(ctx); err != nil {
			return nil, err
		}
	}

	records, err := p.collectRecords(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Discovered: len(records)}

	if p.archive != nil && len(records) > 0 {
		if err := p.archive.Store(records); err != nil {
			p.logger.Error("archive store failed", "backend", p.archive.Name(), "error", err)
		}
	}

	// Export-only mode writes the serialized records and stops before the
	// catalog phase.
	if p.opts.ExportJSON && p.opts.ImportJSON == "" {
		file, err := storage.NewJSONFile(p.opts.JSONPath, p.logger)
		if err != nil {
			return nil, err
		}
		if err := file.Store(records); err != nil {
			return nil, err
		}
		if err := file.Close(); err != nil {
			return nil, err
		}
		fmt.Printf("exported %d records to %s\n", len(records), p.opts.JSONPath)
		return stats, nil
	}

	// The run's fallback category is the collection's own slug; the
	// configured human name applies only to the "all products" sentinel,
	// other slugs get a name derived from the slug at create time.
	fallbackSlug := CollectionCategory(p.opts.CollectionURL, p.cfg.Scrape.CollectionPath)
	if fallbackSlug == "" {
		fallbackSlug = p.cfg.Scrape.FallbackCategorySlug
	}
	fallbackName := ""
	if fallbackSlug == p.cfg.Scrape.FallbackCategorySlug {
		fallbackName = p.cfg.Scrape.FallbackCategoryName
	}

	rec := reconcile.New(p.images, reconcile.Options{
		UpdateExisting: !p.opts.SkipExisting,
		RefreshImages:  p.opts.RefreshImages,
		FetchImages:    !p.opts.DryRun,
		FallbackName:   fallbackName,
		FallbackSlug:   fallbackSlug,
	}, p.logger)

	for i, record := range records {
		outcome, err := p.applyOne(ctx, rec, record)
		if err != nil {
			stats.Failed++
			p.logger.Error("product failed", "url", record.SourceURL, "error", err)
			fmt.Printf("[%d] failed: %s\n", i+1, record.SourceURL)
			continue
		}
		switch outcome {
		case reconcile.OutcomeCreated:
			stats.Created++
		case reconcile.OutcomeUpdated:
			stats.Updated++
		case reconcile.OutcomeSkipped:
			stats.Skipped++
		}
		label := string(outcome)
		if p.opts.DryRun {
			label += " (dry-run)"
		}
		fmt.Printf("[%d] %s: %s\n", i+1, label, record.SourceURL)
	}

	p.logger.Info("run finished",
		"discovered", stats.Discovered,
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats, nil
}

// applyOne reconciles a single record in its own transaction. Dry runs roll
// back instead of committing; so does any error.
func (p *Pipeline) applyOne(ctx context.Context, rec *reconcile.Reconciler, record *types.ParsedProduct) (reconcile.Outcome, error) {
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return "", err
	}
	outcome, err := rec.Apply(ctx, tx, record)
	if err != nil {
		tx.Rollback()
		return "", err
	}
	if p.opts.DryRun {
		if err := tx.Rollback(); err != nil {
			return "", err
		}
		return outcome, nil
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return outcome, nil
}

// collectRecords produces the run's ParsedProducts: from the import file
// when one was given, else by crawling and scraping the collection.
func (p *Pipeline) collectRecords(ctx context.Context) ([]*types.ParsedProduct, error) {
	if p.opts.ImportJSON != "" {
		records, err := storage.ImportJSONFile(p.opts.ImportJSON)
		if err != nil {
			return nil, err
		}
		p.logger.Info("records imported", "path", p.opts.ImportJSON, "count", len(records))
		return records, nil
	}

	links, err := p.Crawl(ctx)
	if err != nil {
		return nil, err
	}
	return p.Scrape(ctx, links), nil
}

// Crawl fetches the collection's listing pages and returns the union of
// discovered product links. The page bound applies before any extra page is
// fetched.
func (p *Pipeline) Crawl(ctx context.Context) ([]string, error) {
	resp, err := p.fetchWithRetry(ctx, p.opts.CollectionURL)
	if err != nil {
		return nil, err
	}
	p.pace()

	links, err := scrape.CollectProductLinks(resp, p.opts.CollectionURL, &p.cfg.Scrape)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(links))
	for _, l := range links {
		seen[l] = true
	}

	maxPage := scrape.MaxPage(resp.Body)
	if p.opts.MaxPages > 0 && maxPage > p.opts.MaxPages {
		maxPage = p.opts.MaxPages
	}
	p.logger.Info("collection scanned", "url", p.opts.CollectionURL, "pages", maxPage, "links", len(links))

	for page := 2; page <= maxPage; page++ {
		pageURL, err := withPageParam(p.opts.CollectionURL, page)
		if err != nil {
			return nil, err
		}
		resp, err := p.fetchWithRetry(ctx, pageURL)
		p.pace()
		if err != nil {
			p.logger.Warn("listing page fetch failed", "url", pageURL, "error", err)
			continue
		}
		pageLinks, err := scrape.CollectProductLinks(resp, p.opts.CollectionURL, &p.cfg.Scrape)
		if err != nil {
			p.logger.Warn("listing page parse failed", "url", pageURL, "error", err)
			continue
		}
		for _, l := range pageLinks {
			if !seen[l] {
				seen[l] = true
				links = append(links, l)
			}
		}
	}
	return links, nil
}

// Scrape fetches and parses every product link. Failures are isolated: a bad
// page logs a diagnostic and the loop moves to the next link.
func (p *Pipeline) Scrape(ctx context.Context, links []string) []*types.ParsedProduct {
	records := make([]*types.ParsedProduct, 0, len(links))
	extractor := scrape.NewExtractor(&p.cfg.Scrape)

	for i, link := range links {
		resp, err := p.fetchWithRetry(ctx, link)
		p.pace()
		if err != nil {
			p.logger.Warn("product fetch failed", "url", link, "error", err)
			fmt.Printf("[%d] skipped (fetch failed): %s\n", i+1, link)
			continue
		}

		record := extractor.Parse(string(resp.Body), link)
		if record.MissingMandatory() {
			p.logger.Debug("record rejected", "url", link, "error", types.ErrInsufficientData)
			fmt.Printf("[%d] skipped (missing name/price): %s\n", i+1, link)
			continue
		}
		records = append(records, record)
	}
	return records
}

// fetchWithRetry retries transient failures up to the configured budget.
func (p *Pipeline) fetchWithRetry(ctx context.Context, rawURL string) (*types.Response, error) {
	var lastErr error
	attempts := p.cfg.Fetcher.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.cfg.Fetcher.RetryDelay
			var fe *types.FetchError
			if errors.As(lastErr, &fe) && fe.RetryAfter > 0 {
				delay = fe.RetryAfter
			}
			p.logger.Debug("retrying fetch", "url", rawURL, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		resp, err := p.fetcher.Fetch(ctx, rawURL)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.IsRetryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func (p *Pipeline) pace() {
	if p.opts.Delay > 0 {
		time.Sleep(p.opts.Delay)
	}
}

// withPageParam sets the page query parameter on a listing URL.
func withPageParam(rawURL string, page int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s", types.ErrInvalidURL, rawURL)
	}
	q := u.Query()
	q.Set("page", fmt.Sprint(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CollectionCategory derives the fallback category slug for a run from the
// collection URL itself.
func CollectionCategory(collectionURL, collectionPath string) string {
	return scrape.CollectionSlug(collectionURL, collectionPath)
}
