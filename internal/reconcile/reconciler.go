// Package reconcile applies scraped product records to the catalog store.
// Each record resolves to one of three outcomes: created, updated, skipped.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/webshelf/webshelf/internal/catalog"
	"github.com/webshelf/webshelf/internal/types"
)

// Outcome is the terminal state of reconciling one record.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
)

// ImageStore downloads remote images into local storage and removes them
// again during a refresh. *images.Library implements it.
type ImageStore interface {
	Download(ctx context.Context, url string) (string, error)
	Remove(relPath string) error
}

// Options control reconciliation policy for a run.
type Options struct {
	// UpdateExisting applies scraped values to products already in the
	// catalog. When false an existing slug is skipped untouched.
	UpdateExisting bool

	// RefreshImages replaces the stored image set on updates as well as
	// creates. Without it images are written only for new products.
	RefreshImages bool

	// FetchImages gates every image side effect, downloads and file
	// deletion both. Dry runs set it false so no files appear or vanish.
	FetchImages bool

	// FallbackName and FallbackSlug identify the category used when a
	// page yields no resolvable category.
	FallbackName string
	FallbackSlug string
}

// Reconciler merges ParsedProduct records into the catalog.
type Reconciler struct {
	images ImageStore
	opts   Options
	logger *slog.Logger
	titler cases.Caser
}

func New(images ImageStore, opts Options, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		images: images,
		opts:   opts,
		logger: logger.With("component", "reconciler"),
		titler: cases.Title(language.Russian),
	}
}

// Apply reconciles one record inside the given transaction. The caller owns
// commit/rollback; Apply never finishes the transaction itself.
func (r *Reconciler) Apply(ctx context.Context, tx catalog.Tx, rec *types.ParsedProduct) (Outcome, error) {
	category, err := r.resolveCategory(ctx, tx, rec)
	if err != nil {
		return "", err
	}

	existing, err := tx.GetProductBySlug(ctx, rec.Slug)
	switch {
	case err == nil:
		if !r.opts.UpdateExisting {
			return OutcomeSkipped, nil
		}
		if err := r.update(ctx, tx, existing, rec, category); err != nil {
			return "", err
		}
		if err := r.upsertCharacteristics(ctx, tx, existing.ID, rec); err != nil {
			return "", err
		}
		if r.opts.RefreshImages {
			if err := r.refreshImages(ctx, tx, existing.ID, rec); err != nil {
				return "", err
			}
		}
		return OutcomeUpdated, nil

	case errors.Is(err, types.ErrNotFound):
		product, err := r.create(ctx, tx, rec, category)
		if err != nil {
			return "", err
		}
		if err := r.upsertCharacteristics(ctx, tx, product.ID, rec); err != nil {
			return "", err
		}
		if err := r.insertImages(ctx, tx, product.ID, rec.Images, 0); err != nil {
			return "", err
		}
		return OutcomeCreated, nil

	default:
		return "", err
	}
}

func (r *Reconciler) create(ctx context.Context, tx catalog.Tx, rec *types.ParsedProduct, category *catalog.Category) (*catalog.Product, error) {
	name := rec.Name
	if name == "" {
		name = rec.Slug
	}
	price := 0
	if rec.Price != nil {
		price = *rec.Price
	}
	now := time.Now().UTC()
	p := &catalog.Product{
		ID:              uuid.New(),
		Slug:            rec.Slug,
		Name:            name,
		Description:     rec.Description,
		Price:           price,
		OldPrice:        rec.OldPrice,
		DiscountPercent: discountPercent(rec.Price, rec.OldPrice),
		IsActive:        true,
		IsFeatured:      false,
		SKU:             rec.SKU,
		SourceURL:       rec.SourceURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if category != nil {
		p.CategoryID = &category.ID
	}
	if err := tx.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// update applies scraped values in place. Empty scrapes never blank out a
// stored name or description; price moves only when the scrape carries one.
func (r *Reconciler) update(ctx context.Context, tx catalog.Tx, p *catalog.Product, rec *types.ParsedProduct, category *catalog.Category) error {
	if rec.Name != "" {
		p.Name = rec.Name
	}
	if rec.Description != "" {
		p.Description = rec.Description
	}
	if rec.Price != nil {
		p.Price = *rec.Price
	}
	p.OldPrice = rec.OldPrice
	p.DiscountPercent = discountPercent(rec.Price, rec.OldPrice)
	if rec.SKU != "" {
		p.SKU = rec.SKU
	}
	if rec.SourceURL != "" {
		p.SourceURL = rec.SourceURL
	}
	if category != nil {
		p.CategoryID = &category.ID
	}
	p.UpdatedAt = time.Now().UTC()
	return tx.UpdateProduct(ctx, p)
}

// resolveCategory returns the category for this record, creating it on first
// sight and refreshing its name when the page shows a different one. Records
// without a category fall back to the configured default.
func (r *Reconciler) resolveCategory(ctx context.Context, tx catalog.Tx, rec *types.ParsedProduct) (*catalog.Category, error) {
	catSlug := rec.CategorySlug
	catName := rec.CategoryName
	if catSlug == "" {
		catSlug = r.opts.FallbackSlug
		catName = ""
	}
	if catSlug == "" {
		return nil, nil
	}

	existing, err := tx.GetCategoryBySlug(ctx, catSlug)
	if err == nil {
		if catName != "" && catName != existing.Name {
			existing.Name = catName
			if err := tx.UpdateCategory(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	if catName == "" {
		if catSlug == r.opts.FallbackSlug && r.opts.FallbackName != "" {
			catName = r.opts.FallbackName
		} else {
			catName = r.titler.String(strings.ReplaceAll(catSlug, "-", " "))
		}
	}
	c := &catalog.Category{ID: uuid.New(), Slug: catSlug, Name: catName}
	if err := tx.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// upsertCharacteristics walks the record's characteristics in canonical
// order, lazily creating the shared type row (looked up by name, not slug)
// and inserting or updating the per-product value. Keys absent from the
// record are left alone.
func (r *Reconciler) upsertCharacteristics(ctx context.Context, tx catalog.Tx, productID uuid.UUID, rec *types.ParsedProduct) error {
	for _, key := range types.CharacteristicOrder {
		value, ok := rec.Characteristics[key]
		if !ok || value == "" {
			continue
		}

		ct, err := tx.GetCharacteristicTypeByName(ctx, string(key))
		if errors.Is(err, types.ErrNotFound) {
			ct = &catalog.CharacteristicType{
				ID:   uuid.New(),
				Name: string(key),
				Slug: slug.Make(string(key)),
			}
			if err := tx.CreateCharacteristicType(ctx, ct); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		pc, err := tx.GetProductCharacteristic(ctx, productID, ct.ID)
		switch {
		case err == nil:
			if pc.Value != value {
				pc.Value = value
				if err := tx.UpdateProductCharacteristic(ctx, pc); err != nil {
					return err
				}
			}
		case errors.Is(err, types.ErrNotFound):
			pc = &catalog.ProductCharacteristic{
				ID:        uuid.New(),
				ProductID: productID,
				TypeID:    ct.ID,
				Value:     value,
			}
			if err := tx.CreateProductCharacteristic(ctx, pc); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

// refreshImages drops the stored image set and replaces it with the freshly
// scraped one. File deletion is best-effort; a file that will not delete is
// logged and the refresh continues.
func (r *Reconciler) refreshImages(ctx context.Context, tx catalog.Tx, productID uuid.UUID, rec *types.ParsedProduct) error {
	old, err := tx.ListProductImages(ctx, productID)
	if err != nil {
		return err
	}
	if r.opts.FetchImages {
		for _, img := range old {
			if err := r.images.Remove(img.Path); err != nil {
				r.logger.Warn("stale image not removed", "path", img.Path, "error", err)
			}
		}
	}
	if err := tx.DeleteProductImages(ctx, productID); err != nil {
		return err
	}
	return r.insertImages(ctx, tx, productID, rec.Images, 0)
}

// insertImages downloads each URL and records a row, positions sequential
// from start. A failed download skips that image and moves on.
func (r *Reconciler) insertImages(ctx context.Context, tx catalog.Tx, productID uuid.UUID, urls []string, start int) error {
	if !r.opts.FetchImages {
		return nil
	}
	position := start
	for _, u := range urls {
		rel, err := r.images.Download(ctx, u)
		if err != nil {
			r.logger.Warn("image download failed", "url", u, "error", err)
			continue
		}
		img := &catalog.ProductImage{
			ID:        uuid.New(),
			ProductID: productID,
			Path:      rel,
			Position:  position,
		}
		if err := tx.CreateProductImage(ctx, img); err != nil {
			return err
		}
		position++
	}
	return nil
}

// discountPercent returns round((1 - price/old) * 100) when the old price
// strictly exceeds the current one, else nil.
func discountPercent(price, oldPrice *int) *int {
	if price == nil || oldPrice == nil || *oldPrice <= *price || *oldPrice == 0 {
		return nil
	}
	d := int(math.Round((1 - float64(*price)/float64(*oldPrice)) * 100))
	return &d
}
