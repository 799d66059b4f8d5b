package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/webshelf/webshelf/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id   UUID PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS characteristic_types (
	id   UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id               UUID PRIMARY KEY,
	slug             TEXT NOT NULL UNIQUE,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	price            INTEGER NOT NULL,
	old_price        INTEGER,
	discount_percent INTEGER,
	is_active        BOOLEAN NOT NULL DEFAULT TRUE,
	is_featured      BOOLEAN NOT NULL DEFAULT FALSE,
	sku              TEXT NOT NULL DEFAULT '',
	source_url       TEXT NOT NULL DEFAULT '',
	category_id      UUID REFERENCES categories(id) ON DELETE SET NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS product_characteristics (
	id         UUID PRIMARY KEY,
	product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	type_id    UUID NOT NULL REFERENCES characteristic_types(id) ON DELETE CASCADE,
	value      TEXT NOT NULL,
	UNIQUE (product_id, type_id)
);

CREATE TABLE IF NOT EXISTS product_images (
	id         UUID PRIMARY KEY,
	product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	path       TEXT NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0
);
`

// PostgresStore is the sqlx-backed catalog store.
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore connects to dsn, verifies the connection, and ensures the
// catalog schema exists.
func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: fmt.Errorf("connect: %w", err)}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "postgres", Err: fmt.Errorf("ensure schema: %w", err)}
	}
	return &PostgresStore{
		db:     db,
		logger: logger.With("component", "catalog_store"),
	}, nil
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	return &pgTx{tx: tx}, nil
}

// Reset wipes the catalog, children before parents so foreign keys never
// block the delete.
func (s *PostgresStore) Reset(ctx context.Context) error {
	tables := []string{
		"product_images",
		"product_characteristics",
		"products",
		"categories",
		"characteristic_types",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return &types.StorageError{Backend: "postgres", Err: fmt.Errorf("reset %s: %w", t, err)}
		}
	}
	s.logger.Info("catalog reset", "tables", len(tables))
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var p Product
	err := t.tx.GetContext(ctx, &p, `SELECT * FROM products WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %q: %w", slug, types.ErrNotFound)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	return &p, nil
}

func (t *pgTx) CreateProduct(ctx context.Context, p *Product) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO products (id, slug, name, description, price, old_price,
			discount_percent, is_active, is_featured, sku, source_url,
			category_id, created_at, updated_at)
		VALUES (:id, :slug, :name, :description, :price, :old_price,
			:discount_percent, :is_active, :is_featured, :sku, :source_url,
			:category_id, :created_at, :updated_at)`, p)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}
	return nil
}

func (t *pgTx) UpdateProduct(ctx context.Context, p *Product) error {
	_, err := t.tx.NamedExecContext(ctx, `
		UPDATE products SET name = :name, description = :description,
			price = :price, old_price = :old_price,
			discount_percent = :discount_percent,
			is_active = :is_active, is_featured = :is_featured, sku = :sku,
			source_url = :source_url, category_id = :category_id,
			updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}
	return nil
}

func (t *pgTx) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var c Category
	err := t.tx.GetContext(ctx, &c, `SELECT * FROM categories WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", slug, types.ErrNotFound)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	return &c, nil
}

func (t *pgTx) CreateCategory(ctx context.Context, c *Category) error {
	_, err := t.tx.NamedExecContext(ctx,
		`INSERT INTO categories (id, slug, name) VALUES (:id, :slug, :name)`, c)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}
	return nil
}

func (t *pgTx) UpdateCategory(ctx context.Context, c *Category) error {
	_, err := t.tx.NamedExecContext(ctx,
		`UPDATE categories SET name = :name WHERE id = :id`, c)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}
	return nil
}

func (t *pgTx) GetCharacteristicTypeByName(ctx context.Context, name string) (*CharacteristicType, error) {
	var ct CharacteristicType
	err := t.tx.GetContext(ctx, &ct, `SELECT * FROM characteristic_types WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("characteristic type %q: %w", name, types.ErrNotFound)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	return &ct, nil
}

func (t *pgTx) CreateCharacteristicType(ctx context.Context, ct *CharacteristicType) error {
	_, err := t.tx.NamedExecContext(ctx,
		`INSERT INTO characteristic_types (id, name, slug) VALUES (:id, :name, :slug)`, ct)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}
	return nil
}

func (t *pgTx) GetProductCharacteristic(ctx context.Context, productID, typeID uuid.UUID) (*ProductCharacteristic, error) {
	var pc ProductCharacteristic
	err := t.tx.GetContext(ctx, &pc,
		`SELECT * FROM product_characteristics WHERE product_id = $1 AND type_id = $2`,
		productID, typeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product characteristic: %w", types.ErrNotFound)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	return &pc, nil
}

func (t *pgTx) CreateProductCharacteristic(ctx context.Context, pc *ProductCharacteristic) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO product_characteristics (id, product_id, type_id, value)
		VALUES (:id, :product_id, :type_id, :value)`, pc)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}
	return nil
}

func (t *pgTx) UpdateProductCharacteristic(ctx context.Context, pc *ProductCharacteristic) error {
	_, err := t.tx.NamedExecContext(ctx,
		`UPDATE product_characteristics SET value = :value WHERE id = :id`, pc)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}
	return nil
}

func (t *pgTx) ListProductImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error) {
	var imgs []ProductImage
	err := t.tx.SelectContext(ctx, &imgs,
		`SELECT * FROM product_images WHERE product_id = $1 ORDER BY position`, productID)
	if err != nil {
		return nil, &types.StorageError{Backend: "postgres", Err: err}
	}
	return imgs, nil
}

func (t *pgTx) DeleteProductImages(ctx context.Context, productID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM product_images WHERE product_id = $1`, productID)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}
	return nil
}

func (t *pgTx) CreateProductImage(ctx context.Context, img *ProductImage) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO product_images (id, product_id, path, position)
		VALUES (:id, :product_id, :path, :position)`, img)
	if err != nil {
		return &types.StorageError{Backend: "postgres", Err: err}
	}
	return nil
}

func (t *pgTx) Commit() error   { return t.tx.Commit() }
func (t *pgTx) Rollback() error { return t.tx.Rollback() }
