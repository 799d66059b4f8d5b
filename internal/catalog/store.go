package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Store opens catalog transactions. Implementations: PostgresStore for the
// real catalog, MemoryStore for tests and database-less dry runs.
type Store interface {
	// Begin opens a transaction. Every read and write goes through a Tx so
	// a failed product leaves no partial rows behind.
	Begin(ctx context.Context) (Tx, error)

	// Reset deletes all catalog rows, children before parents.
	Reset(ctx context.Context) error

	Close() error
}

// Tx is a single catalog transaction. Lookup methods return
// types.ErrNotFound (wrapped) when no row matches.
type Tx interface {
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error

	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error

	GetCharacteristicTypeByName(ctx context.Context, name string) (*CharacteristicType, error)
	CreateCharacteristicType(ctx context.Context, t *CharacteristicType) error

	GetProductCharacteristic(ctx context.Context, productID, typeID uuid.UUID) (*ProductCharacteristic, error)
	CreateProductCharacteristic(ctx context.Context, pc *ProductCharacteristic) error
	UpdateProductCharacteristic(ctx context.Context, pc *ProductCharacteristic) error

	ListProductImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error)
	DeleteProductImages(ctx context.Context, productID uuid.UUID) error
	CreateProductImage(ctx context.Context, img *ProductImage) error

	Commit() error
	Rollback() error
}
