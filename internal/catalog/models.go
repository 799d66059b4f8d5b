// Package catalog defines the persistent product catalog: its row models and
// the Store/Tx interfaces the reconciler operates through.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog product row.
type Product struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	Slug            string     `db:"slug"             json:"slug"`
	Name            string     `db:"name"             json:"name"`
	Description     string     `db:"description"      json:"description"`
	Price           int        `db:"price"            json:"price"`
	OldPrice        *int       `db:"old_price"        json:"old_price,omitempty"`
	DiscountPercent *int       `db:"discount_percent" json:"discount_percent,omitempty"`
	IsActive        bool       `db:"is_active"        json:"is_active"`
	IsFeatured      bool       `db:"is_featured"      json:"is_featured"`
	SKU             string     `db:"sku"              json:"sku"`
	SourceURL       string     `db:"source_url"       json:"source_url"`
	CategoryID      *uuid.UUID `db:"category_id"      json:"category_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// Category is a catalog category row.
type Category struct {
	ID   uuid.UUID `db:"id"   json:"id"`
	Slug string    `db:"slug" json:"slug"`
	Name string    `db:"name" json:"name"`
}

// CharacteristicType is a shared characteristic dictionary row, keyed by its
// display name ("Цвет", "Материал", ...).
type CharacteristicType struct {
	ID   uuid.UUID `db:"id"   json:"id"`
	Name string    `db:"name" json:"name"`
	Slug string    `db:"slug" json:"slug"`
}

// ProductCharacteristic is one value of a characteristic type on a product.
type ProductCharacteristic struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	TypeID    uuid.UUID `db:"type_id"    json:"type_id"`
	Value     string    `db:"value"      json:"value"`
}

// ProductImage is one stored image of a product. Path is relative to the
// image library root. Position orders the gallery.
type ProductImage struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	Path      string    `db:"path"       json:"path"`
	Position  int       `db:"position"   json:"position"`
}
