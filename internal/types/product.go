package types

// Characteristic names one recognized product characteristic kind. The set
// is closed: the origin's pages only ever label these ten.
type Characteristic string

const (
	CharSize     Characteristic = "Размер"
	CharWidth    Characteristic = "Ширина"
	CharHeight   Characteristic = "Высота"
	CharDepth    Characteristic = "Глубина"
	CharWeight   Characteristic = "Вес"
	CharDiameter Characteristic = "Диаметр"
	CharLength   Characteristic = "Длина"
	CharVolume   Characteristic = "Объём"
	CharMaterial Characteristic = "Материал"
	CharColor    Characteristic = "Цвет"
)

// CharacteristicOrder fixes a canonical iteration order so runs over the
// same record touch the store deterministically.
var CharacteristicOrder = []Characteristic{
	CharSize, CharWidth, CharHeight, CharDepth, CharWeight,
	CharDiameter, CharLength, CharVolume, CharMaterial, CharColor,
}

// ParsedProduct is everything one detail-page scrape yields. It lives for a
// single reconciliation pass (or a JSON export round-trip) and is then
// discarded. Absent fields stay zero; nil Price means "no price found",
// which is different from a price of zero.
type ParsedProduct struct {
	Slug            string                    `json:"slug"`
	Name            string                    `json:"name"`
	Description     string                    `json:"description,omitempty"`
	Price           *int                      `json:"price,omitempty"`
	OldPrice        *int                      `json:"old_price,omitempty"`
	CategoryName    string                    `json:"category_name,omitempty"`
	CategorySlug    string                    `json:"category_slug,omitempty"`
	Images          []string                  `json:"images,omitempty"`
	Characteristics map[Characteristic]string `json:"characteristics,omitempty"`
	SKU             string                    `json:"sku,omitempty"`
	SourceURL       string                    `json:"source_url"`
}

// MissingMandatory reports whether the record lacks the minimum signal for
// a catalog entry: a name and a non-zero price.
func (p *ParsedProduct) MissingMandatory() bool {
	return p.Name == "" || p.Price == nil || *p.Price == 0
}
