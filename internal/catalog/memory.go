package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/webshelf/webshelf/internal/types"
)

// MemoryStore keeps the whole catalog in process memory. It backs tests and
// database-less dry runs. Transactions work on a deep copy of the state and
// publish it on Commit, so a Rollback (or a dropped tx) leaves the store
// untouched.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	products        map[uuid.UUID]*Product
	categories      map[uuid.UUID]*Category
	charTypes       map[uuid.UUID]*CharacteristicType
	characteristics map[uuid.UUID]*ProductCharacteristic
	images          map[uuid.UUID]*ProductImage
}

func newMemState() memState {
	return memState{
		products:        make(map[uuid.UUID]*Product),
		categories:      make(map[uuid.UUID]*Category),
		charTypes:       make(map[uuid.UUID]*CharacteristicType),
		characteristics: make(map[uuid.UUID]*ProductCharacteristic),
		images:          make(map[uuid.UUID]*ProductImage),
	}
}

func (s memState) clone() memState {
	c := newMemState()
	for id, p := range s.products {
		cp := *p
		c.products[id] = &cp
	}
	for id, cat := range s.categories {
		cc := *cat
		c.categories[id] = &cc
	}
	for id, ct := range s.charTypes {
		cc := *ct
		c.charTypes[id] = &cc
	}
	for id, pc := range s.characteristics {
		cc := *pc
		c.characteristics[id] = &cc
	}
	for id, img := range s.images {
		ci := *img
		c.images[id] = &ci
	}
	return c
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()
	return &memTx{store: s, state: snapshot}, nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.state = newMemState()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Counts reports row counts per table, for tests and dry-run summaries.
func (s *MemoryStore) Counts() (products, categories, characteristics, images int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.products), len(s.state.categories),
		len(s.state.characteristics), len(s.state.images)
}

// ProductBySlug reads a committed product outside any transaction. Test
// helper; returns nil when absent.
func (s *MemoryStore) ProductBySlug(slug string) *Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.state.products {
		if p.Slug == slug {
			cp := *p
			return &cp
		}
	}
	return nil
}

type memTx struct {
	store *MemoryStore
	state memState
	done  bool
}

func (t *memTx) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	for _, p := range t.state.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("product %q: %w", slug, types.ErrNotFound)
}

func (t *memTx) CreateProduct(ctx context.Context, p *Product) error {
	cp := *p
	t.state.products[p.ID] = &cp
	return nil
}

func (t *memTx) UpdateProduct(ctx context.Context, p *Product) error {
	if _, ok := t.state.products[p.ID]; !ok {
		return fmt.Errorf("product %s: %w", p.ID, types.ErrNotFound)
	}
	cp := *p
	t.state.products[p.ID] = &cp
	return nil
}

func (t *memTx) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	for _, c := range t.state.categories {
		if c.Slug == slug {
			cc := *c
			return &cc, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", slug, types.ErrNotFound)
}

func (t *memTx) CreateCategory(ctx context.Context, c *Category) error {
	cc := *c
	t.state.categories[c.ID] = &cc
	return nil
}

func (t *memTx) UpdateCategory(ctx context.Context, c *Category) error {
	if _, ok := t.state.categories[c.ID]; !ok {
		return fmt.Errorf("category %s: %w", c.ID, types.ErrNotFound)
	}
	cc := *c
	t.state.categories[c.ID] = &cc
	return nil
}

func (t *memTx) GetCharacteristicTypeByName(ctx context.Context, name string) (*CharacteristicType, error) {
	for _, ct := range t.state.charTypes {
		if ct.Name == name {
			cc := *ct
			return &cc, nil
		}
	}
	return nil, fmt.Errorf("characteristic type %q: %w", name, types.ErrNotFound)
}

func (t *memTx) CreateCharacteristicType(ctx context.Context, ct *CharacteristicType) error {
	cc := *ct
	t.state.charTypes[ct.ID] = &cc
	return nil
}

func (t *memTx) GetProductCharacteristic(ctx context.Context, productID, typeID uuid.UUID) (*ProductCharacteristic, error) {
	for _, pc := range t.state.characteristics {
		if pc.ProductID == productID && pc.TypeID == typeID {
			cc := *pc
			return &cc, nil
		}
	}
	return nil, fmt.Errorf("product characteristic: %w", types.ErrNotFound)
}

func (t *memTx) CreateProductCharacteristic(ctx context.Context, pc *ProductCharacteristic) error {
	cc := *pc
	t.state.characteristics[pc.ID] = &cc
	return nil
}

func (t *memTx) UpdateProductCharacteristic(ctx context.Context, pc *ProductCharacteristic) error {
	if _, ok := t.state.characteristics[pc.ID]; !ok {
		return fmt.Errorf("product characteristic %s: %w", pc.ID, types.ErrNotFound)
	}
	cc := *pc
	t.state.characteristics[pc.ID] = &cc
	return nil
}

func (t *memTx) ListProductImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error) {
	var imgs []ProductImage
	for _, img := range t.state.images {
		if img.ProductID == productID {
			imgs = append(imgs, *img)
		}
	}
	sort.Slice(imgs, func(i, j int) bool { return imgs[i].Position < imgs[j].Position })
	return imgs, nil
}

func (t *memTx) DeleteProductImages(ctx context.Context, productID uuid.UUID) error {
	for id, img := range t.state.images {
		if img.ProductID == productID {
			delete(t.state.images, id)
		}
	}
	return nil
}

func (t *memTx) CreateProductImage(ctx context.Context, img *ProductImage) error {
	ci := *img
	t.state.images[img.ID] = &ci
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.store.mu.Lock()
	t.store.state = t.state
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}
