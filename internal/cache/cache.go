package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
	"github.com/nurilloh-an/telegram-mini-app/internal/pkg/pool"
)

//go:generate mockgen -source=cache.go -destination=cache_mock_test.go -package=cache

// AllCategories keys the unfiltered product listing.
const AllCategories int64 = 0

type repo interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Products(ctx context.Context, categoryID int64) ([]domain.Product, error)
}

// Catalog caches product listings per category id behind an LRU, plus the
// category list itself, which is small enough to hold whole.
type Catalog struct {
	size     int
	products *lru.Cache[int64, []domain.Product]

	mu         sync.RWMutex
	categories []domain.Category
	haveCats   bool
}

func New(size int) (*Catalog, error) {
	c, err := lru.New[int64, []domain.Product](size)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		size:     size,
		products: c,
	}, nil
}

// Warm pre-fills the cache: the category list first, then each category's
// products fetched concurrently on a small worker pool. Fetch errors leave
// the corresponding entry cold.
func (c *Catalog) Warm(ctx context.Context, repo repo, workers int) {
	cats, err := repo.Categories(ctx)
	if err != nil {
		return
	}
	c.SetCategories(cats)

	p := pool.New(workers)
	for _, cat := range cats {
		id := cat.ID
		p.Submit(func() {
			if products, err := repo.Products(ctx, id); err == nil {
				c.SetProducts(id, products)
			}
		})
	}
	p.Submit(func() {
		if products, err := repo.Products(ctx, AllCategories); err == nil {
			c.SetProducts(AllCategories, products)
		}
	})
	p.Close()
	p.Wait()
}

func (c *Catalog) Products(categoryID int64) ([]domain.Product, bool) {
	return c.products.Get(categoryID)
}

func (c *Catalog) SetProducts(categoryID int64, products []domain.Product) {
	c.products.Add(categoryID, products)
}

func (c *Catalog) Categories() ([]domain.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.categories, c.haveCats
}

func (c *Catalog) SetCategories(categories []domain.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = categories
	c.haveCats = true
}

// InvalidateProducts drops cached listings so the next read goes to the
// database. Called after catalog writes.
func (c *Catalog) InvalidateProducts() {
	c.products.Purge()
}
