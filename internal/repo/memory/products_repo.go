package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/rentdesk/internal/domain/product"
)

type ProductsRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]product.Product // {"id": "product"}
}

func NewProductsRepo() *ProductsRepo {
	return &ProductsRepo{
		items: make(map[int64]product.Product),
	}
}

func (r *ProductsRepo) Create(_ context.Context, p product.Product, actor *int64) (product.Product, error) {
	now := time.Now().UTC()

	r.mu.Lock()
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	p.CreatedBy = copyID(actor)
	p.UpdatedBy = copyID(actor)
	r.items[p.ID] = p
	r.mu.Unlock()

	return p, nil
}

func (r *ProductsRepo) GetByID(_ context.Context, id int64) (product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

func (r *ProductsRepo) List(_ context.Context, filter product.ListFilter) ([]product.Product, int, error) {
	r.mu.RLock()
	matched := make([]product.Product, 0, len(r.items))
	for _, p := range r.items {
		if filter.Search != nil {
			needle := strings.ToLower(*filter.Search)
			if !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(strings.ToLower(p.Code), needle) {
				continue
			}
		}
		if filter.ProductType != nil && p.ProductType != *filter.ProductType {
			continue
		}
		if filter.Availability != nil && p.Availability != *filter.Availability {
			continue
		}
		if filter.NeedingRepair != nil && p.NeedingRepair != *filter.NeedingRepair {
			continue
		}
		matched = append(matched, p)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *ProductsRepo) Update(_ context.Context, p product.Product, actor *int64) (product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[p.ID]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}

	p.CreatedAt = current.CreatedAt
	p.CreatedBy = current.CreatedBy
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = copyID(actor)
	r.items[p.ID] = p

	return p, nil
}

func (r *ProductsRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
