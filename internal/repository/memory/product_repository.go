package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"catalog/internal/model"
	"catalog/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// productRepositoryInMemory mirrors the postgres repository, including the
// unique name index and the approval_requests ON DELETE CASCADE.
type productRepositoryInMemory struct {
	store *Store
}

func (r *productRepositoryInMemory) Create(ctx context.Context, product *model.Product) error {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if _, exists := r.store.products[product.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if r.nameTakenLocked(product.Name, product.ID) {
		return gorm.ErrDuplicatedKey
	}
	if product.Status == "" {
		product.Status = model.ProductStatusActive
	}

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.store.products[product.ID] = *product
	return nil
}

func (r *productRepositoryInMemory) Update(ctx context.Context, product *model.Product) error {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.products[product.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if r.nameTakenLocked(product.Name, product.ID) {
		return gorm.ErrDuplicatedKey
	}

	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	r.store.products[product.ID] = *product
	return nil
}

func (r *productRepositoryInMemory) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.products, id)
	for reqID, req := range r.store.approvals {
		if req.ProductID == id {
			delete(r.store.approvals, reqID)
		}
	}
	return nil
}

func (r *productRepositoryInMemory) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &product, nil
}

// FindByIDForUpdate relies on the store-wide transaction lock for exclusion.
func (r *productRepositoryInMemory) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepositoryInMemory) FindByName(ctx context.Context, name string) (*model.Product, error) {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, product := range r.store.products {
		if product.Name == name {
			p := product
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *productRepositoryInMemory) ListByStatus(ctx context.Context, status string) ([]model.Product, error) {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]model.Product, 0, len(r.store.products))
	for _, product := range r.store.products {
		if product.Status == status {
			result = append(result, product)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *productRepositoryInMemory) Search(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	needle := strings.ToLower(filter.Name)
	result := make([]model.Product, 0)
	for _, product := range r.store.products {
		if needle != "" && !strings.Contains(strings.ToLower(product.Name), needle) {
			continue
		}
		if filter.MinPrice != nil && product.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && product.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		if filter.CreatedFrom != nil && product.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedBefore != nil && !product.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		result = append(result, product)
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *productRepositoryInMemory) nameTakenLocked(name string, except uuid.UUID) bool {
	for id, product := range r.store.products {
		if id != except && product.Name == name {
			return true
		}
	}
	return false
}

func sortNewestFirst(products []model.Product) {
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID.String() > products[j].ID.String()
	})
}

var _ repository.ProductRepository = (*productRepositoryInMemory)(nil)
