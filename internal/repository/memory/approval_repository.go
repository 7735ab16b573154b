package memory

import (
	"context"
	"sort"
	"time"

	"catalog/internal/model"
	"catalog/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type approvalRepositoryInMemory struct {
	store *Store
}

// Create enforces the same unique product_id index and foreign key as postgres.
func (r *approvalRepositoryInMemory) Create(ctx context.Context, req *model.ApprovalRequest) error {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.products[req.ProductID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	for _, existing := range r.store.approvals {
		if existing.ProductID == req.ProductID {
			return gorm.ErrDuplicatedKey
		}
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	r.store.approvals[req.ID] = *req
	return nil
}

func (r *approvalRepositoryInMemory) FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	req, ok := r.store.approvals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r *approvalRepositoryInMemory) FindByProductID(ctx context.Context, productID uuid.UUID) (*model.ApprovalRequest, error) {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, req := range r.store.approvals {
		if req.ProductID == productID {
			found := req
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *approvalRepositoryInMemory) List(ctx context.Context) ([]model.ApprovalRequest, error) {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]model.ApprovalRequest, 0, len(r.store.approvals))
	for _, req := range r.store.approvals {
		result = append(result, req)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	return result, nil
}

func (r *approvalRepositoryInMemory) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.approvals[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.store.approvals, id)
	return nil
}

func (r *approvalRepositoryInMemory) DeleteByProductID(ctx context.Context, productID uuid.UUID) error {
	defer r.store.lockOutsideTx(ctx)()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, req := range r.store.approvals {
		if req.ProductID == productID {
			delete(r.store.approvals, id)
		}
	}
	return nil
}

var _ repository.ApprovalRepository = (*approvalRepositoryInMemory)(nil)
