package service

import (
	"context"
	"errors"
	"testing"

	"catalog/internal/event"
	"catalog/internal/model"
	"catalog/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueEntryFor(t *testing.T, f *fixture, productID string) ApprovalRequestResponse {
	t.Helper()
	queue, err := f.approvals.ListQueue(context.Background())
	require.NoError(t, err)
	for _, q := range queue {
		if q.ProductID == productID {
			return q
		}
	}
	t.Fatalf("no approval request for product %s", productID)
	return ApprovalRequestResponse{}
}

func TestApprove_ActivatesProductAndClearsQueue(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	w, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("6000")})
	require.NoError(t, err)
	entry := queueEntryFor(t, f, w.ID)

	res, err := f.approvals.Approve(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Product approved successfully.", res.Message)
	assert.Equal(t, DecisionApprove, res.Outcome)
	assert.Equal(t, w.ID, res.ProductID)
	assert.Equal(t, model.ProductStatusActive, res.ProductStatus)

	got, err := f.products.GetProduct(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusActive, got.Status)

	queue, err := f.approvals.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)
	assert.Contains(t, f.events.types(), event.ApprovalApproved)

	_, err = f.approvals.Approve(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrApprovalRequestNotFound)
}

func TestReject_LeavesStatusByDefault(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	w, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("6000")})
	require.NoError(t, err)
	entry := queueEntryFor(t, f, w.ID)

	res, err := f.approvals.Reject(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Product rejected successfully.", res.Message)

	got, err := f.products.GetProduct(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusPending, got.Status)

	queue, _ := f.approvals.ListQueue(ctx)
	assert.Empty(t, queue)

	// with no outstanding request the product can be edited again
	_, err = f.products.UpdateProduct(ctx, w.ID, UpdateProductRequest{Price: price("5500")})
	assert.NoError(t, err)
}

func TestReject_RevertsToActiveWhenConfigured(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	w, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("6000")})
	require.NoError(t, err)
	entry := queueEntryFor(t, f, w.ID)

	res, err := f.approvals.Reject(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusActive, res.ProductStatus)

	got, err := f.products.GetProduct(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusActive, got.Status)
}

func TestDecide_UnknownRequest(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.approvals.Approve(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrApprovalRequestNotFound)

	_, err = f.approvals.Reject(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingProductRepo struct {
	repository.ProductRepository
	updateErr error
}

func (r failingProductRepo) Update(ctx context.Context, p *model.Product) error {
	return r.updateErr
}

func TestApprove_ProductWriteFailureKeepsRequest(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	w, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("6000")})
	require.NoError(t, err)
	entry := queueEntryFor(t, f, w.ID)

	svc := NewApprovalService(
		failingProductRepo{ProductRepository: f.store.Products(), updateErr: errors.New("connection reset")},
		f.store.Approvals(), f.store.TxManager(), nil, nil, nil, testLogger(), false)

	_, err = svc.Approve(ctx, entry.ID)
	require.ErrorIs(t, err, ErrApproveFailed)
	assert.Equal(t, "Failed to approve product", ErrApproveFailed.Error())

	queue, _ := f.approvals.ListQueue(ctx)
	assert.Len(t, queue, 1)
	got, _ := f.products.GetProduct(ctx, w.ID)
	assert.Equal(t, model.ProductStatusPending, got.Status)
}

func TestReject_DeleteFailure(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	w, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("6000")})
	require.NoError(t, err)
	entry := queueEntryFor(t, f, w.ID)

	svc := NewApprovalService(f.store.Products(),
		failingApprovalRepo{ApprovalRepository: f.store.Approvals(), deleteErr: errors.New("timeout")},
		f.store.TxManager(), nil, nil, nil, testLogger(), true)

	_, err = svc.Reject(ctx, entry.ID)
	require.ErrorIs(t, err, ErrRejectFailed)

	queue, _ := f.approvals.ListQueue(ctx)
	assert.Len(t, queue, 1)
}

func TestListQueue_NewestFirst(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	first, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "First", Price: price("6000")})
	require.NoError(t, err)
	second, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Second", Price: price("7000")})
	require.NoError(t, err)

	queue, err := f.approvals.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, second.ID, queue[0].ProductID)
	assert.Equal(t, first.ID, queue[1].ProductID)
}
