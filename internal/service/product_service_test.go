package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"catalog/internal/event"
	"catalog/internal/model"
	"catalog/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct_BelowThresholdIsActive(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Gadget", Price: price("5000")})
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusActive, p.Status)
	assert.Equal(t, "5000.00", p.Price)

	queue, err := f.approvals.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	active, err := f.products.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, p.ID, active[0].ID)
	assert.Equal(t, []string{event.ProductCreated}, f.events.types())
}

func TestCreateProduct_AboveThresholdQueuesApproval(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Description: "x", Price: price("6000")})
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusPending, p.Status)

	queue, err := f.approvals.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, p.ID, queue[0].ProductID)
	assert.Equal(t, model.ApprovalReasonCreateProduct, queue[0].Reason)

	active, err := f.products.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, []string{event.ProductCreated, event.ApprovalRequested}, f.events.types())
}

func TestCreateProduct_OverCeilingPersistsNothing(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Yacht", Price: price("10000.01")})
	require.ErrorIs(t, err, ErrPriceCeiling)

	all, err := f.products.SearchProducts(ctx, SearchProductsRequest{})
	require.NoError(t, err)
	assert.Empty(t, all)

	queue, err := f.approvals.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)
	assert.Empty(t, f.events.types())
}

func TestCreateProduct_DuplicateName(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("10")})
	require.NoError(t, err)

	_, err = f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("20")})
	require.ErrorIs(t, err, ErrDuplicateName)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Product has already been taken."}, verr.Messages()[FieldName])

	all, err := f.products.SearchProducts(ctx, SearchProductsRequest{ProductName: "Widget"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateProduct_AggregatesFieldErrors(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.products.CreateProduct(context.Background(), CreateProductRequest{Name: "  "})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, ErrNameRequired)
	assert.ErrorIs(t, err, ErrPriceRequired)
	assert.Len(t, verr.Fields, 2)
}

func TestCreateProduct_NegativePrice(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.products.CreateProduct(context.Background(), CreateProductRequest{Name: "Refund", Price: price("-1")})
	assert.ErrorIs(t, err, ErrPriceOutOfRange)
}

type failingApprovalRepo struct {
	repository.ApprovalRepository
	createErr error
	deleteErr error
}

func (r failingApprovalRepo) Create(ctx context.Context, req *model.ApprovalRequest) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.ApprovalRepository.Create(ctx, req)
}

func (r failingApprovalRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.ApprovalRepository.Delete(ctx, id)
}

func TestCreateProduct_QueueFailureRollsBackProduct(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	svc := NewProductService(f.store.Products(),
		failingApprovalRepo{ApprovalRepository: f.store.Approvals(), createErr: errors.New("disk full")},
		f.store.TxManager(), DefaultApprovalPolicy(), nil, nil, nil, testLogger())

	_, err := svc.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("6000")})
	require.Error(t, err)

	all, err := f.products.SearchProducts(ctx, SearchProductsRequest{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateProduct_PriceIncreaseRules(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	a, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "A", Price: price("100")})
	require.NoError(t, err)

	updated, err := f.products.UpdateProduct(ctx, a.ID, UpdateProductRequest{Price: price("150")})
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusActive, updated.Status)
	queue, _ := f.approvals.ListQueue(ctx)
	assert.Empty(t, queue)

	// 150 -> 226 exceeds 150 * 1.5 = 225
	updated, err = f.products.UpdateProduct(ctx, a.ID, UpdateProductRequest{Price: price("226")})
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusPending, updated.Status)
	assert.Equal(t, "226.00", updated.Price)

	queue, err = f.approvals.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, a.ID, queue[0].ProductID)
	assert.Equal(t, model.ApprovalReasonPriceIncrease, queue[0].Reason)
}

func TestUpdateProduct_BlockedWhileApprovalOutstanding(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	w, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("6000")})
	require.NoError(t, err)

	_, err = f.products.UpdateProduct(ctx, w.ID, UpdateProductRequest{Price: price("7000")})
	require.ErrorIs(t, err, ErrPendingApproval)

	_, err = f.products.UpdateProduct(ctx, w.ID, UpdateProductRequest{Name: strPtr("Widget 2")})
	require.ErrorIs(t, err, ErrPendingApproval)

	got, err := f.products.GetProduct(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, "6000.00", got.Price)

	// unchanged name/price and description-only edits go through
	updated, err := f.products.UpdateProduct(ctx, w.ID, UpdateProductRequest{
		Name:        strPtr("Widget"),
		Price:       price("6000.00"),
		Description: strPtr("now with more widget"),
	})
	require.NoError(t, err)
	assert.Equal(t, "now with more widget", updated.Description)
	assert.Equal(t, model.ProductStatusPending, updated.Status)

	queue, _ := f.approvals.ListQueue(ctx)
	assert.Len(t, queue, 1)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.products.UpdateProduct(ctx, uuid.NewString(), UpdateProductRequest{Price: price("1")})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.products.UpdateProduct(ctx, "not-a-uuid", UpdateProductRequest{Price: price("1")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProduct_RenameToTakenName(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "First", Price: price("10")})
	require.NoError(t, err)
	second, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Second", Price: price("10")})
	require.NoError(t, err)

	_, err = f.products.UpdateProduct(ctx, second.ID, UpdateProductRequest{Name: strPtr("First")})
	require.ErrorIs(t, err, ErrDuplicateName)

	got, err := f.products.GetProduct(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)

	// keeping its own name is not a conflict
	_, err = f.products.UpdateProduct(ctx, second.ID, UpdateProductRequest{Name: strPtr("Second"), Price: price("12")})
	assert.NoError(t, err)
}

func TestDeleteProduct_RemovesApprovalRequest(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	w, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Widget", Price: price("6000")})
	require.NoError(t, err)

	require.NoError(t, f.products.DeleteProduct(ctx, w.ID))

	queue, err := f.approvals.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	_, err = f.products.GetProduct(ctx, w.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, f.products.DeleteProduct(ctx, w.ID), ErrProductNotFound)
}

func TestGetProduct_ReadsThroughCache(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Cached", Price: price("10")})
	require.NoError(t, err)

	_, err = f.products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	_, err = f.products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	_, err = f.products.UpdateProduct(ctx, p.ID, UpdateProductRequest{Price: price("12")})
	require.NoError(t, err)

	got, err := f.products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.00", got.Price)
	assert.Equal(t, 1, f.cache.hits)
}

func TestSearchProducts(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	for _, req := range []CreateProductRequest{
		{Name: "Blue Widget", Price: price("10")},
		{Name: "Red Widget", Price: price("6000")},
		{Name: "Gizmo", Price: price("30")},
	} {
		_, err := f.products.CreateProduct(ctx, req)
		require.NoError(t, err)
	}

	res, err := f.products.SearchProducts(ctx, SearchProductsRequest{ProductName: "widget"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Red Widget", res[0].Name)

	res, err = f.products.SearchProducts(ctx, SearchProductsRequest{MinPrice: "20", MaxPrice: "100"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Gizmo", res[0].Name)

	_, err = f.products.SearchProducts(ctx, SearchProductsRequest{MinPostedDate: "03/01/2024"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCreateProduct_PriceRoundedToCentsBeforePolicy(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	tests := []struct {
		name   string
		price  string
		stored string
		status string
	}{
		{name: "Rounds Down To Threshold", price: "5000.001", stored: "5000.00", status: model.ProductStatusActive},
		{name: "Rounds Up Past Threshold", price: "5000.005", stored: "5000.01", status: model.ProductStatusPending},
		{name: "Rounds Down To Ceiling", price: "10000.004", stored: "10000.00", status: model.ProductStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: tt.name, Price: price(tt.price)})
			require.NoError(t, err)
			assert.Equal(t, tt.stored, p.Price)
			assert.Equal(t, tt.status, p.Status)

			_, err = f.store.Approvals().FindByProductID(ctx, uuid.MustParse(p.ID))
			if tt.status == model.ProductStatusPending {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestUpdateProduct_PriceRoundedToCentsBeforePolicy(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: "Product A", Price: price("100")})
	require.NoError(t, err)

	updated, err := f.products.UpdateProduct(ctx, p.ID, UpdateProductRequest{Price: price("150.004")})
	require.NoError(t, err)
	assert.Equal(t, "150.00", updated.Price)
	assert.Equal(t, model.ProductStatusActive, updated.Status)

	queue, err := f.approvals.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	updated, err = f.products.UpdateProduct(ctx, p.ID, UpdateProductRequest{Price: price("225.005")})
	require.NoError(t, err)
	assert.Equal(t, "225.01", updated.Price)
	assert.Equal(t, model.ProductStatusPending, updated.Status)
}

func TestCreateProduct_NameTooLong(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: strings.Repeat("a", 256), Price: price("10")})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, ErrNameTooLong)
	assert.Equal(t, []string{"is too long (maximum is 255 characters)"}, verr.Messages()[FieldName])

	// the limit counts characters, not bytes
	p, err := f.products.CreateProduct(ctx, CreateProductRequest{Name: strings.Repeat("é", 255), Price: price("10")})
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusActive, p.Status)

	active, err := f.products.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
