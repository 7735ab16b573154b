package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"catalog/internal/event"
	"catalog/internal/metrics"
	"catalog/internal/model"
	"catalog/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DTOs
type CreateProductRequest struct {
	Name        string           `json:"name" example:"Widget"`
	Description string           `json:"description" example:"A very useful widget"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string" example:"6000"`
}

// UpdateProductRequest is partial: nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name" example:"Widget"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string" example:"7500.50"`
}

// SearchProductsRequest carries the raw query parameters; all are optional.
type SearchProductsRequest struct {
	ProductName   string `form:"productName"`
	MinPrice      string `form:"minPrice"`
	MaxPrice      string `form:"maxPrice"`
	MinPostedDate string `form:"minPostedDate"`
	MaxPostedDate string `form:"maxPostedDate"`
}

type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price" example:"6000.00"`
	Status      string    `json:"status" example:"pending"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductCache is a best-effort read-through cache for single products.
// Get also returns the entry's version; Set stores a product only if no
// Delete has happened for it since that version was read.
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Product, int64, error)
	Set(ctx context.Context, product *model.Product, version int64)
	Delete(ctx context.Context, ids ...uuid.UUID)
}

type ProductService interface {
	ListActive(ctx context.Context) ([]ProductResponse, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, id string) error
	SearchProducts(ctx context.Context, req SearchProductsRequest) ([]ProductResponse, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	approvalRepo repository.ApprovalRepository
	txManager    repository.TransactionManager
	policy       ApprovalPolicy
	cache        ProductCache
	publisher    event.Publisher
	metrics      *metrics.CatalogMetrics
	log          *logrus.Entry
}

func NewProductService(
	productRepo repository.ProductRepository,
	approvalRepo repository.ApprovalRepository,
	txManager repository.TransactionManager,
	policy ApprovalPolicy,
	cache ProductCache,
	publisher event.Publisher,
	m *metrics.CatalogMetrics,
	log *logrus.Entry,
) ProductService {
	if cache == nil {
		cache = noopCache{}
	}
	if publisher == nil {
		publisher = event.Noop()
	}
	return &productService{
		productRepo:  productRepo,
		approvalRepo: approvalRepo,
		txManager:    txManager,
		policy:       policy,
		cache:        cache,
		publisher:    publisher,
		metrics:      m,
		log:          log.WithField("component", "product_service"),
	}
}

func (s *productService) ListActive(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.productRepo.ListByStatus(ctx, model.ProductStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return toProductResponses(products), nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, ErrProductNotFound
	}

	cached, version, cacheErr := s.cache.Get(ctx, productID)
	if cacheErr != nil {
		s.log.WithError(cacheErr).Warn("product cache read failed")
	}
	if cached != nil {
		return toProductResponse(*cached), nil
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, notFoundOr(err, ErrProductNotFound, "failed to load product")
	}
	if cacheErr == nil {
		s.cache.Set(ctx, product, version)
	}

	return toProductResponse(*product), nil
}

func (s *productService) CreateProduct(ctx context.Context, req CreateProductRequest) (ProductResponse, error) {
	req.Price = roundPrice(req.Price)

	decision := CreateDecision{Status: model.ProductStatusActive}
	if req.Price != nil {
		var err error
		decision, err = s.policy.DecideCreate(*req.Price)
		if err != nil {
			s.metrics.RecordCeilingRejection()
			return ProductResponse{}, err
		}
	}

	var product *model.Product
	var approval *model.ApprovalRequest
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.validate(txCtx, req.Name, req.Price, uuid.Nil); err != nil {
			return err
		}

		product = &model.Product{
			Name:        req.Name,
			Description: req.Description,
			Price:       *req.Price,
			Status:      decision.Status,
		}
		if err := s.productRepo.Create(txCtx, product); err != nil {
			return persistError(err, "failed to create product")
		}

		if decision.RequiresApproval {
			approval = &model.ApprovalRequest{
				ProductID: product.ID,
				Reason:    model.ApprovalReasonCreateProduct,
			}
			if err := s.approvalRepo.Create(txCtx, approval); err != nil {
				return fmt.Errorf("failed to queue approval request: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.metrics.RecordProductCreated(product.Status)
	s.publish(ctx, event.ProductCreated, product, nil)
	if approval != nil {
		s.metrics.RecordApprovalQueued(approval.Reason)
		s.publish(ctx, event.ApprovalRequested, product, approval)
	}
	s.log.WithFields(logrus.Fields{
		"product_id": product.ID,
		"status":     product.Status,
	}).Info("product created")

	return toProductResponse(*product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, ErrProductNotFound
	}
	req.Price = roundPrice(req.Price)

	var product *model.Product
	var approval *model.ApprovalRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		product, err = s.productRepo.FindByIDForUpdate(txCtx, productID)
		if err != nil {
			return notFoundOr(err, ErrProductNotFound, "failed to load product")
		}
		previousPrice := product.Price

		nameChanged := req.Name != nil && *req.Name != product.Name
		priceChanged := req.Price != nil && !req.Price.Equal(product.Price)
		if nameChanged || priceChanged {
			outstanding, err := s.hasApprovalRequest(txCtx, productID)
			if err != nil {
				return err
			}
			if outstanding {
				return ErrPendingApproval
			}
		}

		if req.Name != nil {
			product.Name = *req.Name
		}
		if req.Description != nil {
			product.Description = *req.Description
		}
		if req.Price != nil {
			product.Price = *req.Price
		}
		if err := s.validate(txCtx, product.Name, &product.Price, product.ID); err != nil {
			return err
		}
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return persistError(err, "failed to update product")
		}

		if !s.policy.RequiresUpdateApproval(previousPrice, product.Price) {
			return nil
		}
		approval, err = s.ensureApprovalRequest(txCtx, productID, model.ApprovalReasonPriceIncrease)
		if err != nil {
			return err
		}
		product.Status = model.ProductStatusPending
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to mark product pending: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPendingApproval) {
			s.metrics.RecordPendingConflict()
		}
		return ProductResponse{}, err
	}

	s.cache.Delete(ctx, productID)
	s.metrics.RecordProductUpdated()
	s.publish(ctx, event.ProductUpdated, product, nil)
	if approval != nil {
		s.metrics.RecordApprovalQueued(approval.Reason)
		s.publish(ctx, event.ApprovalRequested, product, approval)
	}

	return toProductResponse(*product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ErrProductNotFound
	}

	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		product, err = s.productRepo.FindByIDForUpdate(txCtx, productID)
		if err != nil {
			return notFoundOr(err, ErrProductNotFound, "failed to load product")
		}
		if err := s.approvalRepo.DeleteByProductID(txCtx, productID); err != nil {
			return fmt.Errorf("failed to remove approval request: %w", err)
		}
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Delete(ctx, productID)
	s.metrics.RecordProductDeleted()
	s.publish(ctx, event.ProductDeleted, product, nil)
	return nil
}

func (s *productService) SearchProducts(ctx context.Context, req SearchProductsRequest) ([]ProductResponse, error) {
	filter, err := parseSearchFilter(req)
	if err != nil {
		return nil, err
	}

	products, err := s.productRepo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return toProductResponses(products), nil
}

// validate checks fields in a fixed order and reports every failure at once.
// except is the product being updated, which may keep its own name.
func (s *productService) validate(ctx context.Context, name string, price *decimal.Decimal, except uuid.UUID) error {
	verr := &ValidationError{}

	if strings.TrimSpace(name) == "" {
		verr.Add(FieldName, ErrNameRequired)
	} else if utf8.RuneCountInString(name) > maxNameLength {
		verr.Add(FieldName, ErrNameTooLong)
	} else {
		existing, err := s.productRepo.FindByName(ctx, name)
		switch {
		case err == nil && existing.ID != except:
			verr.Add(FieldName, ErrDuplicateName)
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to check product name: %w", err)
		}
	}

	switch {
	case price == nil:
		verr.Add(FieldPrice, ErrPriceRequired)
	case !s.policy.InRange(*price):
		verr.Add(FieldPrice, ErrPriceOutOfRange)
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// roundPrice rounds to cents, the precision of the price column, so the
// policy sees the value that will be stored.
func roundPrice(price *decimal.Decimal) *decimal.Decimal {
	if price == nil {
		return nil
	}
	rounded := price.Round(2)
	return &rounded
}

func (s *productService) hasApprovalRequest(ctx context.Context, productID uuid.UUID) (bool, error) {
	_, err := s.approvalRepo.FindByProductID(ctx, productID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to look up approval request: %w", err)
}

// ensureApprovalRequest returns the product's request, creating it if absent.
// It returns nil when a request already existed.
func (s *productService) ensureApprovalRequest(ctx context.Context, productID uuid.UUID, reason string) (*model.ApprovalRequest, error) {
	outstanding, err := s.hasApprovalRequest(ctx, productID)
	if err != nil || outstanding {
		return nil, err
	}
	approval := &model.ApprovalRequest{ProductID: productID, Reason: reason}
	if err := s.approvalRepo.Create(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to queue approval request: %w", err)
	}
	return approval, nil
}

func (s *productService) publish(ctx context.Context, eventType string, product *model.Product, approval *model.ApprovalRequest) {
	publishEvent(ctx, s.publisher, s.log, newEvent(eventType, product, approval))
}

func parseSearchFilter(req SearchProductsRequest) (repository.ProductFilter, error) {
	filter := repository.ProductFilter{Name: strings.TrimSpace(req.ProductName)}

	var err error
	if filter.MinPrice, err = parseDecimalParam("minPrice", req.MinPrice); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = parseDecimalParam("maxPrice", req.MaxPrice); err != nil {
		return filter, err
	}

	from, err := parseDateParam("minPostedDate", req.MinPostedDate)
	if err != nil {
		return filter, err
	}
	filter.CreatedFrom = from

	to, err := parseDateParam("maxPostedDate", req.MaxPostedDate)
	if err != nil {
		return filter, err
	}
	if to != nil {
		// the whole max day is included
		before := to.AddDate(0, 0, 1)
		filter.CreatedBefore = &before
	}
	return filter, nil
}

func parseDecimalParam(name, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidFilter, name)
	}
	return &d, nil
}

// parseDateParam accepts YYYY-MM-DD or RFC3339 and truncates to the UTC calendar day.
func parseDateParam(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", ErrInvalidFilter, name)
		}
	}
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day, nil
}

// notFoundOr maps a missing record to sentinel and wraps anything else.
func notFoundOr(err, sentinel error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// persistError turns the store's unique-name violation into a field error.
func persistError(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return newValidationError(FieldName, ErrDuplicateName)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func toProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductResponses(products []model.Product) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID) (*model.Product, int64, error) { return nil, 0, nil }
func (noopCache) Set(context.Context, *model.Product, int64)                    {}
func (noopCache) Delete(context.Context, ...uuid.UUID)                          {}
