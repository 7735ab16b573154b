package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog/internal/event"
	"catalog/internal/metrics"
	"catalog/internal/model"
	"catalog/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DecisionOutcome is the approver's verdict on a queued request.
type DecisionOutcome string

const (
	DecisionApprove DecisionOutcome = "approve"
	DecisionReject  DecisionOutcome = "reject"
)

// --- DTOs ---

type ApprovalRequestResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Reason    string    `json:"reason" example:"CREATE_PRODUCT"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DecisionResult struct {
	Outcome           DecisionOutcome `json:"outcome"`
	ApprovalRequestID string          `json:"approval_request_id"`
	ProductID         string          `json:"product_id"`
	ProductStatus     string          `json:"product_status"`
	Message           string          `json:"message"`
}

// --- Interface ---

type ApprovalService interface {
	ListQueue(ctx context.Context) ([]ApprovalRequestResponse, error)
	Approve(ctx context.Context, id string) (DecisionResult, error)
	Reject(ctx context.Context, id string) (DecisionResult, error)
}

type approvalService struct {
	productRepo  repository.ProductRepository
	approvalRepo repository.ApprovalRepository
	txManager    repository.TransactionManager
	cache        ProductCache
	publisher    event.Publisher
	metrics      *metrics.CatalogMetrics
	log          *logrus.Entry

	// rejectRevertsToActive makes a rejection restore the product to active.
	// Off by default: a rejected product stays pending with no request.
	rejectRevertsToActive bool
}

func NewApprovalService(
	productRepo repository.ProductRepository,
	approvalRepo repository.ApprovalRepository,
	txManager repository.TransactionManager,
	cache ProductCache,
	publisher event.Publisher,
	m *metrics.CatalogMetrics,
	log *logrus.Entry,
	rejectRevertsToActive bool,
) ApprovalService {
	if cache == nil {
		cache = noopCache{}
	}
	if publisher == nil {
		publisher = event.Noop()
	}
	return &approvalService{
		productRepo:           productRepo,
		approvalRepo:          approvalRepo,
		txManager:             txManager,
		cache:                 cache,
		publisher:             publisher,
		metrics:               m,
		log:                   log.WithField("component", "approval_service"),
		rejectRevertsToActive: rejectRevertsToActive,
	}
}

// --- Implementation ---

func (s *approvalService) ListQueue(ctx context.Context) ([]ApprovalRequestResponse, error) {
	requests, err := s.approvalRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval requests: %w", err)
	}

	res := make([]ApprovalRequestResponse, 0, len(requests))
	for _, r := range requests {
		res = append(res, ApprovalRequestResponse{
			ID:        r.ID.String(),
			ProductID: r.ProductID.String(),
			Reason:    r.Reason,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return res, nil
}

func (s *approvalService) Approve(ctx context.Context, id string) (DecisionResult, error) {
	return s.decide(ctx, id, DecisionApprove)
}

func (s *approvalService) Reject(ctx context.Context, id string) (DecisionResult, error) {
	return s.decide(ctx, id, DecisionReject)
}

func (s *approvalService) decide(ctx context.Context, id string, outcome DecisionOutcome) (DecisionResult, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return DecisionResult{}, ErrApprovalRequestNotFound
	}

	var approval *model.ApprovalRequest
	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		approval, err = s.approvalRepo.FindByID(txCtx, requestID)
		if err != nil {
			return notFoundOr(err, ErrApprovalRequestNotFound, "failed to load approval request")
		}
		product, err = s.productRepo.FindByIDForUpdate(txCtx, approval.ProductID)
		if err != nil {
			return notFoundOr(err, ErrProductNotFound, "failed to load product")
		}

		if outcome == DecisionApprove {
			return s.applyApprove(txCtx, approval, product)
		}
		return s.applyReject(txCtx, approval, product)
	})
	if err != nil {
		s.metrics.RecordDecision(string(outcome), "failure")
		if !errors.Is(err, ErrNotFound) {
			s.log.WithError(err).WithField("approval_request_id", requestID).Error("approval decision failed")
		}
		return DecisionResult{}, err
	}

	s.cache.Delete(ctx, product.ID)
	s.metrics.RecordDecision(string(outcome), "success")

	result := DecisionResult{
		Outcome:           outcome,
		ApprovalRequestID: approval.ID.String(),
		ProductID:         product.ID.String(),
		ProductStatus:     product.Status,
	}
	eventType := event.ApprovalApproved
	result.Message = "Product approved successfully."
	if outcome == DecisionReject {
		eventType = event.ApprovalRejected
		result.Message = "Product rejected successfully."
	}
	publishEvent(ctx, s.publisher, s.log, newEvent(eventType, product, approval))

	return result, nil
}

// applyApprove activates the product before removing the request, so a failed
// product write leaves the request in the queue.
func (s *approvalService) applyApprove(ctx context.Context, approval *model.ApprovalRequest, product *model.Product) error {
	product.Status = model.ProductStatusActive
	if err := s.productRepo.Update(ctx, product); err != nil {
		return fmt.Errorf("%w: %w", ErrApproveFailed, err)
	}
	if err := s.approvalRepo.Delete(ctx, approval.ID); err != nil {
		// a concurrent decision removed it first
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApprovalRequestNotFound
		}
		return fmt.Errorf("%w: %w", ErrApproveFailed, err)
	}
	return nil
}

func (s *approvalService) applyReject(ctx context.Context, approval *model.ApprovalRequest, product *model.Product) error {
	if err := s.approvalRepo.Delete(ctx, approval.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApprovalRequestNotFound
		}
		return fmt.Errorf("%w: %w", ErrRejectFailed, err)
	}
	if !s.rejectRevertsToActive {
		return nil
	}
	product.Status = model.ProductStatusActive
	if err := s.productRepo.Update(ctx, product); err != nil {
		return fmt.Errorf("%w: %w", ErrRejectFailed, err)
	}
	return nil
}
