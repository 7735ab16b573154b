package service

import (
	"catalog/internal/model"

	"github.com/shopspring/decimal"
)

// ApprovalPolicy decides when a product price needs human review.
// It has no side effects; the lifecycle services act on its decisions.
type ApprovalPolicy struct {
	PriceCeiling      decimal.Decimal // creation above this is refused
	ApprovalThreshold decimal.Decimal // creation above this needs approval
	IncreaseRatio     decimal.Decimal // update above previous*ratio needs approval
}

// DefaultApprovalPolicy returns the catalog rules: refuse above 10000,
// review creations above 5000 and increases of more than 50%.
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{
		PriceCeiling:      decimal.NewFromInt(10000),
		ApprovalThreshold: decimal.NewFromInt(5000),
		IncreaseRatio:     decimal.RequireFromString("1.5"),
	}
}

// CreateDecision is the outcome of evaluating a new product's price.
type CreateDecision struct {
	RequiresApproval bool
	Status           string
}

// DecideCreate refuses prices over the ceiling with ErrPriceCeiling.
func (p ApprovalPolicy) DecideCreate(price decimal.Decimal) (CreateDecision, error) {
	if price.GreaterThan(p.PriceCeiling) {
		return CreateDecision{}, newValidationError(FieldPrice, ErrPriceCeiling)
	}
	if price.GreaterThan(p.ApprovalThreshold) {
		return CreateDecision{RequiresApproval: true, Status: model.ProductStatusPending}, nil
	}
	return CreateDecision{Status: model.ProductStatusActive}, nil
}

// RequiresUpdateApproval reports whether moving from previous to next needs review.
// A previous price of zero makes any positive next price qualify.
func (p ApprovalPolicy) RequiresUpdateApproval(previous, next decimal.Decimal) bool {
	return next.GreaterThan(previous.Mul(p.IncreaseRatio))
}

// InRange reports whether price lies in [0, PriceCeiling].
func (p ApprovalPolicy) InRange(price decimal.Decimal) bool {
	return !price.IsNegative() && !price.GreaterThan(p.PriceCeiling)
}
