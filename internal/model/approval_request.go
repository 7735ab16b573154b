package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalReason enum constants
const (
	ApprovalReasonCreateProduct = "CREATE_PRODUCT"
	ApprovalReasonPriceIncrease = "PRICE_INCREASE"
)

// ApprovalRequest is a queue entry for a product change awaiting review.
// It exists only while the decision is outstanding: approving or rejecting deletes it.
type ApprovalRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"product_id"` // at most one request per product
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	Reason    string    `gorm:"type:varchar(30);not null" json:"reason"` // CREATE_PRODUCT, PRICE_INCREASE
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *ApprovalRequest) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
