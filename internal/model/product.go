package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductStatus values
const (
	ProductStatusActive  = "active"
	ProductStatusPending = "pending"
)

// Product is a priced catalog item. A product in the pending status is waiting
// on an ApprovalRequest before it shows up in the active listing.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Status      string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeCreate assigns the id client-side so the memory store and postgres agree.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsPending reports whether the product is waiting on an approval decision.
func (p *Product) IsPending() bool {
	return p.Status == ProductStatusPending
}
