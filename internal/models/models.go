package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movement types and actions recorded in the audit log.
const (
	MovementSale    = "sale"
	MovementProduct = "product"

	ActionCreation     = "creation"
	ActionModification = "modification"
	ActionDeletion     = "deletion"
)

// Base gives every tenant table a UUID key generated on insert.
type Base struct {
	ID uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// SuperAdmin lives outside the store boundary and provisions stores.
type SuperAdmin struct {
	Username     string `gorm:"primaryKey;size:100" json:"username"`
	PasswordHash string `json:"-"`
}

// Store - the tenant root
type Store struct {
	Base
	Name              string `gorm:"not null" json:"name"`
	Address           string `json:"address"`
	Phone             string `json:"phone"`
	AdministratorName string `json:"administrator_name"`
}

type Category struct {
	Base
	StoreID uuid.UUID `gorm:"type:char(36);not null;index" json:"store_id"`
	Name    string    `gorm:"not null" json:"name"`
}

// Product - the inventory. Category holds a copy of the category name taken
// when the product was saved; it is not a foreign key.
type Product struct {
	Base
	StoreID     uuid.UUID       `gorm:"type:char(36);index" json:"store_id"`
	Name        string          `gorm:"not null" json:"name"`
	PriceSale   int64           `gorm:"not null" json:"price_sale"`
	PriceBuy    int64           `gorm:"not null" json:"price_buy"`
	Stock       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"stock"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Image       []byte          `json:"-"`
	Active      bool            `gorm:"not null" json:"active"`
}

type User struct {
	Base
	StoreID      uuid.UUID `gorm:"type:char(36);index" json:"store_id"`
	Username     string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `gorm:"not null" json:"is_admin"`
	Active       bool      `gorm:"not null" json:"active"`
	Info         *UserInfo `gorm:"foreignKey:UserID" json:"info,omitempty"`
}

// UserInfo - the profile linked one-to-one with a User
type UserInfo struct {
	Base
	UserID     uuid.UUID `gorm:"type:char(36);uniqueIndex;not null" json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	NationalID string    `json:"national_id"`
	BirthDate  time.Time `gorm:"type:date" json:"birth_date"`
}

// Sale - the transaction header. State true means completed, false cancelled.
type Sale struct {
	Base
	StoreID       uuid.UUID        `gorm:"type:char(36);index" json:"store_id"`
	Date          time.Time        `gorm:"type:date;not null;index" json:"date"`
	Items         decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"items"`
	Total         decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"total"`
	PaymentMethod string           `gorm:"not null" json:"payment_method"`
	State         bool             `gorm:"not null" json:"state"`
	Utility       *decimal.Decimal `gorm:"type:decimal(10,2)" json:"utility"`
	Lines         []SaleItem       `gorm:"foreignKey:SaleID" json:"lines,omitempty"`
}

// SaleItem - one product line of a sale
type SaleItem struct {
	Base
	SaleID    uuid.UUID       `gorm:"type:char(36);not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"type:char(36);not null;index" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
}

// Movement - append-only audit row. It is also the link used to decide
// which store a sale belongs to.
type Movement struct {
	Base
	Type      string     `gorm:"size:20;not null;index" json:"type"`
	Action    string     `gorm:"size:20;not null" json:"action"`
	Date      time.Time  `gorm:"not null;index" json:"date"`
	SaleID    *uuid.UUID `gorm:"type:char(36);index" json:"sale_id,omitempty"`
	ProductID *uuid.UUID `gorm:"type:char(36);index" json:"product_id,omitempty"`
	UserID    uuid.UUID  `gorm:"type:char(36);not null;index" json:"user_id"`
}

// All lists the tables in migration order.
func All() []any {
	return []any{
		&SuperAdmin{},
		&Store{},
		&Category{},
		&Product{},
		&User{},
		&UserInfo{},
		&Sale{},
		&SaleItem{},
		&Movement{},
	}
}
