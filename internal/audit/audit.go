// Package audit appends movement rows for sales and products and answers the
// store-ownership question for sales, which is decided through those rows.
package audit

import (
	"context"
	"time"

	"go-store-pos/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entry describes one mutating action. UserID is mandatory.
type Entry struct {
	UserID    uuid.UUID
	Type      string
	Action    string
	SaleID    *uuid.UUID
	ProductID *uuid.UUID
}

// SaleEntry is shorthand for a movement about a sale.
func SaleEntry(userID, saleID uuid.UUID, action string) Entry {
	return Entry{UserID: userID, Type: models.MovementSale, Action: action, SaleID: &saleID}
}

// ProductEntry is shorthand for a movement about a product.
func ProductEntry(userID, productID uuid.UUID, action string) Entry {
	return Entry{UserID: userID, Type: models.MovementProduct, Action: action, ProductID: &productID}
}

type Recorder struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewRecorder(db *gorm.DB, log *zap.Logger) *Recorder {
	return &Recorder{db: db, log: log.Named("audit"), now: time.Now}
}

// Record appends the movement. A failed write is logged and dropped: it never
// reaches the caller and never undoes the action it documents. The write
// ignores cancellation of ctx since the action has already committed.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	ctx = context.WithoutCancel(ctx)
	m := models.Movement{
		Type:      e.Type,
		Action:    e.Action,
		Date:      r.now(),
		SaleID:    e.SaleID,
		ProductID: e.ProductID,
		UserID:    e.UserID,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		r.log.Error("record movement failed",
			zap.String("type", e.Type),
			zap.String("action", e.Action),
			zap.Stringer("user_id", e.UserID),
			zap.Error(err))
	}
}

// SaleOwnedByStore reports whether some movement ties the sale to a user of the store.
func SaleOwnedByStore(ctx context.Context, db *gorm.DB, storeID, saleID uuid.UUID) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.Movement{}).
		Joins("JOIN users ON users.id = movements.user_id").
		Where("movements.sale_id = ? AND users.store_id = ?", saleID, storeID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
