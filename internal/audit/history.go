package audit

import (
	"context"
	"time"

	"go-store-pos/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const historyLimit = 100

type HistoryFilter struct {
	Type   string
	Action string
	From   *time.Time
	To     *time.Time
}

// HistoryRow is one movement joined with who did it and what it touched.
type HistoryRow struct {
	ID          uuid.UUID        `json:"id"`
	Type        string           `json:"type"`
	Action      string           `json:"action"`
	Date        time.Time        `json:"date"`
	SaleID      *uuid.UUID       `json:"sale_id,omitempty"`
	ProductID   *uuid.UUID       `json:"product_id,omitempty"`
	UserID      uuid.UUID        `json:"user_id"`
	Username    string           `json:"username"`
	UserName    *string          `json:"user_name,omitempty"`
	ProductName *string          `json:"product_name,omitempty"`
	SaleTotal   *decimal.Decimal `json:"sale_total,omitempty"`
}

// History lists the latest movements made by users of the store.
func History(ctx context.Context, db *gorm.DB, storeID uuid.UUID, f HistoryFilter) ([]HistoryRow, error) {
	q := db.WithContext(ctx).Model(&models.Movement{}).
		Select(`movements.id, movements.type, movements.action, movements.date,
			movements.sale_id, movements.product_id, movements.user_id,
			users.username, user_infos.name AS user_name,
			products.name AS product_name, sales.total AS sale_total`).
		Joins("LEFT JOIN users ON movements.user_id = users.id").
		Joins("LEFT JOIN user_infos ON users.id = user_infos.user_id").
		Joins("LEFT JOIN products ON movements.product_id = products.id").
		Joins("LEFT JOIN sales ON movements.sale_id = sales.id").
		Where("users.store_id = ?", storeID)

	if f.Type != "" {
		q = q.Where("movements.type = ?", f.Type)
	}
	if f.Action != "" {
		q = q.Where("movements.action = ?", f.Action)
	}
	if f.From != nil {
		q = q.Where("movements.date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("movements.date <= ?", *f.To)
	}

	var rows []HistoryRow
	err := q.Order("movements.date DESC, movements.id DESC").
		Limit(historyLimit).
		Scan(&rows).Error
	return rows, err
}
