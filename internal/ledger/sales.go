package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-store-pos/internal/apperr"
	"go-store-pos/internal/audit"
	"go-store-pos/internal/auth"
	"go-store-pos/internal/database"
	"go-store-pos/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CancelSale puts every line back into stock and marks the sale cancelled.
func (s *Service) CancelSale(ctx context.Context, actor auth.Actor, saleID uuid.UUID) error {
	if err := s.requireOwned(ctx, actor, saleID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, saleID)
		if err != nil {
			return err
		}
		if !sale.State {
			return apperr.InvalidTransition("sale %s is already cancelled", saleID)
		}
		if err := restoreStock(tx, saleID); err != nil {
			return err
		}
		if err := tx.Model(&sale).Update("state", false).Error; err != nil {
			return apperr.Infra("cancel sale", err)
		}
		return nil
	})
	if err != nil {
		return apperr.Infra("cancel sale", err)
	}

	s.audit.Record(ctx, audit.SaleEntry(actor.UserID, saleID, models.ActionDeletion))
	s.log.Info("sale cancelled", zap.Stringer("sale_id", saleID), zap.Stringer("user_id", actor.UserID))
	return nil
}

// EditSale changes the payment method and, when given, the state. A cancelled
// sale stays cancelled.
func (s *Service) EditSale(ctx context.Context, actor auth.Actor, saleID uuid.UUID, req EditSaleRequest) (models.Sale, error) {
	payment := strings.TrimSpace(req.PaymentMethod)
	if payment == "" {
		return models.Sale{}, apperr.Validation("payment method is required")
	}
	if err := s.requireOwned(ctx, actor, saleID); err != nil {
		return models.Sale{}, err
	}

	var (
		sale     models.Sale
		restored bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sale, err = lockSale(tx, saleID)
		if err != nil {
			return err
		}
		state := sale.State
		if req.State != nil {
			state = *req.State
		}
		if !sale.State && state {
			return apperr.InvalidTransition("sale %s is cancelled and cannot be reactivated", saleID)
		}
		if sale.State && !state {
			if err := restoreStock(tx, saleID); err != nil {
				return err
			}
			restored = true
		}
		err = tx.Model(&sale).Updates(map[string]any{
			"payment_method": payment,
			"state":          state,
		}).Error
		if err != nil {
			return apperr.Infra("update sale", err)
		}
		sale.PaymentMethod = payment
		sale.State = state
		return nil
	})
	if err != nil {
		return models.Sale{}, apperr.Infra("edit sale", err)
	}

	action := models.ActionModification
	if restored {
		action = models.ActionDeletion
	}
	s.audit.Record(ctx, audit.SaleEntry(actor.UserID, saleID, action))
	return sale, nil
}

// SaleLine is a sale item with its product name.
type SaleLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	PriceSale   int64           `json:"price_sale"`
}

type SaleDetail struct {
	Sale  models.Sale `json:"sale"`
	Lines []SaleLine  `json:"lines"`
}

func (s *Service) GetSale(ctx context.Context, actor auth.Actor, saleID uuid.UUID) (SaleDetail, error) {
	if err := s.requireOwned(ctx, actor, saleID); err != nil {
		return SaleDetail{}, err
	}
	db := s.db.WithContext(ctx)

	var d SaleDetail
	if err := db.First(&d.Sale, "id = ?", saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SaleDetail{}, apperr.NotFound("sale %s", saleID)
		}
		return SaleDetail{}, apperr.Infra("load sale", err)
	}
	err := db.Table("sale_items").
		Select("sale_items.product_id, products.name AS product_name, sale_items.quantity, products.price_sale").
		Joins("LEFT JOIN products ON products.id = sale_items.product_id").
		Where("sale_items.sale_id = ?", saleID).
		Scan(&d.Lines).Error
	if err != nil {
		return SaleDetail{}, apperr.Infra("load sale lines", err)
	}
	return d, nil
}

type SaleFilter struct {
	State *bool
	From  *time.Time
	To    *time.Time
}

// ListSales returns the store's sales, newest first.
func (s *Service) ListSales(ctx context.Context, actor auth.Actor, f SaleFilter) ([]models.Sale, error) {
	db := s.db.WithContext(ctx)
	q := db.Where("id IN (?)", database.StoreSaleIDs(db, actor.StoreID))
	if f.State != nil {
		q = q.Where("state = ?", *f.State)
	}
	if f.From != nil {
		q = q.Where("date >= ?", dateOf(*f.From))
	}
	if f.To != nil {
		q = q.Where("date <= ?", dateOf(*f.To))
	}

	var sales []models.Sale
	if err := q.Order("date DESC").Find(&sales).Error; err != nil {
		return nil, apperr.Infra("list sales", err)
	}
	return sales, nil
}

// requireOwned treats a missing sale and another store's sale the same way.
func (s *Service) requireOwned(ctx context.Context, actor auth.Actor, saleID uuid.UUID) error {
	owned, err := audit.SaleOwnedByStore(ctx, s.db, actor.StoreID, saleID)
	if err != nil {
		return apperr.Infra("check sale owner", err)
	}
	if !owned {
		return apperr.NotFound("sale %s", saleID)
	}
	return nil
}

func lockSale(tx *gorm.DB, saleID uuid.UUID) (models.Sale, error) {
	var sale models.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, "id = ?", saleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sale, apperr.NotFound("sale %s", saleID)
		}
		return sale, apperr.Infra("load sale", err)
	}
	return sale, nil
}

func restoreStock(tx *gorm.DB, saleID uuid.UUID) error {
	var lines []models.SaleItem
	if err := tx.Where("sale_id = ?", saleID).Find(&lines).Error; err != nil {
		return apperr.Infra("load sale items", err)
	}
	for _, l := range lines {
		err := tx.Model(&models.Product{}).
			Where("id = ?", l.ProductID).
			Update("stock", gorm.Expr("stock + ?", l.Quantity)).Error
		if err != nil {
			return apperr.Infra("restore stock", err)
		}
	}
	return nil
}
