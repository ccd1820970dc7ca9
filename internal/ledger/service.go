// Package ledger records sales against product stock. A sale, its lines and
// the stock changes commit together; alerts and audit rows follow the commit.
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
	"go-store-pos/internal/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Alerts receives low-stock alerts once a sale has committed.
type Alerts interface {
	Schedule(a notify.Alert)
}

// Recorder appends audit movements.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry)
}

type Options struct {
	LowStockThreshold int
	// StrictStock rejects lines that ask for more than the product has.
	StrictStock bool
}

type Service struct {
	db        *gorm.DB
	alerts    Alerts
	audit     Recorder
	threshold decimal.Decimal
	strict    bool
	log       *zap.Logger
	now       func() time.Time
}

func NewService(db *gorm.DB, alerts Alerts, recorder Recorder, opts Options, log *zap.Logger) *Service {
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = 10
	}
	return &Service{
		db:        db,
		alerts:    alerts,
		audit:     recorder,
		threshold: decimal.NewFromInt(int64(opts.LowStockThreshold)),
		strict:    opts.StrictStock,
		log:       log.Named("ledger"),
		now:       time.Now,
	}
}

type LineItem struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CreateSaleRequest struct {
	Items         []LineItem `json:"items"`
	PaymentMethod string     `json:"payment_method"`
}

// EditSaleRequest changes a sale. A nil State keeps the current one.
type EditSaleRequest struct {
	PaymentMethod string `json:"payment_method"`
	State         *bool  `json:"state"`
}

// CreateSale records a sale and takes its quantities out of stock.
func (s *Service) CreateSale(ctx context.Context, actor auth.Actor, req CreateSaleRequest) (models.Sale, error) {
	if len(req.Items) == 0 {
		return models.Sale{}, apperr.Validation("a sale needs at least one item")
	}
	payment := strings.TrimSpace(req.PaymentMethod)
	if payment == "" {
		return models.Sale{}, apperr.Validation("payment method is required")
	}

	total, items := decimal.Zero, decimal.Zero
	for i, it := range req.Items {
		if it.ProductID == uuid.Nil {
			return models.Sale{}, apperr.Validation("item %d has no product", i+1)
		}
		if !it.Quantity.IsPositive() {
			return models.Sale{}, apperr.Validation("item %d quantity must be positive", i+1)
		}
		if it.Subtotal.IsNegative() {
			return models.Sale{}, apperr.Validation("item %d subtotal cannot be negative", i+1)
		}
		total = total.Add(it.Subtotal)
		items = items.Add(it.Quantity)
	}

	sale := models.Sale{
		StoreID:       actor.StoreID,
		Date:          dateOf(s.now()),
		Items:         items,
		Total:         total,
		PaymentMethod: payment,
		State:         true,
	}
	var pending []notify.Alert

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var store models.Store
		if err := tx.First(&store, "id = ?", actor.StoreID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("store %s", actor.StoreID)
			}
			return apperr.Infra("load store", err)
		}

		if err := tx.Create(&sale).Error; err != nil {
			return apperr.Infra("insert sale", err)
		}

		utility := decimal.Zero
		for _, it := range req.Items {
			line := models.SaleItem{SaleID: sale.ID, ProductID: it.ProductID, Quantity: it.Quantity}
			if err := tx.Create(&line).Error; err != nil {
				return apperr.Infra("insert sale item", err)
			}

			p, err := s.decrement(tx, actor.StoreID, it)
			if err != nil {
				return err
			}
			margin := decimal.NewFromInt(p.PriceSale - p.PriceBuy)
			utility = utility.Add(it.Quantity.Mul(margin))

			if p.Stock.LessThan(s.threshold) {
				pending = appendAlert(pending, notify.Alert{
					ProductID: p.ID,
					Product:   p.Name,
					Stock:     p.Stock.Truncate(0),
					Store:     store.Name,
				})
			}
		}

		if err := tx.Model(&sale).Update("utility", utility).Error; err != nil {
			return apperr.Infra("store utility", err)
		}
		sale.Utility = &utility
		return nil
	})
	if err != nil {
		return models.Sale{}, apperr.Infra("create sale", err)
	}

	s.scheduleAlerts(ctx, actor, pending)
	s.audit.Record(ctx, audit.SaleEntry(actor.UserID, sale.ID, models.ActionCreation))

	s.log.Info("sale created",
		zap.Stringer("sale_id", sale.ID),
		zap.Stringer("store_id", actor.StoreID),
		zap.String("total", sale.Total.String()),
		zap.Int("alerts", len(pending)))
	return sale, nil
}

// decrement locks the product row, subtracts the quantity and returns the
// row as it stands after the update.
func (s *Service) decrement(tx *gorm.DB, storeID uuid.UUID, it LineItem) (models.Product, error) {
	var p models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND store_id = ?", it.ProductID, storeID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, apperr.NotFound("product %s", it.ProductID)
		}
		return p, apperr.Infra("lock product", err)
	}
	if s.strict && p.Stock.LessThan(it.Quantity) {
		return p, apperr.Validation("not enough stock for %s: have %s, need %s", p.Name, p.Stock, it.Quantity)
	}

	if err := tx.Model(&models.Product{}).
		Where("id = ?", p.ID).
		Update("stock", gorm.Expr("stock - ?", it.Quantity)).Error; err != nil {
		return p, apperr.Infra("decrement stock", err)
	}
	if err := tx.Select("stock").First(&p, "id = ?", p.ID).Error; err != nil {
		return p, apperr.Infra("read stock", err)
	}
	return p, nil
}

// appendAlert keeps one alert per product id, carrying its latest stock.
// Names are not unique, so two products called alike still get one each.
func appendAlert(alerts []notify.Alert, a notify.Alert) []notify.Alert {
	for i := range alerts {
		if alerts[i].ProductID == a.ProductID {
			alerts[i].Stock = a.Stock
			return alerts
		}
	}
	return append(alerts, a)
}

func (s *Service) scheduleAlerts(ctx context.Context, actor auth.Actor, alerts []notify.Alert) {
	if len(alerts) == 0 {
		return
	}
	// An empty email lets the notifier use its fallback recipient.
	email, err := database.ProfileEmail(ctx, s.db, actor.UserID)
	if err != nil {
		s.log.Warn("profile email lookup failed", zap.Stringer("user_id", actor.UserID), zap.Error(err))
	}
	for _, a := range alerts {
		a.Email = email
		s.alerts.Schedule(a)
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
