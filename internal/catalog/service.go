// Package catalog manages a store's categories and products.
package catalog

import (
	"context"
	"errors"
	"strings"

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
)

// Stock status labels shown in product listings.
const (
	StatusAvailable = "available"
	StatusLow       = "low"
	StatusOut       = "out"
)

type Alerts interface {
	Schedule(a notify.Alert)
}

type Recorder interface {
	Record(ctx context.Context, e audit.Entry)
}

type Service struct {
	db        *gorm.DB
	alerts    Alerts
	audit     Recorder
	threshold decimal.Decimal
	log       *zap.Logger
}

func NewService(db *gorm.DB, alerts Alerts, recorder Recorder, lowStockThreshold int, log *zap.Logger) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = 10
	}
	return &Service{
		db:        db,
		alerts:    alerts,
		audit:     recorder,
		threshold: decimal.NewFromInt(int64(lowStockThreshold)),
		log:       log.Named("catalog"),
	}
}

// --- Categories ---

func (s *Service) CreateCategory(ctx context.Context, actor auth.Actor, name string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, apperr.Validation("category name is required")
	}

	var n int64
	err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("store_id = ? AND LOWER(name) = ?", actor.StoreID, strings.ToLower(name)).
		Count(&n).Error
	if err != nil {
		return models.Category{}, apperr.Infra("check category", err)
	}
	if n > 0 {
		return models.Category{}, apperr.Validation("category %q already exists", name)
	}

	c := models.Category{StoreID: actor.StoreID, Name: name}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return models.Category{}, apperr.Infra("create category", err)
	}
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context, actor auth.Actor) ([]models.Category, error) {
	var cats []models.Category
	err := s.db.WithContext(ctx).
		Where("store_id = ?", actor.StoreID).
		Order("name").
		Find(&cats).Error
	if err != nil {
		return nil, apperr.Infra("list categories", err)
	}
	return cats, nil
}

// --- Products ---

// ProductInput is the editable part of a product.
type ProductInput struct {
	Name        string          `json:"name"`
	PriceSale   int64           `json:"price_sale"`
	PriceBuy    int64           `json:"price_buy"`
	Stock       decimal.Decimal `json:"stock"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Description string          `json:"description"`
	// Image replaces the stored image when non-empty.
	Image []byte `json:"-"`
}

func (in ProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return apperr.Validation("product name is required")
	case strings.TrimSpace(in.Description) == "":
		return apperr.Validation("product description is required")
	case in.CategoryID == uuid.Nil:
		return apperr.Validation("product category is required")
	case in.PriceSale < 0 || in.PriceBuy < 0:
		return apperr.Validation("prices cannot be negative")
	case in.Stock.IsNegative():
		return apperr.Validation("stock cannot be negative")
	}
	return nil
}

// categoryName resolves the label copied onto the product.
func (s *Service) categoryName(ctx context.Context, storeID, categoryID uuid.UUID) (string, error) {
	var c models.Category
	err := s.db.WithContext(ctx).First(&c, "id = ? AND store_id = ?", categoryID, storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.NotFound("category %s", categoryID)
	}
	if err != nil {
		return "", apperr.Infra("load category", err)
	}
	return c.Name, nil
}

func (s *Service) CreateProduct(ctx context.Context, actor auth.Actor, in ProductInput) (models.Product, error) {
	if err := in.validate(); err != nil {
		return models.Product{}, err
	}
	label, err := s.categoryName(ctx, actor.StoreID, in.CategoryID)
	if err != nil {
		return models.Product{}, err
	}

	p := models.Product{
		StoreID:     actor.StoreID,
		Name:        strings.TrimSpace(in.Name),
		PriceSale:   in.PriceSale,
		PriceBuy:    in.PriceBuy,
		Stock:       in.Stock,
		Category:    label,
		Description: strings.TrimSpace(in.Description),
		Image:       in.Image,
		Active:      true,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return models.Product{}, apperr.Infra("create product", err)
	}

	s.audit.Record(ctx, audit.ProductEntry(actor.UserID, p.ID, models.ActionCreation))
	return p, nil
}

// UpdateProduct overwrites the product. A stock edit that lowers stock under
// the threshold schedules an alert, independent of any sale.
func (s *Service) UpdateProduct(ctx context.Context, actor auth.Actor, id uuid.UUID, in ProductInput) (models.Product, error) {
	if err := in.validate(); err != nil {
		return models.Product{}, err
	}
	p, err := s.product(ctx, actor.StoreID, id)
	if err != nil {
		return models.Product{}, err
	}
	label, err := s.categoryName(ctx, actor.StoreID, in.CategoryID)
	if err != nil {
		return models.Product{}, err
	}

	oldStock := p.Stock
	p.Name = strings.TrimSpace(in.Name)
	p.PriceSale = in.PriceSale
	p.PriceBuy = in.PriceBuy
	p.Stock = in.Stock
	p.Category = label
	p.Description = strings.TrimSpace(in.Description)

	updates := map[string]any{
		"name":        p.Name,
		"price_sale":  p.PriceSale,
		"price_buy":   p.PriceBuy,
		"stock":       p.Stock,
		"category":    p.Category,
		"description": p.Description,
	}
	if len(in.Image) > 0 {
		updates["image"] = in.Image
		p.Image = in.Image
	}
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
		return models.Product{}, apperr.Infra("update product", err)
	}

	if in.Stock.LessThan(oldStock) && in.Stock.LessThan(s.threshold) {
		s.scheduleAlert(ctx, actor, p)
	}
	s.audit.Record(ctx, audit.ProductEntry(actor.UserID, p.ID, models.ActionModification))
	return p, nil
}

func (s *Service) scheduleAlert(ctx context.Context, actor auth.Actor, p models.Product) {
	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, "id = ?", p.StoreID).Error; err != nil {
		s.log.Warn("low stock alert skipped, store lookup failed", zap.Stringer("product_id", p.ID), zap.Error(err))
		return
	}
	email, err := database.ProfileEmail(ctx, s.db, actor.UserID)
	if err != nil {
		s.log.Warn("profile email lookup failed", zap.Stringer("user_id", actor.UserID), zap.Error(err))
	}
	s.alerts.Schedule(notify.Alert{
		ProductID: p.ID,
		Product:   p.Name,
		Stock:     p.Stock.Truncate(0),
		Store:     store.Name,
		Email:     email,
	})
}

// DeleteProduct hides the product. Sales keep referring to it.
func (s *Service) DeleteProduct(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	p, err := s.product(ctx, actor.StoreID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&p).Update("active", false).Error; err != nil {
		return apperr.Infra("deactivate product", err)
	}
	s.audit.Record(ctx, audit.ProductEntry(actor.UserID, p.ID, models.ActionDeletion))
	return nil
}

// ProductView is a product with its stock status.
type ProductView struct {
	models.Product
	Status string `json:"status"`
}

type ProductList struct {
	Products []ProductView `json:"products"`
	Low      int           `json:"low"`
	Out      int           `json:"out"`
}

// ListProducts returns active products, optionally filtered by name or category.
func (s *Service) ListProducts(ctx context.Context, actor auth.Actor, search string) (ProductList, error) {
	q := s.db.WithContext(ctx).
		Omit("image").
		Where("store_id = ? AND active = ?", actor.StoreID, true)
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(category) LIKE ?)", like, like)
	}

	var products []models.Product
	if err := q.Order("name").Find(&products).Error; err != nil {
		return ProductList{}, apperr.Infra("list products", err)
	}

	list := ProductList{Products: make([]ProductView, 0, len(products))}
	for _, p := range products {
		status := s.Status(p.Stock)
		switch status {
		case StatusLow:
			list.Low++
		case StatusOut:
			list.Out++
		}
		list.Products = append(list.Products, ProductView{Product: p, Status: status})
	}
	return list, nil
}

// Status classifies a stock level.
func (s *Service) Status(stock decimal.Decimal) string {
	switch {
	case stock.Sign() <= 0:
		return StatusOut
	case stock.LessThan(s.threshold):
		return StatusLow
	default:
		return StatusAvailable
	}
}

// ProductImage returns the stored image bytes, which may be empty.
func (s *Service) ProductImage(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]byte, error) {
	p, err := s.product(ctx, actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	return p.Image, nil
}

func (s *Service) product(ctx context.Context, storeID, id uuid.UUID) (models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).First(&p, "id = ? AND store_id = ?", id, storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, apperr.NotFound("product %s", id)
	}
	if err != nil {
		return p, apperr.Infra("load product", err)
	}
	return p, nil
}
