package handlers

import (
	"net/http"

	"go-store-pos/internal/apperr"
	"go-store-pos/internal/database"
	"go-store-pos/internal/models"
	"go-store-pos/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// report runs a store-scoped query and writes its result.
func report[T any](h *Handler, c *gin.Context, op string, run func(storeID uuid.UUID) (T, error)) {
	out, err := run(actor(c).StoreID)
	if err != nil {
		h.fail(c, apperr.Infra(op, err))
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- GET: /api/reports/dashboard ---
func (h *Handler) GetDashboard(c *gin.Context) {
	report(h, c, "dashboard", func(store uuid.UUID) (database.Dashboard, error) {
		return h.Reports.DashboardSummary(c.Request.Context(), store)
	})
}

// ?days=7
func (h *Handler) GetSalesPerDay(c *gin.Context) {
	report(h, c, "sales per day", func(store uuid.UUID) ([]database.Point, error) {
		return h.Reports.SalesPerDay(c.Request.Context(), store, queryInt(c, "days"))
	})
}

// ?months=6
func (h *Handler) GetSalesPerMonth(c *gin.Context) {
	report(h, c, "sales per month", func(store uuid.UUID) ([]database.Point, error) {
		return h.Reports.SalesPerMonth(c.Request.Context(), store, queryInt(c, "months"))
	})
}

func (h *Handler) GetTopProducts(c *gin.Context) {
	report(h, c, "top products", func(store uuid.UUID) ([]database.ProductSales, error) {
		return h.Reports.TopProducts(c.Request.Context(), store, queryInt(c, "limit"))
	})
}

func (h *Handler) GetSalesByCategory(c *gin.Context) {
	report(h, c, "sales by category", func(store uuid.UUID) ([]database.CategorySales, error) {
		return h.Reports.SalesByCategory(c.Request.Context(), store)
	})
}

func (h *Handler) GetInventoryStatus(c *gin.Context) {
	report(h, c, "inventory status", func(store uuid.UUID) (database.InventoryStatus, error) {
		return h.Reports.InventoryStatus(c.Request.Context(), store)
	})
}

func (h *Handler) GetPeriodComparison(c *gin.Context) {
	report(h, c, "period comparison", func(store uuid.UUID) (database.Comparison, error) {
		return h.Reports.PeriodComparison(c.Request.Context(), store)
	})
}

// ?product_id=<uuid>&days=7
func (h *Handler) GetProductSales(c *gin.Context) {
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	report(h, c, "product sales", func(store uuid.UUID) ([]database.Point, error) {
		return h.Reports.ProductSalesByDate(c.Request.Context(), store, productID, queryInt(c, "days"))
	})
}

// SendLowStockReport emails the caller one summary of every low-stock product.
func (h *Handler) SendLowStockReport(c *gin.Context) {
	ctx := c.Request.Context()
	a := actor(c)

	low, err := h.Reports.LowStock(ctx, a.StoreID, 0)
	if err != nil {
		h.fail(c, apperr.Infra("low stock", err))
		return
	}
	if len(low) == 0 {
		c.JSON(http.StatusOK, gin.H{"sent": false, "products": 0})
		return
	}

	var store models.Store
	if err := h.DB.WithContext(ctx).First(&store, "id = ?", a.StoreID).Error; err != nil {
		h.fail(c, apperr.Infra("load store", err))
		return
	}
	email, err := database.ProfileEmail(ctx, h.DB, a.UserID)
	if err != nil {
		h.fail(c, apperr.Infra("load profile email", err))
		return
	}

	items := make([]notify.LowStockItem, 0, len(low))
	for _, it := range low {
		items = append(items, notify.LowStockItem{Name: it.Name, Stock: it.Stock})
	}
	sent := h.Notifier.NotifyLowStockReport(ctx, items, store.Name, email)
	c.JSON(http.StatusOK, gin.H{"sent": sent, "products": len(items)})
}
