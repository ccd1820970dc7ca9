package handlers

import (
	"net/http"

	"go-store-pos/internal/auth"
	"go-store-pos/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Routes mounts every endpoint on r. The register route is only mounted
// when allowRegistration is set.
func (h *Handler) Routes(r *gin.Engine, tokens *auth.Tokens, allowRegistration bool) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })
	r.POST("/login", h.Login)
	if allowRegistration {
		r.POST("/register", h.Register)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokens))

	super := api.Group("/super")
	super.Use(middleware.RequireSuperAdmin())
	{
		super.POST("/stores", h.AddStore)
		super.GET("/stores", h.GetStores)
		super.POST("/admins", h.AddStoreAdmin)
	}

	// STAFF & ADMIN
	staff := api.Group("")
	staff.Use(middleware.RequireStoreUser())
	{
		staff.GET("/products", h.GetProducts)
		staff.GET("/products/:id/image", h.GetProductImage)
		staff.GET("/categories", h.GetCategories)

		staff.POST("/sales", h.ProcessSale)
		staff.GET("/sales", h.GetSales)
		staff.GET("/sales/:id", h.GetSale)
		staff.PUT("/sales/:id", h.EditSale)
		staff.POST("/sales/:id/cancel", h.CancelSale)

		staff.GET("/movements", h.GetMovements)

		staff.GET("/reports/dashboard", h.GetDashboard)
		staff.GET("/reports/sales-per-day", h.GetSalesPerDay)
		staff.GET("/reports/sales-per-month", h.GetSalesPerMonth)
		staff.GET("/reports/top-products", h.GetTopProducts)
		staff.GET("/reports/sales-by-category", h.GetSalesByCategory)
		staff.GET("/reports/inventory-status", h.GetInventoryStatus)
		staff.GET("/reports/period-comparison", h.GetPeriodComparison)
		staff.GET("/reports/product-sales", h.GetProductSales)
	}

	// ADMIN ONLY
	admin := api.Group("")
	admin.Use(middleware.RequireStoreUser(), middleware.RequireAdmin())
	{
		admin.POST("/products", h.AddProduct)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)
		admin.POST("/categories", h.AddCategory)

		admin.GET("/users", h.GetUsers)
		admin.POST("/users", h.AddUser)
		admin.PUT("/users/:id", h.UpdateUser)
		admin.POST("/users/:id/deactivate", h.DeactivateUser)

		admin.POST("/reports/low-stock-email", h.SendLowStockReport)
		admin.POST("/ask", h.AskAI)
	}
}
