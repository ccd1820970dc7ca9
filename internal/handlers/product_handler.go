package handlers

import (
	"encoding/base64"
	"net/http"

	"go-store-pos/internal/catalog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxImageBytes = 2 << 20

// productRequest is the product body; the image travels base64 encoded.
type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	PriceSale   int64           `json:"price_sale"`
	PriceBuy    int64           `json:"price_buy"`
	Stock       decimal.Decimal `json:"stock"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

func bindProduct(c *gin.Context) (catalog.ProductInput, bool) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c)
		return catalog.ProductInput{}, false
	}
	in := catalog.ProductInput{
		Name:        req.Name,
		PriceSale:   req.PriceSale,
		PriceBuy:    req.PriceBuy,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	}
	if req.Image != "" {
		img, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil || len(img) > maxImageBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image must be base64 and at most 2 MB"})
			return catalog.ProductInput{}, false
		}
		in.Image = img
	}
	return in, true
}

// --- GET: List products, optional ?search= ---
func (h *Handler) GetProducts(c *gin.Context) {
	list, err := h.Catalog.ListProducts(c.Request.Context(), actor(c), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetProductImage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	img, err := h.Catalog.ProductImage(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(img) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(img), img)
}

func (h *Handler) AddProduct(c *gin.Context) {
	in, ok := bindProduct(c)
	if !ok {
		return
	}
	p, err := h.Catalog.CreateProduct(c.Request.Context(), actor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	in, ok := bindProduct(c)
	if !ok {
		return
	}
	p, err := h.Catalog.UpdateProduct(c.Request.Context(), actor(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": p})
}

// DeleteProduct deactivates the product; past sales keep referencing it.
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Catalog.DeleteProduct(c.Request.Context(), actor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// --- Categories ---

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) GetCategories(c *gin.Context) {
	cats, err := h.Catalog.ListCategories(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (h *Handler) AddCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c)
		return
	}
	cat, err := h.Catalog.CreateCategory(c.Request.Context(), actor(c), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}
