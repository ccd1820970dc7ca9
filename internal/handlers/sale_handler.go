package handlers

import (
	"net/http"
	"strconv"

	"go-store-pos/internal/ledger"

	"github.com/gin-gonic/gin"
)

// ProcessSale records a sale for the logged-in user's store.
func (h *Handler) ProcessSale(c *gin.Context) {
	var req ledger.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sale, err := h.Ledger.CreateSale(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Sale successful!",
		"sale":    sale,
	})
}

// GetSales lists sales, optionally filtered by ?state=true|false&from=&to=.
func (h *Handler) GetSales(c *gin.Context) {
	var f ledger.SaleFilter
	if v := c.Query("state"); v != "" {
		state, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "state must be true or false"})
			return
		}
		f.State = &state
	}
	var ok bool
	if f.From, ok = queryDate(c, "from"); !ok {
		return
	}
	if f.To, ok = queryDate(c, "to"); !ok {
		return
	}

	sales, err := h.Ledger.ListSales(c.Request.Context(), actor(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *Handler) GetSale(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	detail, err := h.Ledger.GetSale(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) EditSale(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req ledger.EditSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c)
		return
	}
	sale, err := h.Ledger.EditSale(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) CancelSale(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Ledger.CancelSale(c.Request.Context(), actor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sale cancelled"})
}
