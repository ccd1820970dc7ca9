// Package handlers exposes the services over HTTP with gin.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go-store-pos/internal/apperr"
	"go-store-pos/internal/auth"
	"go-store-pos/internal/catalog"
	"go-store-pos/internal/database"
	"go-store-pos/internal/ledger"
	"go-store-pos/internal/middleware"
	"go-store-pos/internal/notify"
	"go-store-pos/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LowStockReporter sends the multi-product low-stock email.
type LowStockReporter interface {
	NotifyLowStockReport(ctx context.Context, items []notify.LowStockItem, store, email string) bool
}

// Assistant answers free-text questions about a store.
type Assistant interface {
	Ask(ctx context.Context, actor auth.Actor, message string) (string, error)
}

type Handler struct {
	DB        *gorm.DB
	Users     *users.Service
	Catalog   *catalog.Service
	Ledger    *ledger.Service
	Reports   *database.Reports
	Notifier  LowStockReporter
	Assistant Assistant // nil when no API key is configured
	Log       *zap.Logger
}

// fail writes err with the status of its kind. Infrastructure details stay in the log.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badInput(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
}

// actor is set by the auth middleware on every store route.
func actor(c *gin.Context) auth.Actor {
	a, _ := middleware.Actor(c)
	return a
}

func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}

// queryInt returns 0 when the parameter is missing or not a number.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

// queryDate parses a YYYY-MM-DD parameter; a missing one is nil.
func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be a date (YYYY-MM-DD)"})
		return nil, false
	}
	return &t, true
}
