package handlers

import (
	"net/http"

	"go-store-pos/internal/apperr"
	"go-store-pos/internal/audit"

	"github.com/gin-gonic/gin"
)

// GetMovements lists the store's audit log, filtered by ?type=&action=&from=&to=.
func (h *Handler) GetMovements(c *gin.Context) {
	f := audit.HistoryFilter{Type: c.Query("type"), Action: c.Query("action")}
	var ok bool
	if f.From, ok = queryDate(c, "from"); !ok {
		return
	}
	if f.To, ok = queryDate(c, "to"); !ok {
		return
	}

	rows, err := audit.History(c.Request.Context(), h.DB, actor(c).StoreID, f)
	if err != nil {
		h.fail(c, apperr.Infra("movement history", err))
		return
	}
	c.JSON(http.StatusOK, rows)
}
