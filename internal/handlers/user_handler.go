package handlers

import (
	"net/http"

	"go-store-pos/internal/users"

	"github.com/gin-gonic/gin"
)

// --- Store users (admin) ---

func (h *Handler) GetUsers(c *gin.Context) {
	list, err := h.Users.ListUsers(c.Request.Context(), actor(c), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) AddUser(c *gin.Context) {
	var in users.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badInput(c)
		return
	}
	u, err := h.Users.CreateUser(c.Request.Context(), actor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in users.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badInput(c)
		return
	}
	u, err := h.Users.UpdateUser(c.Request.Context(), actor(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Users.DeactivateUser(c.Request.Context(), actor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deactivated"})
}

// --- Stores (superadmin) ---

func (h *Handler) AddStore(c *gin.Context) {
	var in users.StoreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badInput(c)
		return
	}
	store, err := h.Users.CreateStore(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, store)
}

func (h *Handler) GetStores(c *gin.Context) {
	stores, err := h.Users.ListStores(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

func (h *Handler) AddStoreAdmin(c *gin.Context) {
	var in users.AdminInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badInput(c)
		return
	}
	u, err := h.Users.CreateStoreAdmin(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}
