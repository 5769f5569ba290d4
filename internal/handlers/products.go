package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/sse"
)

// ListProducts reloads the product cache and returns the product grid.
func (h *Handler) ListProducts(c *gin.Context) {
	filter := backend.ProductFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}
	if _, err := h.Loader.LoadProducts(c.Request.Context(), filter); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Renderer.ProductGrid())
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	product, err := h.API.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var in backend.ProductInput
	if !bindJSON(c, &in) {
		return
	}
	product, err := h.API.CreateProduct(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.afterProductChange(c, "Product "+product.Name+" created")
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in backend.ProductInput
	if !bindJSON(c, &in) {
		return
	}
	product, err := h.API.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.afterProductChange(c, "Product "+product.Name+" updated")
	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.API.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.afterProductChange(c, "Product "+strconv.FormatInt(id, 10)+" deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// afterProductChange refreshes the product cache and tells connected operators.
func (h *Handler) afterProductChange(c *gin.Context, message string) {
	if _, err := h.Loader.LoadProducts(c.Request.Context(), backend.ProductFilter{}); err != nil {
		h.alert(sse.LevelWarning, "Product list could not be refreshed: "+err.Error())
	}
	h.alert(sse.LevelSuccess, message)
}

func (h *Handler) alert(level sse.Level, message string) {
	if h.Alerts != nil {
		h.Alerts.Alert(level, message)
	}
}
