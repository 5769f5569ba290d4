package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/sse"
	"github.com/livecommerce/console/internal/state"
)

// ListScripts reloads scripts for product_id, or for every product when it is
// missing or 0, and returns the script list view.
func (h *Handler) ListScripts(c *gin.Context) {
	productID := state.AllProducts
	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			abort(c, http.StatusBadRequest, "invalid_id", "Invalid product_id", "")
			return
		}
		productID = id
	}
	if _, err := h.Loader.LoadScripts(c.Request.Context(), productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Renderer.ScriptList())
}

// ScriptView renders the cached script list without calling the backend.
func (h *Handler) ScriptView(c *gin.Context) {
	c.JSON(http.StatusOK, h.Renderer.ScriptList())
}

// EditScript returns the edit form for a script that has no MP3.
func (h *Handler) EditScript(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	form, err := h.Lifecycle.RequestEdit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

func (h *Handler) UpdateScript(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var update backend.ScriptUpdate
	if !bindJSON(c, &update) {
		return
	}
	script, err := h.Lifecycle.UpdateScript(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	h.alert(sse.LevelSuccess, "Script updated")
	c.JSON(http.StatusOK, h.Renderer.ScriptCard(*script))
}

func (h *Handler) DeleteScript(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.API.DeleteScript(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.State.RemoveScript(id)
	h.Lifecycle.Selection().DeselectAll()
	h.alert(sse.LevelSuccess, "Script deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) DuplicateScript(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	script, err := h.API.DuplicateScript(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reloadScripts(c)
	h.alert(sse.LevelSuccess, "Script duplicated")
	c.JSON(http.StatusCreated, h.Renderer.ScriptCard(*script))
}

// GenerateScripts asks the backend AI for new scripts and refreshes the list.
func (h *Handler) GenerateScripts(c *gin.Context) {
	var req backend.GenerateScriptsRequest
	if !bindJSON(c, &req) {
		return
	}
	scripts, err := h.API.GenerateScripts(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reloadScripts(c)
	h.alert(sse.LevelSuccess, "Generated "+strconv.Itoa(len(scripts))+" scripts")
	c.JSON(http.StatusCreated, gin.H{"count": len(scripts), "scripts": scripts})
}

func (h *Handler) CreateManualScript(c *gin.Context) {
	var req backend.ManualScriptRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Vocab.Validate(req.Content); err != nil {
		respondError(c, err)
		return
	}
	script, err := h.API.CreateManualScript(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reloadScripts(c)
	h.alert(sse.LevelSuccess, "Script created")
	c.JSON(http.StatusCreated, h.Renderer.ScriptCard(*script))
}

type validateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
}

// ValidateScript checks title and markup without saving anything.
func (h *Handler) ValidateScript(c *gin.Context) {
	var req validateRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.Validator.ValidateScript(req.Title, req.Content))
}

// reloadScripts refreshes the script cache for the current filter. A failed
// reload only raises an alert; the mutation itself succeeded.
func (h *Handler) reloadScripts(c *gin.Context) {
	if _, err := h.Loader.LoadScripts(c.Request.Context(), h.State.ScriptsFilter()); err != nil {
		h.alert(sse.LevelWarning, "Script list could not be refreshed: "+err.Error())
	}
}
