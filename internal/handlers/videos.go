package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/livecommerce/console/internal/backend"
)

// ListVideos reloads the video cache and returns the gallery.
func (h *Handler) ListVideos(c *gin.Context) {
	if _, err := h.Videos.LoadVideos(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Videos.List())
}

func (h *Handler) GenerateVideo(c *gin.Context) {
	var req backend.VideoRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Videos.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// PlayVideo sends a video to the display server, starting it first if needed.
func (h *Handler) PlayVideo(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.Videos.Play(c.Request.Context(), filename); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playing": filename, "display": h.Videos.Status()})
}

func (h *Handler) DeleteVideo(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.Videos.Delete(c.Request.Context(), filename); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Videos.List())
}

// DisplayStatus returns the last known display server status. refresh=true
// checks the server first.
func (h *Handler) DisplayStatus(c *gin.Context) {
	if c.Query("refresh") == "true" {
		// A failed check is reflected in the returned view.
		_ = h.Videos.RefreshStatus(c.Request.Context())
	}
	c.JSON(http.StatusOK, h.Videos.Status())
}

func (h *Handler) StartDisplay(c *gin.Context) {
	if err := h.Videos.StartServer(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Videos.Status())
}

func (h *Handler) StopDisplay(c *gin.Context) {
	if err := h.Videos.StopServer(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Videos.Status())
}
