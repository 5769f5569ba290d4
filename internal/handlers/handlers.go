// Package handlers exposes the console API consumed by the operator UI.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/config"
	"github.com/livecommerce/console/internal/dashboard"
	"github.com/livecommerce/console/internal/database"
	"github.com/livecommerce/console/internal/emotion"
	"github.com/livecommerce/console/internal/lifecycle"
	"github.com/livecommerce/console/internal/logging"
	"github.com/livecommerce/console/internal/pollers"
	"github.com/livecommerce/console/internal/sse"
	"github.com/livecommerce/console/internal/state"
	"github.com/livecommerce/console/internal/validation"
	"github.com/livecommerce/console/internal/version"
	"github.com/livecommerce/console/internal/video"
)

// Handler serves the console API.
type Handler struct {
	Settings  config.Settings
	API       *backend.Client
	State     *state.AppState
	Loader    *dashboard.Loader
	Renderer  *dashboard.Renderer
	Lifecycle *lifecycle.Controller
	Videos    *video.Manager
	SSE       *sse.Service
	Alerts    *sse.Alerter
	Jobs      *database.JobService
	Pollers   *pollers.Manager
	Vocab     *emotion.Vocabulary
	Validator *validation.ScriptValidator
}

// APIError is the error body of every console endpoint.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func abort(c *gin.Context, status int, code, message, hint string) {
	c.AbortWithStatusJSON(status, APIError{Code: code, Message: message, Hint: hint})
}

// respondError maps domain and backend errors onto console API errors.
func respondError(c *gin.Context, err error) {
	var (
		verrs  validator.ValidationErrors
		apiErr *backend.APIError
	)
	switch {
	case errors.As(err, &verrs):
		abort(c, http.StatusBadRequest, "invalid_request", validation.RequestErrorMessage(err), "")
	case errors.Is(err, lifecycle.ErrScriptLocked):
		abort(c, http.StatusConflict, "script_locked", err.Error(), "Delete the MP3 to unlock the script")
	case errors.Is(err, lifecycle.ErrAlreadyHasMP3):
		abort(c, http.StatusConflict, "already_has_mp3", err.Error(), "Delete the existing MP3 before generating a new one")
	case errors.Is(err, lifecycle.ErrNothingToGenerate):
		abort(c, http.StatusBadRequest, "nothing_selected", err.Error(), "Select scripts without an MP3")
	case errors.Is(err, emotion.ErrUnknownEmotion), errors.Is(err, emotion.ErrUnbalancedTag):
		abort(c, http.StatusUnprocessableEntity, "invalid_markup", err.Error(), "Use {emotion}text{/emotion} with a known emotion")
	case errors.Is(err, video.ErrInvalidFilename):
		abort(c, http.StatusBadRequest, "invalid_filename", err.Error(), "")
	case errors.Is(err, database.ErrJobNotFound):
		abort(c, http.StatusNotFound, "job_not_found", err.Error(), "")
	case errors.Is(err, backend.ErrNotFound):
		abort(c, http.StatusNotFound, "not_found", errorMessage(err), "")
	case errors.As(err, &apiErr):
		abort(c, http.StatusBadGateway, "backend_error", errorMessage(err), "The content backend rejected the request with status "+strconv.Itoa(apiErr.Status))
	case errors.Is(err, context.DeadlineExceeded):
		abort(c, http.StatusGatewayTimeout, "backend_timeout", "The content backend did not answer in time", "Try again in a moment")
	default:
		logging.ErrorWithComponent(logging.ComponentHandlers, "Request failed", "path", c.FullPath(), "error", err)
		abort(c, http.StatusBadGateway, "backend_unavailable", err.Error(), "Check that the content backend is running")
	}
}

func errorMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			abort(c, http.StatusBadRequest, "invalid_request", validation.RequestErrorMessage(err), "")
		} else {
			abort(c, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON", "")
		}
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		abort(c, http.StatusBadRequest, "invalid_id", "Invalid "+name, "")
		return 0, false
	}
	return id, true
}

// RegisterRoutes mounts the console API. Mutating routes go through mutate.
func (h *Handler) RegisterRoutes(r gin.IRouter, mutate ...gin.HandlerFunc) {
	api := r.Group("/console")
	api.GET("/health", h.Health)
	api.GET("/config", h.Config)
	api.GET("/events", h.Stream)

	write := api.Group("", mutate...)

	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	write.POST("/products", h.CreateProduct)
	write.PUT("/products/:id", h.UpdateProduct)
	write.DELETE("/products/:id", h.DeleteProduct)

	api.GET("/scripts", h.ListScripts)
	api.GET("/scripts/view", h.ScriptView)
	api.GET("/scripts/:id/edit", h.EditScript)
	api.GET("/scripts/:id/mp3", h.MP3Status)
	write.POST("/scripts/validate", h.ValidateScript)
	write.POST("/scripts/generate", h.GenerateScripts)
	write.POST("/scripts/manual", h.CreateManualScript)
	write.PUT("/scripts/:id", h.UpdateScript)
	write.DELETE("/scripts/:id", h.DeleteScript)
	write.POST("/scripts/:id/duplicate", h.DuplicateScript)
	write.POST("/scripts/:id/mp3", h.GenerateMP3)
	write.DELETE("/scripts/:id/mp3", h.DeleteMP3)

	api.GET("/selection", h.GetSelection)
	write.POST("/selection/all", h.SelectAll)
	write.POST("/selection/:id/toggle", h.ToggleSelection)
	write.DELETE("/selection", h.ClearSelection)
	write.POST("/mp3/bulk", h.GenerateBulk)

	api.GET("/watches", h.ListWatches)
	write.DELETE("/watches/:id", h.CancelWatch)

	api.GET("/personas", h.Personas)
	api.GET("/stats", h.Stats)
	api.GET("/emotions", h.Emotions)
	api.GET("/tts/providers", h.TTSProviders)
	api.GET("/tts/emotions/:provider", h.ProviderEmotions)
	write.POST("/tts/test", h.TestTTS)

	api.GET("/videos", h.ListVideos)
	write.POST("/videos", h.GenerateVideo)
	write.POST("/videos/:filename/play", h.PlayVideo)
	write.DELETE("/videos/:filename", h.DeleteVideo)

	api.GET("/display", h.DisplayStatus)
	write.POST("/display/start", h.StartDisplay)
	write.POST("/display/stop", h.StopDisplay)

	api.GET("/jobs", h.ListJobs)
	api.GET("/jobs/:id", h.GetJob)

	api.GET("/pollers", h.ListPollers)
	write.POST("/pollers/:name/trigger", h.TriggerPoller)
}

// Health reports console liveness and whether the backend answered recently.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"version":         version.String(),
		"backend_url":     h.API.BaseURL(),
		"sse_clients":     h.SSE.GetClientCount(),
		"active_watches":  len(h.Lifecycle.Watches()),
		"active_tasks":    h.Pollers.ActiveTasks(),
		"display_online":  h.Videos.Online(),
		"products_loaded": h.State.UpdatedAt("products"),
	})
}

// Config returns the settings the operator UI needs to render forms.
func (h *Handler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"emotions":              h.Vocab.Names(),
		"qualities":             []string{"low", "medium", "high", "enhanced"},
		"video_styles":          []string{"slideshow", "animated_text", "product_showcase"},
		"mp3_poll_interval_ms":  h.Settings.MP3PollInterval.Milliseconds(),
		"mp3_poll_attempts":     h.Settings.MP3PollMaxAttempts,
		"bulk_poll_interval_ms": h.Settings.BulkPollInterval.Milliseconds(),
		"bulk_poll_attempts":    h.Settings.BulkPollMaxAttempts,
		"alert_dismiss_ms":      h.Settings.AlertDismissAfter.Milliseconds(),
		"audio_base_url":        h.API.AudioURL(""),
	})
}

// Stream streams console events until the client disconnects.
func (h *Handler) Stream(c *gin.Context) {
	client := h.SSE.AddClient()
	defer h.SSE.RemoveClient(client.ID)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-client.Done():
			return false
		case ev := <-client.Events:
			c.SSEvent(ev.Type, ev.Data)
			return true
		}
	})
}
