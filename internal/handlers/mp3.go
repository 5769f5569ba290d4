package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/livecommerce/console/internal/lifecycle"
)

type mp3Request struct {
	VoicePersonaID int64    `json:"voice_persona_id" binding:"required,gt=0"`
	Quality        string   `json:"quality" binding:"required,oneof=low medium high enhanced"`
	TTSProvider    string   `json:"tts_provider" binding:"omitempty,oneof=edge google elevenlabs basic"`
	Emotion        string   `json:"emotion" binding:"omitempty,max=50"`
	Intensity      *float64 `json:"intensity" binding:"omitempty,min=0.5,max=2"`
}

func (r mp3Request) options() lifecycle.MP3Options {
	return lifecycle.MP3Options{
		VoicePersonaID: r.VoicePersonaID,
		Quality:        r.Quality,
		TTSProvider:    r.TTSProvider,
		Emotion:        r.Emotion,
		Intensity:      r.Intensity,
	}
}

type bulkRequest struct {
	mp3Request
	ScriptIDs []int64 `json:"script_ids" binding:"omitempty,dive,gt=0"`
}

// GenerateMP3 submits one script and answers with the watch that tracks it.
func (h *Handler) GenerateMP3(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req mp3Request
	if !bindJSON(c, &req) {
		return
	}
	w, err := h.Lifecycle.GenerateMP3(c.Request.Context(), id, req.options())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, w.View())
}

// GenerateBulk submits script_ids, or the current selection when empty.
func (h *Handler) GenerateBulk(c *gin.Context) {
	var req bulkRequest
	if !bindJSON(c, &req) {
		return
	}
	w, err := h.Lifecycle.GenerateBulk(c.Request.Context(), req.ScriptIDs, req.options())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, w.View())
}

func (h *Handler) DeleteMP3(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.Lifecycle.DeleteMP3(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type mp3FileView struct {
	ID       int64   `json:"id"`
	Filename string  `json:"filename"`
	Status   string  `json:"status"`
	Provider string  `json:"provider,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	AudioURL string  `json:"audio_url"`
}

// MP3Status reports the backend's MP3 status for a script, with playable
// URLs and the console-side watch when one is running.
func (h *Handler) MP3Status(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	status, err := h.API.MP3Status(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	files := make([]mp3FileView, 0, len(status.Files))
	for _, f := range status.Files {
		files = append(files, mp3FileView{
			ID:       f.ID,
			Filename: f.Filename,
			Status:   f.Status,
			Provider: f.Provider,
			Duration: f.Duration,
			AudioURL: h.API.AudioURL(f.Filename),
		})
	}
	resp := gin.H{
		"script_id":    status.ScriptID,
		"script_title": status.ScriptTitle,
		"has_mp3":      status.HasMP3,
		"mp3_files":    files,
	}
	if w, ok := h.Lifecycle.Watching(id); ok {
		resp["watch"] = w.View()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetSelection(c *gin.Context) {
	sel := h.Lifecycle.Selection()
	c.JSON(http.StatusOK, gin.H{"script_ids": sel.IDs(), "count": sel.Len()})
}

func (h *Handler) ToggleSelection(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	selected := h.Lifecycle.Selection().Toggle(id)
	sel := h.Lifecycle.Selection()
	c.JSON(http.StatusOK, gin.H{"script_id": id, "selected": selected, "script_ids": sel.IDs(), "count": sel.Len()})
}

// SelectAll selects every cached script that has no MP3.
func (h *Handler) SelectAll(c *gin.Context) {
	ids := h.Lifecycle.SelectAllEligible()
	c.JSON(http.StatusOK, gin.H{"script_ids": ids, "count": len(ids)})
}

func (h *Handler) ClearSelection(c *gin.Context) {
	h.Lifecycle.Selection().DeselectAll()
	c.JSON(http.StatusOK, gin.H{"script_ids": []int64{}, "count": 0})
}

func (h *Handler) ListWatches(c *gin.Context) {
	watches := h.Lifecycle.Watches()
	views := make([]lifecycle.WatchView, 0, len(watches))
	for _, w := range watches {
		views = append(views, w.View())
	}
	c.JSON(http.StatusOK, gin.H{"watches": views})
}

func (h *Handler) CancelWatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_id", "Invalid watch id", "")
		return
	}
	if !h.Lifecycle.CancelWatch(id) {
		abort(c, http.StatusNotFound, "watch_not_found", "No running watch with that id", "It may have finished already")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": id})
}
