package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/emotion"
)

// Personas reloads both persona lists and returns the picker, highlighting
// voices that suit script_id when given.
func (h *Handler) Personas(c *gin.Context) {
	var scriptID int64
	if raw := c.Query("script_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			abort(c, http.StatusBadRequest, "invalid_id", "Invalid script_id", "")
			return
		}
		scriptID = id
	}

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		_, err := h.Loader.LoadScriptPersonas(ctx)
		return err
	})
	g.Go(func() error {
		_, err := h.Loader.LoadVoicePersonas(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Renderer.PersonaPicker(scriptID))
}

// Stats refreshes the dashboard counters. When the backend is unreachable the
// last cached counters are returned with a 200 if there are any.
func (h *Handler) Stats(c *gin.Context) {
	if _, err := h.Loader.LoadStats(c.Request.Context()); err != nil {
		if view := h.Renderer.Stats(); view.Available {
			c.JSON(http.StatusOK, gin.H{"stats": view, "stale": true})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": h.Renderer.Stats(), "stale": false})
}

type emotionView struct {
	Name string `json:"name"`
	emotion.Style
}

// Emotions lists the markup vocabulary with its display styles.
func (h *Handler) Emotions(c *gin.Context) {
	names := h.Vocab.Names()
	out := make([]emotionView, 0, len(names))
	for _, name := range names {
		style, _ := h.Vocab.Style(name)
		style.TTSStyle = h.Vocab.TTSStyle(name)
		out = append(out, emotionView{Name: name, Style: style})
	}
	c.JSON(http.StatusOK, gin.H{"emotions": out})
}

func (h *Handler) TTSProviders(c *gin.Context) {
	providers, err := h.API.TTSProviders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

func (h *Handler) ProviderEmotions(c *gin.Context) {
	provider := c.Param("provider")
	emotions, err := h.API.ProviderEmotions(c.Request.Context(), provider)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": provider, "emotions": emotions})
}

// TestTTS synthesises a sample and returns an absolute URL for playback.
func (h *Handler) TestTTS(c *gin.Context) {
	var req backend.TTSTestRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.Vocab.Has(req.Emotion) {
		req.Emotion = h.Vocab.TTSStyle(req.Emotion)
	}
	res, err := h.API.TestTTS(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.AudioURL != "" && res.AudioURL[0] == '/' {
		res.AudioURL = h.API.BaseURL() + res.AudioURL
	}
	c.JSON(http.StatusOK, res)
}
