package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/livecommerce/console/internal/database"
)

type jobView struct {
	database.GenerationJob
	Finished bool `json:"finished"`
}

func newJobView(job database.GenerationJob) jobView {
	return jobView{GenerationJob: job, Finished: job.Finished()}
}

// ListJobs returns recent MP3 generation jobs, newest first.
func (h *Handler) ListJobs(c *gin.Context) {
	filter := database.JobFilter{
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			abort(c, http.StatusBadRequest, "invalid_limit", "limit must be a positive number", "")
			return
		}
		filter.Limit = limit
	}

	jobs, err := h.Jobs.ListJobs(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": views, "count": len(views)})
}

func (h *Handler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_id", "Invalid job id", "")
		return
	}
	job, err := h.Jobs.GetJob(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newJobView(*job))
}

type pollerView struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// ListPollers reports the background refresh loops.
func (h *Handler) ListPollers(c *gin.Context) {
	names := h.Pollers.ListPollers()
	views := make([]pollerView, 0, len(names))
	for _, name := range names {
		p, ok := h.Pollers.GetPoller(name)
		views = append(views, pollerView{Name: name, Running: ok && p.IsRunning()})
	}
	c.JSON(http.StatusOK, gin.H{"pollers": views, "active_tasks": h.Pollers.ActiveTasks()})
}

// TriggerPoller runs a background refresh now, e.g. display-status or dashboard-stats.
func (h *Handler) TriggerPoller(c *gin.Context) {
	name := c.Param("name")
	if !h.Pollers.Trigger(name) {
		abort(c, http.StatusNotFound, "poller_not_running", "No running poller named "+name, "")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"triggered": name})
}
