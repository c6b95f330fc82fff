package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/job"
	"github.com/roach88/mcjob/internal/merge"
)

// JobHandler serves one job.
type JobHandler struct {
	job    *job.Job
	merger *merge.Merger
}

// NewJobHandler creates a handler for j.
func NewJobHandler(j *job.Job, merger *merge.Merger) *JobHandler {
	return &JobHandler{job: j, merger: merger}
}

func (h *JobHandler) catalog() *checkpoint.Catalog {
	return checkpoint.NewCatalog(h.job.Settings.Backend, h.job.Layout.DataDir(), checkpoint.CatalogReadOnly())
}

// Health reports that the server is up.
func (h *JobHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "job": h.job.Name})
}

// Status returns the progress of every task.
func (h *JobHandler) Status(c *gin.Context) {
	st, ok := h.status(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": h.job.Name, "tasks": st})
}

// TaskStatus returns the progress of one task.
func (h *JobHandler) TaskStatus(c *gin.Context) {
	name := job.NormalizeName(c.Param("task"))
	st, ok := h.status(c)
	if !ok {
		return
	}
	for _, ts := range st {
		if ts.Task == name {
			c.JSON(http.StatusOK, ts)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown task " + name})
}

// Results merges the current checkpoints and returns the artifact.
func (h *JobHandler) Results(c *gin.Context) {
	res, ok := h.results(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res)
}

// TaskResults returns the merged result of one task.
func (h *JobHandler) TaskResults(c *gin.Context) {
	name := job.NormalizeName(c.Param("task"))
	if _, ok := h.job.Task(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown task " + name})
		return
	}
	res, ok := h.results(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Tasks[name])
}

func (h *JobHandler) status(c *gin.Context) ([]merge.TaskStatus, bool) {
	cat := h.catalog()
	defer cat.Close()

	data, err := merge.Collect(c.Request.Context(), h.job, cat)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return merge.Status(data), true
}

func (h *JobHandler) results(c *gin.Context) (*merge.Results, bool) {
	cat := h.catalog()
	defer cat.Close()

	res, err := h.merger.Merge(c.Request.Context(), h.job, cat)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return res, true
}
