package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/query"
	"github.com/gin-gonic/gin"
)

type QueryHandler struct {
	svc    *query.Service
	logger *slog.Logger
}

func NewQueryHandler(svc *query.Service, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{svc: svc, logger: logger.With("component", "query_handler")}
}

type jobResponse struct {
	ID           int64      `json:"id"`
	URLID        int64      `json:"url_id"`
	URL          string     `json:"url"`
	CreatedAt    time.Time  `json:"created_at"`
	Priority     int        `json:"priority"`
	Retry        int        `json:"retry"`
	Completed    *time.Time `json:"completed,omitempty"`
	Failed       *time.Time `json:"failed,omitempty"`
	DelayedUntil *time.Time `json:"delayed_until,omitempty"`
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		ID:           j.ID,
		URLID:        j.URLID,
		URL:          j.URL,
		CreatedAt:    j.CreatedAt,
		Priority:     j.Priority,
		Retry:        j.Retry,
		Completed:    j.Completed,
		Failed:       j.Failed,
		DelayedUntil: j.DelayedUntil,
	}
}

func parseInt64Query(c *gin.Context, name string) int64 {
	v, _ := strconv.ParseInt(c.Query(name), 10, 64)
	return v
}

// GET /jobs
func (h *QueryHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.svc.ListJobs(c.Request.Context(), query.ListJobsInput{
		Status:  c.Query("status"),
		BatchID: parseInt64Query(c, "batch_id"),
		Cursor:  c.Query("cursor"),
		Limit:   limit,
	})
	if err != nil {
		h.logger.Error("list jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]jobResponse, len(result.Jobs))
	for i, j := range result.Jobs {
		items[i] = toJobResponse(j)
	}
	c.JSON(http.StatusOK, gin.H{"jobs": items, "next_cursor": result.NextCursor})
}

// GET /jobs/:id
func (h *QueryHandler) GetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.svc.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
			return
		}
		h.logger.Error("get job", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, toJobResponse(job))
}

type batchResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Locked    bool      `json:"locked"`
	Tags      []string  `json:"tags,omitempty"`
}

func toBatchResponse(b *domain.Batch) batchResponse {
	return batchResponse{ID: b.ID, CreatedAt: b.CreatedAt, Locked: b.Locked, Tags: b.Tags}
}

// GET /batches
func (h *QueryHandler) ListBatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.svc.ListBatches(c.Request.Context(), query.ListBatchesInput{
		Cursor: c.Query("cursor"),
		Limit:  limit,
	})
	if err != nil {
		h.logger.Error("list batches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]batchResponse, len(result.Batches))
	for i, b := range result.Batches {
		items[i] = toBatchResponse(b)
	}
	c.JSON(http.StatusOK, gin.H{"batches": items, "next_cursor": result.NextCursor})
}

// GET /batches/:id
func (h *QueryHandler) GetBatch(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	b, err := h.svc.GetBatch(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrBatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errBatchNotFound})
			return
		}
		h.logger.Error("get batch", "batch_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, toBatchResponse(b))
}

// GET /repeat-urls
func (h *QueryHandler) ListRepeatURLs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.svc.ListRepeatURLs(c.Request.Context(), query.ListRepeatURLsInput{
		Cursor: c.Query("cursor"),
		Limit:  limit,
	})
	if err != nil {
		h.logger.Error("list repeat urls", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]repeatURLResponse, len(result.RepeatURLs))
	for i, r := range result.RepeatURLs {
		items[i] = toRepeatURLResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{"repeat_urls": items, "next_cursor": result.NextCursor})
}

// GET /stats
func (h *QueryHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), time.Now())
	if err != nil {
		h.logger.Error("get stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, stats)
}
