package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/PythonCoderAS/wayback-archiver-go/internal/domain"
	"github.com/PythonCoderAS/wayback-archiver-go/internal/enqueue"
	"github.com/gin-gonic/gin"
)

type EnqueueHandler struct {
	svc    *enqueue.Service
	logger *slog.Logger
}

func NewEnqueueHandler(svc *enqueue.Service, logger *slog.Logger) *EnqueueHandler {
	return &EnqueueHandler{svc: svc, logger: logger.With("component", "enqueue_handler")}
}

type submitBatchRequest struct {
	URLs       []string `json:"urls" binding:"required,min=1"`
	Priority   int      `json:"priority"`
	UniqueOnly bool     `json:"unique_only"`
	Tags       []string `json:"tags"`
}

type submitBatchResponse struct {
	BatchID  int64   `json:"batch_id"`
	BatchIDs []int64 `json:"batch_ids"`
	JobCount int     `json:"job_count"`
}

// POST /batches
func (h *EnqueueHandler) SubmitBatch(c *gin.Context) {
	var req submitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.SubmitBatch(c.Request.Context(), req.URLs, req.Priority, req.UniqueOnly, req.Tags)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidURL})
			return
		}
		h.logger.Error("submit batch", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusCreated, submitBatchResponse{
		BatchID:  result.BatchID,
		BatchIDs: result.BatchIDs,
		JobCount: result.JobCount,
	})
}

type declareRepeatRequest struct {
	URL      string `json:"url" binding:"required"`
	Interval int    `json:"interval_seconds"`
}

type repeatURLResponse struct {
	ID          int64  `json:"id"`
	URLID       int64  `json:"url_id"`
	URL         string `json:"url"`
	BatchID     int64  `json:"batch_id"`
	Interval    int    `json:"interval_seconds"`
	ActiveSince *int64 `json:"active_since_unix,omitempty"`
}

func toRepeatURLResponse(r *domain.RepeatURL) repeatURLResponse {
	resp := repeatURLResponse{
		ID:       r.ID,
		URLID:    r.URLID,
		URL:      r.URL,
		BatchID:  r.BatchID,
		Interval: r.Interval,
	}
	if r.ActiveSince != nil {
		unix := r.ActiveSince.Unix()
		resp.ActiveSince = &unix
	}
	return resp
}

// POST /repeat-urls
func (h *EnqueueHandler) DeclareRepeat(c *gin.Context) {
	var req declareRepeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rep, err := h.svc.DeclareRepeat(c.Request.Context(), req.URL, req.Interval)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidURL})
			return
		}
		h.logger.Error("declare repeat url", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusCreated, toRepeatURLResponse(rep))
}
