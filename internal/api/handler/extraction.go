package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/marcus/declutter/internal/domain"
	"github.com/marcus/declutter/internal/service"
)

// ExtractionHandler handles video upload and job status endpoints.
type ExtractionHandler struct {
	extraction  *service.ExtractionService
	maxUploadMB int64
}

// NewExtractionHandler creates a new extraction handler.
// Parameters:
//   - extraction: extraction service instance.
//   - maxUploadMB: upload size ceiling in megabytes.
// Returns:
//   - *ExtractionHandler: initialized handler.
func NewExtractionHandler(extraction *service.ExtractionService, maxUploadMB int64) *ExtractionHandler {
	return &ExtractionHandler{
		extraction:  extraction,
		maxUploadMB: maxUploadMB,
	}
}

// SubmitExtraction handles POST /api/v1/extractions.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ExtractionHandler) SubmitExtraction(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "A video file is required",
		})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "File must be a video",
		})
		return
	}

	maxBytes := h.maxUploadMB * 1024 * 1024
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File size must be less than %dMB", h.maxUploadMB),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read uploaded file: " + err.Error(),
		})
		return
	}
	defer file.Close()

	video, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read uploaded file: " + err.Error(),
		})
		return
	}
	if int64(len(video)) > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File size must be less than %dMB", h.maxUploadMB),
		})
		return
	}

	jobID, err := h.extraction.Submit(c.Request.Context(), video, fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to start extraction: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"job_id":  jobID,
		"message": "Video upload started. Use the job ID to check extraction status.",
	})
}

// GetStatus handles GET /api/v1/extractions/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ExtractionHandler) GetStatus(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.extraction.GetStatus(jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job status: " + err.Error(),
		})
		return
	}

	frames := job.Frames
	if frames == nil {
		frames = []domain.Frame{}
	}
	items := job.Items
	if items == nil {
		items = []domain.Item{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"job_id":   job.ID,
		"status":   job.Status,
		"progress": job.Progress,
		"filename": job.SourceName,
		"frames":   frames,
		"items":    items,
		"error":    job.Error,
	})
}
