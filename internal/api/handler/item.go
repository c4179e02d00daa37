package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/marcus/declutter/internal/domain"
	"github.com/marcus/declutter/internal/service"
)

// ItemHandler handles manual item editing endpoints.
type ItemHandler struct {
	extraction *service.ExtractionService
}

// NewItemHandler creates a new item handler.
// Parameters:
//   - extraction: extraction service instance.
// Returns:
//   - *ItemHandler: initialized handler.
func NewItemHandler(extraction *service.ExtractionService) *ItemHandler {
	return &ItemHandler{
		extraction: extraction,
	}
}

type addItemRequest struct {
	FrameID   string  `json:"frame_id"`
	Name      string  `json:"name" binding:"required"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Condition string  `json:"condition"`
}

type updateItemRequest struct {
	Name           *string  `json:"name"`
	EstimatedPrice *float64 `json:"estimated_price"`
}

// AddItem handles POST /api/v1/extractions/:id/items.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ItemHandler) AddItem(c *gin.Context) {
	jobID := c.Param("id")

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	item, err := h.extraction.AddItem(jobID, req.FrameID, req.Name, req.Category, req.Price, req.Condition)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to add item: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"item":    item,
		"message": "Item added successfully",
	})
}

// UpdateItem handles PUT /api/v1/extractions/:id/items/:index.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	jobID := c.Param("id")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item index",
		})
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	item, err := h.extraction.UpdateItem(jobID, index, req.Name, req.EstimatedPrice)
	if err != nil {
		writeItemError(c, err, "Failed to update item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"item":    item,
		"message": "Item updated successfully",
	})
}

// DeleteItem handles DELETE /api/v1/extractions/:id/items/:index.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	jobID := c.Param("id")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item index",
		})
		return
	}

	item, remaining, err := h.extraction.DeleteItem(jobID, index)
	if err != nil {
		writeItemError(c, err, "Failed to delete item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"deleted_item":    item,
		"remaining_items": remaining,
		"message":         "Item deleted successfully",
	})
}

// GetCategories handles GET /api/v1/categories.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ItemHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"categories": h.extraction.CategorySuggestions(),
	})
}

func writeItemError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
	case errors.Is(err, domain.ErrItemIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item index",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fallback + ": " + err.Error(),
		})
	}
}
