package tags

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// Handler handles tag catalog requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CreateTagRequest represents the admin request to add a tag
type CreateTagRequest struct {
	Name string `json:"name" binding:"required,max=32"`
	Slug string `json:"slug" binding:"required,max=32"`
}

func tagToResponse(tag models.Tag) TagResponse {
	return TagResponse{ID: tag.ID, Name: tag.Name, Slug: tag.Slug}
}

// List returns the full tag catalog
// @Summary List tags
// @Description Get all tags available for recipes
// @Tags tags
// @Produce json
// @Success 200 {array} TagResponse
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	var tags []models.Tag
	if err := h.db.Order("id ASC").Find(&tags).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	response := make([]TagResponse, 0, len(tags))
	for _, tag := range tags {
		response = append(response, tagToResponse(tag))
	}

	c.JSON(http.StatusOK, response)
}

// Get returns a single tag
// @Summary Get a tag
// @Description Get a tag by ID
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} TagResponse
// @Failure 404 {object} map[string]string "Tag not found"
// @Router /tags/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID"})
		return
	}

	var tag models.Tag
	if err := h.db.First(&tag, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	c.JSON(http.StatusOK, tagToResponse(tag))
}

// Create adds a tag to the catalog
// @Summary Create a tag
// @Description Add a new tag to the catalog (admin only)
// @Tags tags
// @Accept json
// @Produce json
// @Param request body CreateTagRequest true "Tag details"
// @Success 201 {object} TagResponse
// @Failure 409 {object} map[string]string "Name or slug already exists"
// @Security BearerAuth
// @Router /admin/tags [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.Tag
	if err := h.db.Where("name = ? OR slug = ?", req.Name, req.Slug).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Tag name or slug already exists"})
		return
	}

	tag := models.Tag{Name: req.Name, Slug: req.Slug}
	if err := h.db.Create(&tag).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tag"})
		return
	}

	c.JSON(http.StatusCreated, tagToResponse(tag))
}

// RegisterPublicRoutes registers the read-only catalog routes
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
	rg.GET("/tags/:id", h.Get)
}

// RegisterAdminRoutes registers catalog management routes
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/tags", h.Create)
}
