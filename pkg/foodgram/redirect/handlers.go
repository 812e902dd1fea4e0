package redirect

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// Handler handles short link redirects
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new redirect handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// Redirect resolves a recipe short link
// No authentication required: the canonical recipe URL is not secret
func (h *Handler) Redirect(c *gin.Context) {
	token := c.Param("token")

	var recipe models.Recipe
	if err := h.db.Where("short_link = ?", token).First(&recipe).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/recipes/%d/", recipe.ID))
}

// RegisterRoutes registers the redirect route on the root router
// This should be called AFTER all other routes to avoid conflicts
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/s/:token", h.Redirect)
}
