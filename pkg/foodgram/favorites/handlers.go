package favorites

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/auth"
	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// Handler handles favorite bookkeeping requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new favorites handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RecipeMinified is the compact recipe body returned from bookkeeping endpoints
type RecipeMinified struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime uint   `json:"cooking_time"`
}

// Add favorites a recipe for the authenticated user
// @Summary Favorite a recipe
// @Description Add a recipe to the user's favorites; duplicates are rejected
// @Tags favorites
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} RecipeMinified
// @Failure 400 {object} map[string]string "Already favorited"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id}/favorite [post]
func (h *Handler) Add(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	recipeID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	var recipe models.Recipe
	if err := h.db.First(&recipe, recipeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	var existing models.Favorite
	if err := h.db.Where("user_id = ? AND recipe_id = ?", userID, recipe.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Рецепт уже в избранном."})
		return
	}

	favorite := models.Favorite{UserID: userID, RecipeID: recipe.ID}
	if err := h.db.Create(&favorite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add favorite"})
		return
	}

	c.JSON(http.StatusCreated, RecipeMinified{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	})
}

// Remove unfavorites a recipe
// @Summary Unfavorite a recipe
// @Description Remove a recipe from the user's favorites
// @Tags favorites
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 204 "Removed"
// @Failure 400 {object} map[string]string "Not in favorites"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id}/favorite [delete]
func (h *Handler) Remove(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	recipeID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	var recipe models.Recipe
	if err := h.db.First(&recipe, recipeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	var favorite models.Favorite
	if err := h.db.Where("user_id = ? AND recipe_id = ?", userID, recipe.ID).First(&favorite).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Рецепт отсутствует в избранном."})
		return
	}

	if err := h.db.Delete(&favorite).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove favorite"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers favorite routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/recipes/:id/favorite", h.Add)
	rg.DELETE("/recipes/:id/favorite", h.Remove)
}
