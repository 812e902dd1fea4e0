package cart

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/auth"
	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// Handler handles shopping cart requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new cart handler
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

// ingredientTotal is one aggregated shopping list line: all cart
// recipes' amounts summed per (name, measurement unit) pair.
type ingredientTotal struct {
	Name            string
	MeasurementUnit string
	Total           uint
}

// Add puts a recipe into the authenticated user's shopping cart
// @Summary Add a recipe to the shopping cart
// @Description Add a recipe to the user's shopping cart; duplicates are rejected
// @Tags cart
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} RecipeMinified
// @Failure 400 {object} map[string]string "Already in the cart"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id}/shopping_cart [post]
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

	var existing models.ShoppingCart
	if err := h.db.Where("user_id = ? AND recipe_id = ?", userID, recipe.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Рецепт уже в списке покупок."})
		return
	}

	entry := models.ShoppingCart{UserID: userID, RecipeID: recipe.ID}
	if err := h.db.Create(&entry).Error; err != nil {
		// Unique index backstop against a concurrent duplicate add
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Рецепт уже в списке покупок."})
		return
	}

	c.JSON(http.StatusCreated, RecipeMinified{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	})
}

// Remove takes a recipe out of the shopping cart
// @Summary Remove a recipe from the shopping cart
// @Description Remove a recipe from the user's shopping cart
// @Tags cart
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 204 "Removed"
// @Failure 400 {object} map[string]string "Not in the cart"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id}/shopping_cart [delete]
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

	var entry models.ShoppingCart
	if err := h.db.Where("user_id = ? AND recipe_id = ?", userID, recipe.ID).First(&entry).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Рецепта нет в списке покупок."})
		return
	}

	if err := h.db.Delete(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove cart entry"})
		return
	}

	c.Status(http.StatusNoContent)
}

// aggregate collapses the user's cart into summed shopping list lines.
// One grouped query: cart entry -> recipe -> recipe_ingredients ->
// ingredients, grouped by (name, measurement unit), sorted by name.
// Soft-deleted recipes contribute nothing.
func (h *Handler) aggregate(userID uint) ([]ingredientTotal, error) {
	var totals []ingredientTotal
	err := h.db.Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total").
		Joins("INNER JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id AND shopping_carts.user_id = ?", userID).
		Joins("INNER JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("INNER JOIN recipes ON recipes.id = recipe_ingredients.recipe_id AND recipes.deleted_at IS NULL").
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name ASC").
		Find(&totals).Error
	return totals, err
}

// renderShoppingList formats aggregated lines as the plain-text file body
func renderShoppingList(totals []ingredientTotal) string {
	var b strings.Builder
	b.WriteString("Список покупок:\n\n")
	for _, t := range totals {
		fmt.Fprintf(&b, "%s (%s): %d\n", t.Name, t.MeasurementUnit, t.Total)
	}
	return b.String()
}

// Download returns the aggregated shopping list as a text attachment
// @Summary Download the shopping list
// @Description Download the deduplicated, summed ingredient list for all cart recipes
// @Tags cart
// @Produce plain
// @Success 200 {string} string "shopping_cart.txt"
// @Failure 400 {object} map[string]string "Cart is empty"
// @Security BearerAuth
// @Router /recipes/download_shopping_cart [get]
func (h *Handler) Download(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	// An empty cart is an expected outcome, reported as a user error
	// rather than an empty file
	var entries int64
	if err := h.db.Model(&models.ShoppingCart{}).Where("user_id = ?", userID).Count(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build shopping list"})
		return
	}
	if entries == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Список покупок пуст."})
		return
	}

	totals, err := h.aggregate(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build shopping list"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="shopping_cart.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(renderShoppingList(totals)))
}

// RegisterRoutes registers shopping cart routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes/download_shopping_cart", h.Download)
	rg.POST("/recipes/:id/shopping_cart", h.Add)
	rg.DELETE("/recipes/:id/shopping_cart", h.Remove)
}
