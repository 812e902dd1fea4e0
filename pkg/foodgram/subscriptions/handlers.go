package subscriptions

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/auth"
	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// Handler handles subscription requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new subscriptions handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RecipeMinified is the short recipe form embedded in subscription responses
type RecipeMinified struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime uint   `json:"cooking_time"`
}

// AuthorResponse represents a subscribed author with a recipe preview
type AuthorResponse struct {
	ID           uint             `json:"id"`
	Email        string           `json:"email"`
	Username     string           `json:"username"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	Avatar       string           `json:"avatar"`
	IsSubscribed bool             `json:"is_subscribed"`
	Recipes      []RecipeMinified `json:"recipes"`
	RecipesCount int64            `json:"recipes_count"`
}

// recipesLimit parses the recipes_limit query parameter
// Zero means no limit on the embedded recipe preview
func recipesLimit(c *gin.Context) int {
	if v, err := strconv.Atoi(c.Query("recipes_limit")); err == nil && v > 0 {
		return v
	}
	return 0
}

func (h *Handler) authorToResponse(author models.User, limit int) AuthorResponse {
	var count int64
	h.db.Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&count)

	query := h.db.Where("author_id = ?", author.ID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var recipes []models.Recipe
	query.Find(&recipes)

	preview := make([]RecipeMinified, 0, len(recipes))
	for _, r := range recipes {
		preview = append(preview, RecipeMinified{
			ID:          r.ID,
			Name:        r.Name,
			Image:       r.Image,
			CookingTime: r.CookingTime,
		})
	}

	return AuthorResponse{
		ID:           author.ID,
		Email:        author.Email,
		Username:     author.Username,
		FirstName:    author.FirstName,
		LastName:     author.LastName,
		Avatar:       author.Avatar,
		IsSubscribed: true,
		Recipes:      preview,
		RecipesCount: count,
	}
}

// Subscribe adds the target user to the current user's subscriptions
// @Summary Subscribe to an author
// @Description Follow another user's recipes
// @Tags subscriptions
// @Produce json
// @Param id path int true "Author ID"
// @Param recipes_limit query int false "Max recipes in the embedded preview"
// @Success 201 {object} AuthorResponse
// @Failure 400 {object} map[string]string "Self-subscription or duplicate"
// @Failure 404 {object} map[string]string "Author not found"
// @Security BearerAuth
// @Router /users/{id}/subscribe [post]
func (h *Handler) Subscribe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	authorID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var author models.User
	if err := h.db.First(&author, authorID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if author.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Нельзя подписаться на самого себя."})
		return
	}

	var existing models.Subscription
	if err := h.db.Where("user_id = ? AND author_id = ?", userID, author.ID).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Вы уже подписаны на этого пользователя."})
		return
	}

	subscription := models.Subscription{UserID: userID, AuthorID: author.ID}
	if err := h.db.Create(&subscription).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Вы уже подписаны на этого пользователя."})
		return
	}

	c.JSON(http.StatusCreated, h.authorToResponse(author, recipesLimit(c)))
}

// Unsubscribe removes the target user from the current user's subscriptions
// @Summary Unsubscribe from an author
// @Description Stop following another user's recipes
// @Tags subscriptions
// @Param id path int true "Author ID"
// @Success 204 "Unsubscribed"
// @Failure 400 {object} map[string]string "Not subscribed"
// @Security BearerAuth
// @Router /users/{id}/subscribe [delete]
func (h *Handler) Unsubscribe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	authorID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var author models.User
	if err := h.db.First(&author, authorID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	result := h.db.Where("user_id = ? AND author_id = ?", userID, author.ID).
		Delete(&models.Subscription{})
	if result.RowsAffected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Вы не подписаны на этого пользователя."})
		return
	}

	c.Status(http.StatusNoContent)
}

// List returns the authors the current user follows
// @Summary List subscriptions
// @Description Get the authors the current user follows, each with a recipe preview
// @Tags subscriptions
// @Produce json
// @Param limit query int false "Max results (default 50)"
// @Param offset query int false "Results offset"
// @Param recipes_limit query int false "Max recipes in each embedded preview"
// @Success 200 {array} AuthorResponse
// @Security BearerAuth
// @Router /users/subscriptions [get]
func (h *Handler) List(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit := 50
	offset := 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
		if limit > 100 {
			limit = 100
		}
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}

	var authors []models.User
	if err := h.db.
		Joins("INNER JOIN subscriptions ON subscriptions.author_id = users.id AND subscriptions.user_id = ?", userID).
		Order("users.id ASC").Limit(limit).Offset(offset).
		Find(&authors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscriptions"})
		return
	}

	rl := recipesLimit(c)
	response := make([]AuthorResponse, 0, len(authors))
	for _, author := range authors {
		response = append(response, h.authorToResponse(author, rl))
	}

	c.JSON(http.StatusOK, response)
}

// RegisterRoutes registers subscription routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/subscriptions", h.List)
	rg.POST("/users/:id/subscribe", h.Subscribe)
	rg.DELETE("/users/:id/subscribe", h.Unsubscribe)
}
