package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/auth"
	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// Handler handles admin requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID              uint   `json:"id"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	SystemRole      string `json:"system_role"`
	CreatedAt       string `json:"created_at"`
	RecipeCount     int64  `json:"recipe_count"`
	SubscriberCount int64  `json:"subscriber_count"`
}

// UpdateUserRequest represents the request to update a user
type UpdateUserRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	SystemRole *string `json:"system_role"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers         int64 `json:"total_users"`
	TotalRecipes       int64 `json:"total_recipes"`
	TotalTags          int64 `json:"total_tags"`
	TotalIngredients   int64 `json:"total_ingredients"`
	TotalFavorites     int64 `json:"total_favorites"`
	TotalSubscriptions int64 `json:"total_subscriptions"`
	CartEntries        int64 `json:"cart_entries"`
	AdminUsers         int64 `json:"admin_users"`
	ActiveAPITokens    int64 `json:"active_api_tokens"`
}

func (h *Handler) userToResponse(user models.User) UserResponse {
	var recipeCount, subscriberCount int64
	h.db.Model(&models.Recipe{}).Where("author_id = ?", user.ID).Count(&recipeCount)
	h.db.Model(&models.Subscription{}).Where("author_id = ?", user.ID).Count(&subscriberCount)

	return UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		Username:        user.Username,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		SystemRole:      string(user.SystemRole),
		CreatedAt:       user.CreatedAt.UTC().Format(time.RFC3339),
		RecipeCount:     recipeCount,
		SubscriberCount: subscriberCount,
	}
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Description Get all users with recipe and subscriber counts
// @Tags admin
// @Produce json
// @Param q query string false "Search by email or username"
// @Param role query string false "Filter by system role"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User

	query := h.db.Order("created_at DESC")

	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR username LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("system_role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.userToResponse(user)
	}

	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID (admin only)
// @Summary Get a user
// @Description Get a user with recipe and subscriber counts
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, h.userToResponse(user))
}

// UpdateUser updates a user's profile or role (admin only)
// @Summary Update a user
// @Description Update a user's name or system role
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to update"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string "Invalid role or self-demotion"
// @Security BearerAuth
// @Router /admin/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Prevent admin from demoting themselves
	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID && req.SystemRole != nil && *req.SystemRole != "admin" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
		return
	}

	updates := make(map[string]interface{})
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.SystemRole != nil {
		if *req.SystemRole != "admin" && *req.SystemRole != "user" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid system role"})
			return
		}
		updates["system_role"] = *req.SystemRole
	}

	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	h.db.First(&user, id)
	c.JSON(http.StatusOK, h.userToResponse(user))
}

// DeleteUser soft-deletes a user and their content (admin only)
// @Summary Delete a user
// @Description Remove a user along with their recipes, list entries and tokens
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Self-deletion"
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	// Prevent admin from deleting themselves
	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.APIToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.ShoppingCart{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR author_id = ?", user.ID, user.ID).Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// GetStats returns system-wide statistics (admin only)
// @Summary System statistics
// @Description Get entity totals for monitoring
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.Recipe{}).Count(&stats.TotalRecipes)
	h.db.Model(&models.Tag{}).Count(&stats.TotalTags)
	h.db.Model(&models.Ingredient{}).Count(&stats.TotalIngredients)
	h.db.Model(&models.Favorite{}).Count(&stats.TotalFavorites)
	h.db.Model(&models.Subscription{}).Count(&stats.TotalSubscriptions)
	h.db.Model(&models.ShoppingCart{}).Count(&stats.CartEntries)
	h.db.Model(&models.User{}).Where("system_role = ?", "admin").Count(&stats.AdminUsers)
	h.db.Model(&models.APIToken{}).Count(&stats.ActiveAPITokens)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.PUT("/users/:id", h.UpdateUser)
	rg.DELETE("/users/:id", h.DeleteUser)
}
