package users

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/auth"
	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// Handler handles user profile requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents a user profile in API responses
type UserResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Avatar       string `json:"avatar"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// SetPasswordRequest represents a password change request
type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// SetAvatarRequest represents an avatar upload request
type SetAvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

func userToResponse(user models.User, subscribed bool) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Avatar:       user.Avatar,
		IsSubscribed: subscribed,
	}
}

// isSubscribed reports whether viewerID follows authorID
// A zero viewerID means an anonymous request
func (h *Handler) isSubscribed(viewerID, authorID uint) bool {
	if viewerID == 0 || viewerID == authorID {
		return false
	}
	var count int64
	h.db.Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", viewerID, authorID).
		Count(&count)
	return count > 0
}

// List returns all users
// @Summary List users
// @Description Get a paginated list of users
// @Tags users
// @Produce json
// @Param limit query int false "Max results (default 50)"
// @Param offset query int false "Results offset"
// @Success 200 {array} UserResponse
// @Router /users [get]
func (h *Handler) List(c *gin.Context) {
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

	var users []models.User
	if err := h.db.Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	viewerID, _ := auth.GetUserID(c)

	// Batch-load the viewer's subscriptions to avoid a query per row
	subscribed := make(map[uint]bool)
	if viewerID != 0 {
		var subs []models.Subscription
		h.db.Where("user_id = ?", viewerID).Find(&subs)
		for _, s := range subs {
			subscribed[s.AuthorID] = true
		}
	}

	response := make([]UserResponse, 0, len(users))
	for _, user := range users {
		response = append(response, userToResponse(user, subscribed[user.ID]))
	}

	c.JSON(http.StatusOK, response)
}

// Get returns a single user profile
// @Summary Get a user
// @Description Get a user profile by ID
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id} [get]
func (h *Handler) Get(c *gin.Context) {
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

	viewerID, _ := auth.GetUserID(c)
	c.JSON(http.StatusOK, userToResponse(user, h.isSubscribed(viewerID, user.ID)))
}

// SetPassword changes the authenticated user's password
// @Summary Change password
// @Description Change the current user's password
// @Tags users
// @Accept json
// @Produce json
// @Param request body SetPasswordRequest true "Password change"
// @Success 204 "Password changed"
// @Failure 400 {object} map[string]string "Wrong current password"
// @Security BearerAuth
// @Router /users/set_password [post]
func (h *Handler) SetPassword(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	if err := h.db.Model(&user).Update("password_hash", hashed).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.Status(http.StatusNoContent)
}

// SetAvatar sets the authenticated user's avatar
// @Summary Set avatar
// @Description Upload an avatar for the current user
// @Tags users
// @Accept json
// @Produce json
// @Param request body SetAvatarRequest true "Avatar data"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /users/me/avatar [put]
func (h *Handler) SetAvatar(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req SetAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).
		Update("avatar", req.Avatar).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update avatar"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": req.Avatar})
}

// DeleteAvatar clears the authenticated user's avatar
// @Summary Delete avatar
// @Description Remove the current user's avatar
// @Tags users
// @Success 204 "Avatar removed"
// @Security BearerAuth
// @Router /users/me/avatar [delete]
func (h *Handler) DeleteAvatar(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).
		Update("avatar", "").Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove avatar"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterPublicRoutes registers routes readable without authentication
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.List)
	rg.GET("/users/:id", h.Get)
}

// RegisterRoutes registers routes that require authentication
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/users/set_password", h.SetPassword)
	rg.PUT("/users/me/avatar", h.SetAvatar)
	rg.DELETE("/users/me/avatar", h.DeleteAvatar)
}
