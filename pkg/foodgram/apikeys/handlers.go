package apikeys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/auth"
	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

const (
	// TokenLength is the length of the generated token in bytes (32 bytes = 64 hex chars)
	TokenLength = 32
	// TokenPrefixLength is the number of characters stored for identification
	TokenPrefixLength = 8
)

// Handler handles API token requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new API tokens handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// APITokenResponse represents an API token in responses
type APITokenResponse struct {
	ID          uint       `json:"id"`
	TokenPrefix string     `json:"token_prefix"`
	Description string     `json:"description"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateAPITokenRequest represents a request to create an API token
type CreateAPITokenRequest struct {
	Description string `json:"description"`
}

// CreateAPITokenResponse includes the full token (only shown once)
type CreateAPITokenResponse struct {
	ID          uint      `json:"id"`
	Token       string    `json:"token"`
	TokenPrefix string    `json:"token_prefix"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// generateToken generates a new random API token
func generateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashToken creates a SHA-256 hash of the API token
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Create creates a new API token for the authenticated user
// @Summary Create an API token
// @Description Create a persistent token for programmatic access. The full token is only shown once.
// @Tags api-tokens
// @Accept json
// @Produce json
// @Param request body CreateAPITokenRequest false "Token description"
// @Success 201 {object} CreateAPITokenResponse
// @Security BearerAuth
// @Router /api-tokens [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateAPITokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Description is optional, so binding might fail with empty body
		req.Description = ""
	}

	token, err := generateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	apiToken := models.APIToken{
		UserID:      userID,
		TokenHash:   hashToken(token),
		TokenPrefix: token[:TokenPrefixLength],
		Description: req.Description,
	}

	if err := h.db.Create(&apiToken).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	// Return the full token - this is the only time it's visible
	c.JSON(http.StatusCreated, CreateAPITokenResponse{
		ID:          apiToken.ID,
		Token:       token,
		TokenPrefix: apiToken.TokenPrefix,
		Description: apiToken.Description,
		CreatedAt:   apiToken.CreatedAt,
	})
}

// List returns all API tokens for the authenticated user
// @Summary List API tokens
// @Description Get all API tokens for the current user (prefixes only)
// @Tags api-tokens
// @Produce json
// @Success 200 {array} APITokenResponse
// @Security BearerAuth
// @Router /api-tokens [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var tokens []models.APIToken
	if err := h.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&tokens).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tokens"})
		return
	}

	responses := make([]APITokenResponse, len(tokens))
	for i, tok := range tokens {
		responses[i] = APITokenResponse{
			ID:          tok.ID,
			TokenPrefix: tok.TokenPrefix,
			Description: tok.Description,
			LastUsedAt:  tok.LastUsedAt,
			CreatedAt:   tok.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, responses)
}

// Delete revokes an API token
// @Summary Delete an API token
// @Description Revoke one of the current user's API tokens
// @Tags api-tokens
// @Param id path int true "Token ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Token not found"
// @Security BearerAuth
// @Router /api-tokens/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tokenID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token ID"})
		return
	}

	var apiToken models.APIToken
	if err := h.db.Where("id = ? AND user_id = ?", tokenID, userID).First(&apiToken).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
		return
	}

	if err := h.db.Delete(&apiToken).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Token deleted"})
}

// ValidateAPIToken checks if an API token is valid and returns the record
func ValidateAPIToken(db *gorm.DB, token string) (*models.APIToken, error) {
	var apiToken models.APIToken
	if err := db.Where("token_hash = ?", hashToken(token)).First(&apiToken).Error; err != nil {
		return nil, err
	}
	return &apiToken, nil
}

// UpdateLastUsed updates the last_used_at timestamp for an API token
func UpdateLastUsed(db *gorm.DB, tokenID uint) {
	now := time.Now()
	db.Model(&models.APIToken{}).Where("id = ?", tokenID).Update("last_used_at", now)
}

// CombinedAuthMiddleware authenticates via JWT or API token
// Both are passed in the Authorization header as "Bearer <token>"
// JWTs contain dots, API tokens are hex strings without dots
func CombinedAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token := parts[1]

		if strings.Contains(token, ".") {
			claims, err := auth.ValidateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				c.Abort()
				return
			}

			c.Set(auth.ContextKeyUserID, claims.UserID)
			c.Set(auth.ContextKeyEmail, claims.Email)
			c.Set(auth.ContextKeySystemRole, claims.SystemRole)
			c.Next()
			return
		}

		apiToken, err := ValidateAPIToken(db, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API token"})
			c.Abort()
			return
		}

		// Update last used (fire and forget)
		go UpdateLastUsed(db, apiToken.ID)

		var user models.User
		if err := db.First(&user, apiToken.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		c.Set(auth.ContextKeyUserID, user.ID)
		c.Set(auth.ContextKeyEmail, user.Email)
		c.Set(auth.ContextKeySystemRole, string(user.SystemRole))

		c.Next()
	}
}

// RegisterRoutes registers API token routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/api-tokens", h.Create)
	rg.GET("/api-tokens", h.List)
	rg.DELETE("/api-tokens/:id", h.Delete)
}
