package ingredients

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// Handler handles ingredient catalog requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new ingredients handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// IngredientResponse represents an ingredient in API responses
type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// ImportIngredient represents one entry in an import payload
type ImportIngredient struct {
	Name            string `json:"name" binding:"required"`
	MeasurementUnit string `json:"measurement_unit" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

func ingredientToResponse(ingredient models.Ingredient) IngredientResponse {
	return IngredientResponse{
		ID:              ingredient.ID,
		Name:            ingredient.Name,
		MeasurementUnit: ingredient.MeasurementUnit,
	}
}

// List returns ingredients, optionally filtered by name prefix
// @Summary List ingredients
// @Description Search the ingredient catalog by name prefix
// @Tags ingredients
// @Produce json
// @Param name query string false "Name prefix filter"
// @Success 200 {array} IngredientResponse
// @Router /ingredients [get]
func (h *Handler) List(c *gin.Context) {
	query := h.db.Order("name ASC")
	if name := c.Query("name"); name != "" {
		query = query.Where("name LIKE ?", name+"%")
	}

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ingredients"})
		return
	}

	response := make([]IngredientResponse, 0, len(ingredients))
	for _, ingredient := range ingredients {
		response = append(response, ingredientToResponse(ingredient))
	}

	c.JSON(http.StatusOK, response)
}

// Get returns a single ingredient
// @Summary Get an ingredient
// @Description Get an ingredient by ID
// @Tags ingredients
// @Produce json
// @Param id path int true "Ingredient ID"
// @Success 200 {object} IngredientResponse
// @Failure 404 {object} map[string]string "Ingredient not found"
// @Router /ingredients/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ingredient ID"})
		return
	}

	var ingredient models.Ingredient
	if err := h.db.First(&ingredient, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
		return
	}

	c.JSON(http.StatusOK, ingredientToResponse(ingredient))
}

// Import loads ingredients from a JSON array, skipping duplicates
// @Summary Import ingredients
// @Description Bulk-load ingredients into the catalog (admin only)
// @Tags ingredients
// @Accept json
// @Produce json
// @Param request body []ImportIngredient true "Ingredients to import"
// @Success 200 {object} ImportResult
// @Security BearerAuth
// @Router /admin/ingredients/import [post]
func (h *Handler) Import(c *gin.Context) {
	var entries []ImportIngredient
	if err := c.ShouldBindJSON(&entries); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := importEntries(h.db, entries)
	c.JSON(http.StatusOK, result)
}

// importEntries get-or-creates each entry keyed by (name, measurement_unit)
func importEntries(db *gorm.DB, entries []ImportIngredient) ImportResult {
	var result ImportResult
	for _, entry := range entries {
		if entry.Name == "" || entry.MeasurementUnit == "" {
			result.Skipped++
			continue
		}

		var existing models.Ingredient
		if err := db.Where("name = ? AND measurement_unit = ?", entry.Name, entry.MeasurementUnit).
			First(&existing).Error; err == nil {
			result.Skipped++
			continue
		}

		ingredient := models.Ingredient{Name: entry.Name, MeasurementUnit: entry.MeasurementUnit}
		if err := db.Create(&ingredient).Error; err != nil {
			result.Errors = append(result.Errors, "failed to import "+entry.Name)
			continue
		}
		result.Imported++
	}
	return result
}

// RegisterPublicRoutes registers the read-only catalog routes
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/ingredients", h.List)
	rg.GET("/ingredients/:id", h.Get)
}

// RegisterAdminRoutes registers catalog management routes
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/ingredients/import", h.Import)
}
