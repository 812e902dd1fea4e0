package recipes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/auth"
	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// Handler handles recipe-related requests
type Handler struct {
	db      *gorm.DB
	baseURL string
}

// NewHandler creates a new recipes handler
func NewHandler(db *gorm.DB, baseURL string) *Handler {
	return &Handler{db: db, baseURL: baseURL}
}

// RecipeIngredientRequest represents one ingredient line in a create/update request
type RecipeIngredientRequest struct {
	ID     uint `json:"id" binding:"required"`
	Amount uint `json:"amount" binding:"required,min=1,max=32000"`
}

// CreateRecipeRequest represents the request to create a recipe
type CreateRecipeRequest struct {
	Name        string                    `json:"name" binding:"required,max=255"`
	Text        string                    `json:"text" binding:"required"`
	Image       string                    `json:"image"`
	CookingTime uint                      `json:"cooking_time" binding:"required,min=1,max=32000"`
	Tags        []uint                    `json:"tags" binding:"required,min=1"`
	Ingredients []RecipeIngredientRequest `json:"ingredients" binding:"required,min=1,dive"`
}

// UpdateRecipeRequest represents the request to update a recipe
type UpdateRecipeRequest struct {
	Name        string                     `json:"name" binding:"omitempty,max=255"`
	Text        string                     `json:"text"`
	Image       *string                    `json:"image"`
	CookingTime *uint                      `json:"cooking_time" binding:"omitempty,min=1,max=32000"`
	Tags        *[]uint                    `json:"tags" binding:"omitempty,min=1"`
	Ingredients *[]RecipeIngredientRequest `json:"ingredients" binding:"omitempty,min=1,dive"`
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// resolveTags checks that every tag ID exists and returns the tags
func (h *Handler) resolveTags(tagIDs []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := h.db.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(uniqueIDs(tagIDs)) {
		return nil, &ValidationError{"One or more tags do not exist"}
	}
	return tags, nil
}

// resolveIngredients validates ingredient lines (existence, no
// duplicates) and returns the rows to attach to the recipe
func (h *Handler) resolveIngredients(lines []RecipeIngredientRequest) ([]models.RecipeIngredient, error) {
	seen := make(map[uint]bool, len(lines))
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		if seen[line.ID] {
			return nil, &ValidationError{"Duplicate ingredient in recipe"}
		}
		seen[line.ID] = true
		ids = append(ids, line.ID)
	}

	var count int64
	if err := h.db.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return nil, err
	}
	if count != int64(len(ids)) {
		return nil, &ValidationError{"One or more ingredients do not exist"}
	}

	rows := make([]models.RecipeIngredient, len(lines))
	for i, line := range lines {
		rows[i] = models.RecipeIngredient{IngredientID: line.ID, Amount: line.Amount}
	}
	return rows, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// loadRecipe fetches a recipe with its associations by ID
func (h *Handler) loadRecipe(id uint) (models.Recipe, error) {
	var recipe models.Recipe
	err := h.db.Preload("Tags").Preload("Ingredients.Ingredient").Preload("Author").
		First(&recipe, id).Error
	return recipe, err
}

// List returns recipes, newest first
// @Summary List recipes
// @Description List recipes with optional filters, newest first
// @Tags recipes
// @Produce json
// @Param author query int false "Filter by author ID"
// @Param tags query []string false "Filter by tag slug (repeatable)"
// @Param is_favorited query string false "1 = only the requester's favorites"
// @Param is_in_shopping_cart query string false "1 = only cart recipes, 0 = exclude them"
// @Param q query string false "Search query (searches name and text)"
// @Param limit query int false "Max results (default 50, max 100)"
// @Param offset query int false "Offset for pagination"
// @Success 200 {array} RecipeResponse
// @Router /recipes [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	query := h.db.Model(&models.Recipe{}).Order("recipes.created_at DESC")

	if author := c.Query("author"); author != "" {
		query = query.Where("recipes.author_id = ?", author)
	}
	if tagSlugs := c.QueryArray("tags"); len(tagSlugs) > 0 {
		query = query.Joins("JOIN recipe_tags ON recipe_tags.recipe_id = recipes.id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", tagSlugs).
			Group("recipes.id")
	}
	if q := c.Query("q"); q != "" {
		searchTerm := "%" + q + "%"
		query = query.Where("recipes.name LIKE ? OR recipes.text LIKE ?", searchTerm, searchTerm)
	}

	// Per-user filters require authentication; without it they match nothing
	if isFavorited := c.Query("is_favorited"); isFavorited == "1" {
		query = query.Where("recipes.id IN (?)",
			h.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", userID))
	}
	if inCart := c.Query("is_in_shopping_cart"); inCart != "" {
		sub := h.db.Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", userID)
		if inCart == "1" {
			query = query.Where("recipes.id IN (?)", sub)
		} else if inCart == "0" {
			query = query.Where("recipes.id NOT IN (?)", sub)
		}
	}

	// Pagination
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	query = query.Limit(limit)

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	query = query.Offset(offset)

	var recipeList []models.Recipe
	if err := query.Preload("Tags").Preload("Ingredients.Ingredient").Preload("Author").
		Find(&recipeList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
		return
	}

	rel := loadUserRelations(h.db, userID)
	responses := make([]RecipeResponse, len(recipeList))
	for i, recipe := range recipeList {
		responses[i] = recipeToResponse(recipe, rel)
	}

	c.JSON(http.StatusOK, responses)
}

// Create creates a new recipe
// @Summary Create a recipe
// @Description Publish a new recipe; a unique short link is assigned on creation
// @Tags recipes
// @Accept json
// @Produce json
// @Param request body CreateRecipeRequest true "Recipe details"
// @Success 201 {object} RecipeResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /recipes [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, err := h.resolveTags(req.Tags)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ingredientRows, err := h.resolveIngredients(req.Ingredients)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe := models.Recipe{
		AuthorID:    userID,
		Name:        req.Name,
		Text:        req.Text,
		Image:       req.Image,
		CookingTime: req.CookingTime,
		Tags:        tags,
		Ingredients: ingredientRows,
	}

	if err := createWithShortLink(h.db, &recipe); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recipe"})
		return
	}

	created, err := h.loadRecipe(recipe.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipe"})
		return
	}

	c.JSON(http.StatusCreated, recipeToResponse(created, loadUserRelations(h.db, userID)))
}

// Get returns a recipe by ID
// @Summary Get a recipe
// @Description Get recipe details by ID
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} RecipeResponse
// @Failure 404 {object} map[string]string "Recipe not found"
// @Router /recipes/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	recipe, err := h.loadRecipe(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	c.JSON(http.StatusOK, recipeToResponse(recipe, loadUserRelations(h.db, userID)))
}

// Update updates a recipe (author only). The short link is never touched.
// @Summary Update a recipe
// @Description Update an existing recipe; only the author may do this
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body UpdateRecipeRequest true "Updated recipe details"
// @Success 200 {object} RecipeResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	var recipe models.Recipe
	if err := h.db.First(&recipe, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	if recipe.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can modify this recipe"})
		return
	}

	var req UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tags []models.Tag
	if req.Tags != nil {
		tags, err = h.resolveTags(*req.Tags)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var ingredientRows []models.RecipeIngredient
	if req.Ingredients != nil {
		ingredientRows, err = h.resolveIngredients(*req.Ingredients)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	// Update fields
	if req.Name != "" {
		recipe.Name = req.Name
	}
	if req.Text != "" {
		recipe.Text = req.Text
	}
	if req.Image != nil {
		recipe.Image = *req.Image
	}
	if req.CookingTime != nil {
		recipe.CookingTime = *req.CookingTime
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&recipe).Error; err != nil {
			return err
		}
		if req.Tags != nil {
			if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		if req.Ingredients != nil {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return err
			}
			for i := range ingredientRows {
				ingredientRows[i].RecipeID = recipe.ID
			}
			if err := tx.Create(&ingredientRows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipe"})
		return
	}

	updated, err := h.loadRecipe(recipe.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipe"})
		return
	}

	c.JSON(http.StatusOK, recipeToResponse(updated, loadUserRelations(h.db, userID)))
}

// Delete deletes a recipe (author only)
// @Summary Delete a recipe
// @Description Delete a recipe by ID; only the author may do this
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 204 "Recipe deleted"
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Recipe not found"
// @Security BearerAuth
// @Router /recipes/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	var recipe models.Recipe
	if err := h.db.First(&recipe, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	if recipe.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can delete this recipe"})
		return
	}

	if err := h.db.Delete(&recipe).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recipe"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetLink returns the compact share URL for a recipe
// @Summary Get a recipe's short link
// @Description Get the compact share URL built from the recipe's token
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Recipe not found"
// @Router /recipes/{id}/get-link [get]
func (h *Handler) GetLink(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	var recipe models.Recipe
	if err := h.db.First(&recipe, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"short-link": h.baseURL + "/s/" + recipe.ShortLink})
}

// RegisterPublicRoutes registers read endpoints; anonymous requests are
// allowed, an optional token personalizes the response flags
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes", h.List)
	rg.GET("/recipes/:id", h.Get)
	rg.GET("/recipes/:id/get-link", h.GetLink)
}

// RegisterRoutes registers authenticated recipe routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/recipes", h.Create)
	rg.PATCH("/recipes/:id", h.Update)
	rg.DELETE("/recipes/:id", h.Delete)
}
