package cart

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/auth"
	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	protected := r.Group("/api", auth.AuthMiddleware())
	handler.RegisterRoutes(protected)
	return r
}

func createTestUser(t *testing.T, db *gorm.DB, email, username string) models.User {
	user := models.User{Email: email, Username: username, PasswordHash: "hash", SystemRole: models.SystemRoleUser}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createIngredient(t *testing.T, db *gorm.DB, name, unit string) models.Ingredient {
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(&ingredient).Error; err != nil {
		t.Fatalf("Failed to create ingredient: %v", err)
	}
	return ingredient
}

func createRecipe(t *testing.T, db *gorm.DB, authorID uint, name, shortLink string, lines ...models.RecipeIngredient) models.Recipe {
	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Text:        "t",
		CookingTime: 10,
		ShortLink:   shortLink,
		Ingredients: lines,
	}
	if err := db.Create(&recipe).Error; err != nil {
		t.Fatalf("Failed to create recipe: %v", err)
	}
	return recipe
}

func authToken(t *testing.T, user models.User) string {
	token, err := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func download(t *testing.T, router *gin.Engine, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/api/recipes/download_shopping_cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAddToCart(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user")
	recipe := createRecipe(t, db, user.ID, "Soup", "Aa0Bb1")

	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/recipes/%d/shopping_cart", recipe.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.ShoppingCart{}).Where("user_id = ? AND recipe_id = ?", user.ID, recipe.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 cart entry, got %d", count)
	}
}

func TestAddToCartDuplicateRejected(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user")
	recipe := createRecipe(t, db, user.ID, "Soup", "Aa0Bb1")
	db.Create(&models.ShoppingCart{UserID: user.ID, RecipeID: recipe.ID})

	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/recipes/%d/shopping_cart", recipe.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for duplicate add, got %d", resp.Code)
	}
}

func TestRemoveFromCartAbsentRejected(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user")
	recipe := createRecipe(t, db, user.ID, "Soup", "Aa0Bb1")

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/recipes/%d/shopping_cart", recipe.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for absent entry, got %d", resp.Code)
	}
}

func TestDownloadAggregatesAcrossRecipes(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user")

	flour := createIngredient(t, db, "flour", "g")
	egg := createIngredient(t, db, "egg", "pcs")

	recipeA := createRecipe(t, db, user.ID, "A", "Aa0Bb1",
		models.RecipeIngredient{IngredientID: flour.ID, Amount: 200})
	recipeB := createRecipe(t, db, user.ID, "B", "Cc2Dd3",
		models.RecipeIngredient{IngredientID: flour.ID, Amount: 300},
		models.RecipeIngredient{IngredientID: egg.ID, Amount: 2})

	db.Create(&models.ShoppingCart{UserID: user.ID, RecipeID: recipeA.ID})
	db.Create(&models.ShoppingCart{UserID: user.ID, RecipeID: recipeB.ID})

	resp := download(t, router, authToken(t, user))

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Disposition"); got != `attachment; filename="shopping_cart.txt"` {
		t.Errorf("Unexpected Content-Disposition %q", got)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Expected text/plain content type, got %q", ct)
	}

	lines := strings.Split(strings.TrimRight(resp.Body.String(), "\n"), "\n")
	// Header, blank separator, then one line per ingredient group sorted by name
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d: %q", len(lines), lines)
	}
	if lines[2] != "egg (pcs): 2" {
		t.Errorf("Expected 'egg (pcs): 2', got %q", lines[2])
	}
	if lines[3] != "flour (g): 500" {
		t.Errorf("Expected 'flour (g): 500', got %q", lines[3])
	}
}

func TestDownloadEmptyCart(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user")

	resp := download(t, router, authToken(t, user))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Список покупок пуст.") {
		t.Errorf("Expected empty cart message, got %s", resp.Body.String())
	}
}

func TestDownloadIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user")

	flour := createIngredient(t, db, "flour", "g")
	recipe := createRecipe(t, db, user.ID, "Bread", "Aa0Bb1",
		models.RecipeIngredient{IngredientID: flour.ID, Amount: 500})
	db.Create(&models.ShoppingCart{UserID: user.ID, RecipeID: recipe.ID})

	token := authToken(t, user)
	first := download(t, router, token)
	second := download(t, router, token)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("Expected both downloads to succeed, got %d and %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("Expected byte-identical output for an unchanged cart")
	}
}

func TestDownloadExcludesDeletedRecipes(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user")

	flour := createIngredient(t, db, "flour", "g")
	sugar := createIngredient(t, db, "sugar", "g")

	kept := createRecipe(t, db, user.ID, "Kept", "Aa0Bb1",
		models.RecipeIngredient{IngredientID: flour.ID, Amount: 100})
	gone := createRecipe(t, db, user.ID, "Gone", "Cc2Dd3",
		models.RecipeIngredient{IngredientID: sugar.ID, Amount: 50})

	db.Create(&models.ShoppingCart{UserID: user.ID, RecipeID: kept.ID})
	db.Create(&models.ShoppingCart{UserID: user.ID, RecipeID: gone.ID})
	db.Delete(&gone)

	resp := download(t, router, authToken(t, user))

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	if !strings.Contains(body, "flour (g): 100") {
		t.Errorf("Expected the kept recipe's ingredients, got %q", body)
	}
	if strings.Contains(body, "sugar") {
		t.Errorf("Deleted recipes must not contribute, got %q", body)
	}
}

func TestRemoveFromCart(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user")
	recipe := createRecipe(t, db, user.ID, "Soup", "Aa0Bb1")
	db.Create(&models.ShoppingCart{UserID: user.ID, RecipeID: recipe.ID})

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/recipes/%d/shopping_cart", recipe.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.Code)
	}

	var count int64
	db.Model(&models.ShoppingCart{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected empty cart, got %d entries", count)
	}
}
