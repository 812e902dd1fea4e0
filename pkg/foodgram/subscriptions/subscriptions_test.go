package subscriptions

import (
	"encoding/json"
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

func createRecipes(t *testing.T, db *gorm.DB, authorID uint, shortLinks ...string) {
	for i, link := range shortLinks {
		recipe := models.Recipe{
			AuthorID:    authorID,
			Name:        fmt.Sprintf("Recipe %d", i+1),
			Text:        "t",
			CookingTime: 10,
			ShortLink:   link,
		}
		if err := db.Create(&recipe).Error; err != nil {
			t.Fatalf("Failed to create recipe: %v", err)
		}
	}
}

func authToken(t *testing.T, user models.User) string {
	token, err := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func TestSubscribe(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	follower := createTestUser(t, db, "follower@example.com", "follower")
	author := createTestUser(t, db, "author@example.com", "author")
	createRecipes(t, db, author.ID, "Aa0Bb1", "Cc2Dd3")

	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/users/%d/subscribe", author.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, follower))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var body AuthorResponse
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body.ID != author.ID {
		t.Errorf("Expected author ID %d, got %d", author.ID, body.ID)
	}
	if !body.IsSubscribed {
		t.Error("Expected is_subscribed to be true")
	}
	if body.RecipesCount != 2 {
		t.Errorf("Expected recipes_count 2, got %d", body.RecipesCount)
	}
	if len(body.Recipes) != 2 {
		t.Errorf("Expected 2 recipes in preview, got %d", len(body.Recipes))
	}
}

func TestSubscribeToSelf(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user")

	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/users/%d/subscribe", user.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Нельзя подписаться на самого себя.") {
		t.Errorf("Expected self-subscription message, got %s", resp.Body.String())
	}
}

func TestSubscribeNonNumericID(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	follower := createTestUser(t, db, "follower@example.com", "follower")
	createTestUser(t, db, "author@example.com", "author")

	// A crafted condition must not reach the database as SQL
	req, _ := http.NewRequest("POST", "/api/users/99%20OR%20TRUE/subscribe", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, follower))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.Subscription{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no subscription created, found %d", count)
	}
}

func TestSubscribeDuplicate(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	follower := createTestUser(t, db, "follower@example.com", "follower")
	author := createTestUser(t, db, "author@example.com", "author")
	db.Create(&models.Subscription{UserID: follower.ID, AuthorID: author.ID})

	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/users/%d/subscribe", author.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, follower))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for duplicate, got %d", resp.Code)
	}
}

func TestUnsubscribe(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	follower := createTestUser(t, db, "follower@example.com", "follower")
	author := createTestUser(t, db, "author@example.com", "author")
	db.Create(&models.Subscription{UserID: follower.ID, AuthorID: author.ID})

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/users/%d/subscribe", author.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, follower))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.Code)
	}

	var count int64
	db.Model(&models.Subscription{}).Where("user_id = ?", follower.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected subscription removed, found %d", count)
	}
}

func TestUnsubscribeNotSubscribed(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	follower := createTestUser(t, db, "follower@example.com", "follower")
	author := createTestUser(t, db, "author@example.com", "author")

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/users/%d/subscribe", author.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, follower))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestListSubscriptionsWithRecipesLimit(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	follower := createTestUser(t, db, "follower@example.com", "follower")
	author := createTestUser(t, db, "author@example.com", "author")
	other := createTestUser(t, db, "other@example.com", "other")
	createRecipes(t, db, author.ID, "Aa0Bb1", "Cc2Dd3", "Ee4Ff5")
	db.Create(&models.Subscription{UserID: follower.ID, AuthorID: author.ID})
	db.Create(&models.Subscription{UserID: other.ID, AuthorID: author.ID})

	req, _ := http.NewRequest("GET", "/api/users/subscriptions?recipes_limit=2", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, follower))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body []AuthorResponse
	json.Unmarshal(resp.Body.Bytes(), &body)
	if len(body) != 1 {
		t.Fatalf("Expected 1 subscribed author, got %d", len(body))
	}
	if len(body[0].Recipes) != 2 {
		t.Errorf("Expected recipe preview capped at 2, got %d", len(body[0].Recipes))
	}
	if body[0].RecipesCount != 3 {
		t.Errorf("Expected recipes_count 3, got %d", body[0].RecipesCount)
	}
}
