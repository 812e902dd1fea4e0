package tags

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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
	public := r.Group("/api")
	handler.RegisterPublicRoutes(public)
	admin := r.Group("/api/admin", auth.AuthMiddleware(), auth.RequireAdmin())
	handler.RegisterAdminRoutes(admin)
	return r
}

func createAdmin(t *testing.T, db *gorm.DB) models.User {
	user := models.User{Email: "admin@example.com", Username: "admin", PasswordHash: "hash", SystemRole: models.SystemRoleAdmin}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create admin: %v", err)
	}
	return user
}

func authToken(t *testing.T, user models.User) string {
	token, err := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

func TestListTags(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	db.Create(&models.Tag{Name: "Завтрак", Slug: "breakfast"})
	db.Create(&models.Tag{Name: "Обед", Slug: "lunch"})

	req, _ := http.NewRequest("GET", "/api/tags", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var tags []TagResponse
	json.Unmarshal(resp.Body.Bytes(), &tags)
	if len(tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(tags))
	}
	if tags[0].Slug != "breakfast" {
		t.Errorf("Expected slug 'breakfast', got %q", tags[0].Slug)
	}
}

func TestGetTag(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	tag := models.Tag{Name: "Ужин", Slug: "dinner"}
	db.Create(&tag)

	req, _ := http.NewRequest("GET", fmt.Sprintf("/api/tags/%d", tag.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var got TagResponse
	json.Unmarshal(resp.Body.Bytes(), &got)
	if got.Name != "Ужин" {
		t.Errorf("Expected name 'Ужин', got %q", got.Name)
	}
}

func TestGetTagNonNumericID(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	db.Create(&models.Tag{Name: "Завтрак", Slug: "breakfast"})

	req, _ := http.NewRequest("GET", "/api/tags/1%20OR%20TRUE", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestGetTagNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/api/tags/9999", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestCreateTagRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := models.User{Email: "user@example.com", Username: "user", PasswordHash: "hash", SystemRole: models.SystemRoleUser}
	db.Create(&user)

	body, _ := json.Marshal(CreateTagRequest{Name: "Десерт", Slug: "dessert"})
	req, _ := http.NewRequest("POST", "/api/admin/tags", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken(t, user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-admin, got %d", resp.Code)
	}
}

func TestCreateTag(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createAdmin(t, db)

	body, _ := json.Marshal(CreateTagRequest{Name: "Десерт", Slug: "dessert"})
	req, _ := http.NewRequest("POST", "/api/admin/tags", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken(t, admin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.Tag{}).Where("slug = ?", "dessert").Count(&count)
	if count != 1 {
		t.Errorf("Expected tag persisted, found %d", count)
	}
}

func TestCreateTagDuplicateSlug(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createAdmin(t, db)
	db.Create(&models.Tag{Name: "Десерт", Slug: "dessert"})

	body, _ := json.Marshal(CreateTagRequest{Name: "Сладкое", Slug: "dessert"})
	req, _ := http.NewRequest("POST", "/api/admin/tags", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken(t, admin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.Code)
	}
}
