package users

import (
	"bytes"
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
	public := r.Group("/api", auth.OptionalAuthMiddleware())
	handler.RegisterPublicRoutes(public)
	protected := r.Group("/api", auth.AuthMiddleware())
	handler.RegisterRoutes(protected)
	return r
}

func createTestUser(t *testing.T, db *gorm.DB, email, username, password string) models.User {
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := models.User{Email: email, Username: username, PasswordHash: hash, SystemRole: models.SystemRoleUser}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
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

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "a@example.com", "alice", "password123")
	createTestUser(t, db, "b@example.com", "bob", "password123")

	req, _ := http.NewRequest("GET", "/api/users", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var users []UserResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &users); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(users))
	}
}

func TestGetUserSubscribedFlag(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	viewer := createTestUser(t, db, "viewer@example.com", "viewer", "password123")
	author := createTestUser(t, db, "author@example.com", "author", "password123")
	db.Create(&models.Subscription{UserID: viewer.ID, AuthorID: author.ID})

	req, _ := http.NewRequest("GET", fmt.Sprintf("/api/users/%d", author.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, viewer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var profile UserResponse
	json.Unmarshal(resp.Body.Bytes(), &profile)
	if !profile.IsSubscribed {
		t.Error("Expected is_subscribed to be true")
	}

	// Anonymous viewers never see a subscription
	req2, _ := http.NewRequest("GET", fmt.Sprintf("/api/users/%d", author.ID), nil)
	resp2 := httptest.NewRecorder()
	router.ServeHTTP(resp2, req2)

	var anon UserResponse
	json.Unmarshal(resp2.Body.Bytes(), &anon)
	if anon.IsSubscribed {
		t.Error("Expected is_subscribed to be false for anonymous viewer")
	}
}

func TestGetUserNonNumericID(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "victim@example.com", "victim", "password123")

	// A crafted condition must not reach the database as SQL
	req, _ := http.NewRequest("GET", "/api/users/99%20OR%20TRUE", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
	if strings.Contains(resp.Body.String(), "victim@example.com") {
		t.Error("Response must not leak user rows")
	}
}

func TestGetUserNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/api/users/9999", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestSetPassword(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user", "oldpassword1")

	body, _ := json.Marshal(SetPasswordRequest{CurrentPassword: "oldpassword1", NewPassword: "newpassword1"})
	req, _ := http.NewRequest("POST", "/api/users/set_password", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken(t, user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d: %s", resp.Code, resp.Body.String())
	}

	var updated models.User
	db.First(&updated, user.ID)
	if !auth.CheckPassword("newpassword1", updated.PasswordHash) {
		t.Error("Expected new password to verify")
	}
	if auth.CheckPassword("oldpassword1", updated.PasswordHash) {
		t.Error("Expected old password to stop working")
	}
}

func TestSetPasswordWrongCurrent(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user", "oldpassword1")

	body, _ := json.Marshal(SetPasswordRequest{CurrentPassword: "wrongwrong1", NewPassword: "newpassword1"})
	req, _ := http.NewRequest("POST", "/api/users/set_password", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken(t, user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestAvatarLifecycle(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "user@example.com", "user", "password123")
	token := authToken(t, user)

	body, _ := json.Marshal(SetAvatarRequest{Avatar: "data:image/png;base64,iVBORw0KGgo="})
	req, _ := http.NewRequest("PUT", "/api/users/me/avatar", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var updated models.User
	db.First(&updated, user.ID)
	if updated.Avatar == "" {
		t.Error("Expected avatar to be stored")
	}

	req2, _ := http.NewRequest("DELETE", "/api/users/me/avatar", nil)
	req2.Header.Set("Authorization", "Bearer "+token)
	resp2 := httptest.NewRecorder()
	router.ServeHTTP(resp2, req2)

	if resp2.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp2.Code)
	}

	db.First(&updated, user.ID)
	if updated.Avatar != "" {
		t.Error("Expected avatar to be cleared")
	}
}
