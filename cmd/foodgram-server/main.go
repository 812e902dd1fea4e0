package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/foodgram-app/foodgram/pkg/foodgram/admin"
	"github.com/foodgram-app/foodgram/pkg/foodgram/apikeys"
	"github.com/foodgram-app/foodgram/pkg/foodgram/auth"
	"github.com/foodgram-app/foodgram/pkg/foodgram/cart"
	"github.com/foodgram-app/foodgram/pkg/foodgram/database"
	"github.com/foodgram-app/foodgram/pkg/foodgram/favorites"
	"github.com/foodgram-app/foodgram/pkg/foodgram/ingredients"
	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
	"github.com/foodgram-app/foodgram/pkg/foodgram/recipes"
	"github.com/foodgram-app/foodgram/pkg/foodgram/redirect"
	"github.com/foodgram-app/foodgram/pkg/foodgram/subscriptions"
	"github.com/foodgram-app/foodgram/pkg/foodgram/tags"
	"github.com/foodgram-app/foodgram/pkg/foodgram/users"

	_ "github.com/foodgram-app/foodgram/api/swagger"
)

// @title Foodgram API
// @version 1.0
// @description A recipe sharing platform with favorites, subscriptions and shopping list export.

// @contact.name Foodgram Support
// @contact.url https://github.com/foodgram-app/foodgram

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token or API token. Format: "Bearer {token}"

func main() {
	// Load .env if present; real environment variables take precedence
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	dbPath := os.Getenv("FOODGRAM_DB_PATH")
	if dbPath == "" {
		dbPath = "foodgram.db"
	}

	if err := database.Connect(dbPath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	if err := ensureAdminExists(); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	if err := bootstrapIngredients(); err != nil {
		log.Fatalf("Failed to load ingredient catalog: %v", err)
	}

	baseURL := os.Getenv("FOODGRAM_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	db := database.GetDB()

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "foodgram",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Combined auth middleware (accepts JWT or API token)
		combinedAuth := apikeys.CombinedAuthMiddleware(db)

		// Public reads still personalize is_favorited / is_in_shopping_cart /
		// is_subscribed when a valid token is present
		public := api.Group("", auth.OptionalAuthMiddleware())

		recipesHandler := recipes.NewHandler(db, baseURL)
		recipesHandler.RegisterPublicRoutes(public)
		recipesHandler.RegisterRoutes(api.Group("", combinedAuth))

		usersHandler := users.NewHandler(db)
		usersHandler.RegisterPublicRoutes(public)
		usersHandler.RegisterRoutes(api.Group("", combinedAuth))

		tagsHandler := tags.NewHandler(db)
		tagsHandler.RegisterPublicRoutes(public)

		ingredientsHandler := ingredients.NewHandler(db)
		ingredientsHandler.RegisterPublicRoutes(public)

		// Protected routes (accepts JWT or API token)
		favoritesHandler := favorites.NewHandler(db)
		favoritesHandler.RegisterRoutes(api.Group("", combinedAuth))

		cartHandler := cart.NewHandler(db)
		cartHandler.RegisterRoutes(api.Group("", combinedAuth))

		subscriptionsHandler := subscriptions.NewHandler(db)
		subscriptionsHandler.RegisterRoutes(api.Group("", combinedAuth))

		// API token management (JWT only - need to be logged in to manage tokens)
		apiTokensHandler := apikeys.NewHandler(db)
		apiTokensHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Admin routes (JWT only, admin role required)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())

		adminHandler := admin.NewHandler(db)
		adminHandler.RegisterRoutes(adminGroup)
		tagsHandler.RegisterAdminRoutes(adminGroup)
		ingredientsHandler.RegisterAdminRoutes(adminGroup)
	}

	// Short link redirects (public, must be registered LAST to avoid conflicts)
	redirectHandler := redirect.NewHandler(db)
	redirectHandler.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Foodgram server on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminExists creates a default admin user if no admin exists in the database.
func ensureAdminExists() error {
	db := database.GetDB()

	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	adminUser := models.User{
		Email:        "admin@foodgram.local",
		Username:     "admin",
		FirstName:    "Admin",
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user: admin@foodgram.local (password: changeme)")
	return nil
}

// bootstrapIngredients loads the ingredient catalog from
// FOODGRAM_INGREDIENTS_PATH on first startup, when the table is empty.
func bootstrapIngredients() error {
	path := os.Getenv("FOODGRAM_INGREDIENTS_PATH")
	if path == "" {
		return nil
	}

	db := database.GetDB()

	var count int64
	if err := db.Model(&models.Ingredient{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil // Catalog already loaded
	}

	result, err := ingredients.LoadFromFile(db, path)
	if err != nil {
		return err
	}

	log.Printf("Loaded ingredient catalog from %s: %d imported, %d skipped", path, result.Imported, result.Skipped)
	return nil
}
