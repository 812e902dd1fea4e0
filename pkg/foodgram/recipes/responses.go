package recipes

import (
	"time"

	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

// TagResponse represents a tag attached to a recipe
type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// IngredientInRecipeResponse represents one ingredient line of a recipe
type IngredientInRecipeResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          uint   `json:"amount"`
}

// AuthorResponse represents the recipe author in API responses
type AuthorResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Avatar       string `json:"avatar,omitempty"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// RecipeResponse represents a recipe in API responses
type RecipeResponse struct {
	ID               uint                         `json:"id"`
	Tags             []TagResponse                `json:"tags"`
	Author           AuthorResponse               `json:"author"`
	Ingredients      []IngredientInRecipeResponse `json:"ingredients"`
	IsFavorited      bool                         `json:"is_favorited"`
	IsInShoppingCart bool                         `json:"is_in_shopping_cart"`
	Name             string                       `json:"name"`
	Image            string                       `json:"image"`
	Text             string                       `json:"text"`
	CookingTime      uint                         `json:"cooking_time"`
	ShortLink        string                       `json:"short_link"`
	CreatedAt        string                       `json:"created_at"`
}

// userRelations holds the requesting user's per-recipe and per-author
// flags, batch-loaded once per request.
type userRelations struct {
	favorited  map[uint]bool
	inCart     map[uint]bool
	subscribed map[uint]bool
}

// loadUserRelations fetches the favorite, cart and subscription sets of
// the user. A zero userID (anonymous request) yields empty sets.
func loadUserRelations(db *gorm.DB, userID uint) userRelations {
	rel := userRelations{
		favorited:  make(map[uint]bool),
		inCart:     make(map[uint]bool),
		subscribed: make(map[uint]bool),
	}
	if userID == 0 {
		return rel
	}

	var favorites []models.Favorite
	db.Where("user_id = ?", userID).Find(&favorites)
	for _, f := range favorites {
		rel.favorited[f.RecipeID] = true
	}

	var cartEntries []models.ShoppingCart
	db.Where("user_id = ?", userID).Find(&cartEntries)
	for _, e := range cartEntries {
		rel.inCart[e.RecipeID] = true
	}

	var subscriptions []models.Subscription
	db.Where("user_id = ?", userID).Find(&subscriptions)
	for _, s := range subscriptions {
		rel.subscribed[s.AuthorID] = true
	}

	return rel
}

func recipeToResponse(recipe models.Recipe, rel userRelations) RecipeResponse {
	tags := make([]TagResponse, len(recipe.Tags))
	for i, t := range recipe.Tags {
		tags[i] = TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
	}

	ingredients := make([]IngredientInRecipeResponse, len(recipe.Ingredients))
	for i, ri := range recipe.Ingredients {
		ingredients[i] = IngredientInRecipeResponse{
			ID:              ri.IngredientID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		}
	}

	return RecipeResponse{
		ID:   recipe.ID,
		Tags: tags,
		Author: AuthorResponse{
			ID:           recipe.Author.ID,
			Email:        recipe.Author.Email,
			Username:     recipe.Author.Username,
			FirstName:    recipe.Author.FirstName,
			LastName:     recipe.Author.LastName,
			Avatar:       recipe.Author.Avatar,
			IsSubscribed: rel.subscribed[recipe.AuthorID],
		},
		Ingredients:      ingredients,
		IsFavorited:      rel.favorited[recipe.ID],
		IsInShoppingCart: rel.inCart[recipe.ID],
		Name:             recipe.Name,
		Image:            recipe.Image,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
		ShortLink:        recipe.ShortLink,
		CreatedAt:        recipe.CreatedAt.UTC().Format(time.RFC3339),
	}
}
