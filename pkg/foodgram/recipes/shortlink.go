package recipes

import (
	"errors"
	"math/rand"
	"strings"

	"gorm.io/gorm"

	"github.com/foodgram-app/foodgram/pkg/foodgram/models"
)

const (
	// shortLinkAlphabet is the 62-symbol token alphabet. At 62^6
	// combinations the collision probability stays negligible for any
	// realistic recipe count.
	shortLinkAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	shortLinkLength   = 6

	maxShortLinkAttempts = 10
)

// ErrShortLinkExhausted is returned when no free token could be found
// within the attempt budget. Not reachable in practice unless the token
// space is pathologically full.
var ErrShortLinkExhausted = errors.New("short link space exhausted")

// shortLinkCandidate produces candidate tokens. Swapped out in tests to
// force collisions.
var shortLinkCandidate = randomToken

// randomToken draws length characters uniformly (with replacement) from
// the short link alphabet.
func randomToken(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = shortLinkAlphabet[rand.Intn(len(shortLinkAlphabet))]
	}
	return string(b)
}

// uniqueShortLink generates a token not currently assigned to any
// recipe. It only reads from storage; the caller persists the token.
func uniqueShortLink(db *gorm.DB) (string, error) {
	for attempts := 0; attempts < maxShortLinkAttempts; attempts++ {
		token := shortLinkCandidate(shortLinkLength)

		var existing models.Recipe
		err := db.Where("short_link = ?", token).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return token, nil
		}
		if err != nil {
			return "", err
		}
		// Token taken, regenerate
	}
	return "", ErrShortLinkExhausted
}

// isShortLinkConflict reports whether err is a unique-index violation on
// the short link column. Other constraint failures mentioning the column
// (NOT NULL, CHECK) must not be retried.
func isShortLinkConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: recipes.short_link")
}

// createWithShortLink assigns a fresh token to the recipe and persists
// it. The generate-then-check-then-save sequence is not atomic, so two
// concurrent creations can race for the same token; the unique index on
// short_link is the actual guarantee, and a conflicting save is retried
// with a new token without surfacing to the caller.
func createWithShortLink(db *gorm.DB, recipe *models.Recipe) error {
	for attempts := 0; attempts < maxShortLinkAttempts; attempts++ {
		token, err := uniqueShortLink(db)
		if err != nil {
			return err
		}
		recipe.ShortLink = token

		err = db.Create(recipe).Error
		if err == nil {
			return nil
		}
		if !isShortLinkConflict(err) {
			return err
		}
		// Lost the race for this token, try again with a fresh one
	}
	return ErrShortLinkExhausted
}
