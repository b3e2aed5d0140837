package data

import (
	"context"
	"time"
)

// Favorite is a saved (user, recipe) pair. Title and ImageURL are a
// snapshot taken at save time and are never refreshed.
type Favorite struct {
	UserID   int64   `json:"userId"`
	RecipeID int64   `json:"recipeId"`
	Title    string  `json:"title"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

type FavoriteDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	UserID     int64     `dynamodbav:"userId"`
	RecipeID   int64     `dynamodbav:"recipeId"`
	Title      string    `dynamodbav:"title"`
	ImageURL   *string   `dynamodbav:"imageUrl,omitempty"`
	CreateTime time.Time `dynamodbav:"createTime"`
}

func (dto FavoriteDTO) ToFavorite() Favorite {
	return Favorite{
		UserID:   dto.UserID,
		RecipeID: dto.RecipeID,
		Title:    dto.Title,
		ImageURL: dto.ImageURL,
	}
}

// FavoriteFromSummary snapshots a search hit for the given user.
func FavoriteFromSummary(userID int64, summary RecipeSummary) Favorite {
	return Favorite{
		UserID:   userID,
		RecipeID: summary.ID,
		Title:    summary.Title,
		ImageURL: summary.ImageURL,
	}
}

// FavoriteRepository is the durable favorites store. Rows are keyed by
// (UserID, RecipeID).
type FavoriteRepository interface {
	// InsertIfAbsent stores the favorite unless the key already exists, in
	// which case it does nothing and returns nil.
	InsertIfAbsent(ctx context.Context, favorite Favorite) error
	ListFor(ctx context.Context, userID int64) ([]Favorite, error)
	// Find returns an *exceptions.NotFoundError when the row is absent.
	Find(ctx context.Context, userID int64, recipeID int64) (Favorite, error)
	// Delete is a no-op for an absent row.
	Delete(ctx context.Context, userID int64, recipeID int64) error
}

// FavoritePager is implemented by stores that can page through a user's
// favorites with an opaque continuation token.
type FavoritePager interface {
	ListPage(ctx context.Context, userID int64, params QueryParams) (QueryResults[Favorite], error)
}
