package provider

import (
	"context"

	"philcali.me/chefbot/internal/data"
)

// RecipeProvider is the external recipe search and detail service. Calls
// are independent; repeating one may legitimately return newer data.
type RecipeProvider interface {
	// Search returns an *exceptions.ProviderUnavailableError on failure and
	// an empty slice when nothing matched.
	Search(ctx context.Context, input data.SearchInput) ([]data.RecipeSummary, error)
	// Lookup returns an *exceptions.NotFoundError for unknown ids and an
	// *exceptions.ProviderUnavailableError on any other failure.
	Lookup(ctx context.Context, recipeID int64) (data.RecipeDetail, error)
}
