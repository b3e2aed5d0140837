package data

// RecipeSummary is a single search hit. It lives only as long as the
// search result set it came from.
type RecipeSummary struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// RecipeDetail is always fetched live from the provider and never cached.
type RecipeDetail struct {
	ID             int64
	Title          string
	ReadyInMinutes int
	Ingredients    []string
	Instructions   *string
	ImageURL       *string
}

type SearchInput struct {
	Ingredients  []string
	Limit        int
	IgnorePantry bool
}
