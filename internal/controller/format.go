package controller

import (
	"fmt"
	"strings"

	"philcali.me/chefbot/internal/action"
	"philcali.me/chefbot/internal/data"
)

const (
	MessageHelp = "👨‍🍳 Hi! I'm a chef bot. Send me ingredients separated by commas and I'll find recipes!\n" +
		"Example: chicken, rice, onion\n\n" +
		"Commands:\n" +
		"/favorites – your saved recipes\n" +
		"/stop – forget the current search"
	MessageUsage          = "Send me ingredients separated by commas, e.g. chicken, rice, onion"
	MessageResults        = "🔍 Here is what I found:"
	MessageNotFound       = "😢 No recipes found. Try other ingredients."
	MessageStale          = "⌛ That list is out of date. Send your ingredients again."
	MessageRecipeGone     = "😢 That recipe is no longer available."
	MessageFailure        = "⚠️ Something went wrong. Please try again."
	MessageSaved          = "✅ Recipe saved to favorites!"
	MessageFavorites      = "⭐ Your saved recipes:"
	MessageNoFavorites    = "😢 You have no saved recipes."
	MessageNotInFavorites = "That recipe is no longer in your favorites."
	MessageDeleted        = "🗑 Recipe deleted!"
	MessageStopped        = "👋 Session ended. Send ingredients to start again."

	LabelSave   = "💾 Save"
	LabelBack   = "⬅ Back"
	LabelDelete = "🗑 Delete"

	NoInstructions = "No instructions provided."
)

// ParseIngredients splits a message on commas, dropping blank entries.
func ParseIngredients(text string) []string {
	var ingredients []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ingredients = append(ingredients, part)
		}
	}
	return ingredients
}

// FormatDetail lays out a recipe under the given heading icon.
func FormatDetail(icon string, detail data.RecipeDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", icon, detail.Title)
	fmt.Fprintf(&b, "⏳ Cooking time: %d min\n", detail.ReadyInMinutes)
	b.WriteString("📝 Ingredients:\n")
	for _, ingredient := range detail.Ingredients {
		fmt.Fprintf(&b, "- %s\n", ingredient)
	}
	b.WriteString("\n🔪 Instructions:\n")
	if detail.Instructions != nil && strings.TrimSpace(*detail.Instructions) != "" {
		b.WriteString(*detail.Instructions)
	} else {
		b.WriteString(NoInstructions)
	}
	return b.String()
}

func resultChoices(results []data.RecipeSummary) []Choice {
	choices := make([]Choice, 0, len(results))
	for _, r := range results {
		choices = append(choices, Choice{Label: r.Title, Action: action.Recipe(r.ID)})
	}
	return choices
}

func favoriteChoices(favorites []data.Favorite) []Choice {
	choices := make([]Choice, 0, len(favorites))
	for _, f := range favorites {
		choices = append(choices, Choice{Label: f.Title, Action: action.Favorite(f.RecipeID)})
	}
	return choices
}

func firstImage(urls ...*string) *string {
	for _, u := range urls {
		if u != nil && *u != "" {
			return u
		}
	}
	return nil
}
