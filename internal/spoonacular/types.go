package spoonacular

import (
	"html"
	"regexp"
	"strings"

	"philcali.me/chefbot/internal/data"
)

type SearchHit struct {
	Id    int64  `json:"id"`
	Title string `json:"title"`
	Image string `json:"image"`
}

type ExtendedIngredient struct {
	Original string `json:"original"`
}

type Information struct {
	Id                  int64                `json:"id"`
	Title               string               `json:"title"`
	ReadyInMinutes      int                  `json:"readyInMinutes"`
	ExtendedIngredients []ExtendedIngredient `json:"extendedIngredients"`
	Instructions        *string              `json:"instructions"`
	Image               string               `json:"image"`
}

func _optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func ToSummary(hit SearchHit) data.RecipeSummary {
	return data.RecipeSummary{
		ID:       hit.Id,
		Title:    hit.Title,
		ImageURL: _optional(hit.Image),
	}
}

func ToDetail(info Information) data.RecipeDetail {
	ingredients := make([]string, 0, len(info.ExtendedIngredients))
	for _, ing := range info.ExtendedIngredients {
		if line := strings.TrimSpace(ing.Original); line != "" {
			ingredients = append(ingredients, line)
		}
	}
	var instructions *string
	if info.Instructions != nil {
		instructions = _optional(PlainText(*info.Instructions))
	}
	return data.RecipeDetail{
		ID:             info.Id,
		Title:          info.Title,
		ReadyInMinutes: info.ReadyInMinutes,
		Ingredients:    ingredients,
		Instructions:   instructions,
		ImageURL:       _optional(info.Image),
	}
}

var (
	lineBreaks = regexp.MustCompile(`(?i)<br\s*/?>|</(p|li|ol|ul|div)>`)
	tags       = regexp.MustCompile(`<[^>]*>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// PlainText reduces the provider's HTML instructions to plain text.
func PlainText(markup string) string {
	text := lineBreaks.ReplaceAllString(markup, "\n")
	text = tags.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}
