// Package action defines the typed button payloads exchanged with the chat
// transport. Callback data is parsed into an Action once, at the transport
// boundary, and never re-parsed downstream.
package action

import (
	"fmt"
	"strconv"
	"strings"

	"philcali.me/chefbot/internal/exceptions"
)

type Kind int

const (
	// ShowRecipe opens a search result's detail.
	ShowRecipe Kind = iota + 1
	// SaveRecipe stores the current search result as a favorite.
	SaveRecipe
	// ShowFavorite opens a saved favorite's detail.
	ShowFavorite
	// DeleteFavorite removes a favorite.
	DeleteFavorite
	// Back re-renders the current result list.
	Back
)

var kindNames = map[Kind]string{
	ShowRecipe:     "recipe",
	SaveRecipe:     "save",
	ShowFavorite:   "fav",
	DeleteFavorite: "delete",
	Back:           "back",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// HasRecipe reports whether actions of this kind carry a recipe id.
func (k Kind) HasRecipe() bool {
	return k != Back
}

type Action struct {
	Kind     Kind
	RecipeID int64
}

func Recipe(id int64) Action   { return Action{Kind: ShowRecipe, RecipeID: id} }
func Save(id int64) Action     { return Action{Kind: SaveRecipe, RecipeID: id} }
func Favorite(id int64) Action { return Action{Kind: ShowFavorite, RecipeID: id} }
func Delete(id int64) Action   { return Action{Kind: DeleteFavorite, RecipeID: id} }
func BackToList() Action       { return Action{Kind: Back} }

// Encode renders the action as callback data, e.g. "save_42" or "back".
func (a Action) Encode() string {
	if !a.Kind.HasRecipe() {
		return a.Kind.String()
	}
	return fmt.Sprintf("%s_%d", a.Kind, a.RecipeID)
}

func (a Action) String() string {
	return a.Encode()
}

// Parse decodes callback data produced by Encode.
func Parse(data string) (Action, error) {
	name, rawId, hasId := strings.Cut(data, "_")
	var kind Kind
	for k, n := range kindNames {
		if n == name {
			kind = k
			break
		}
	}
	if kind == 0 {
		return Action{}, exceptions.InvalidInput(fmt.Sprintf("Unknown action: %q", data))
	}
	if !kind.HasRecipe() {
		if hasId {
			return Action{}, exceptions.InvalidInput(fmt.Sprintf("Action %q takes no recipe id", data))
		}
		return Action{Kind: kind}, nil
	}
	if !hasId {
		return Action{}, exceptions.InvalidInput(fmt.Sprintf("Action %q is missing a recipe id", data))
	}
	id, err := strconv.ParseInt(rawId, 10, 64)
	if err != nil || id <= 0 {
		return Action{}, exceptions.InvalidInput(fmt.Sprintf("Action %q has an invalid recipe id", data))
	}
	return Action{Kind: kind, RecipeID: id}, nil
}
