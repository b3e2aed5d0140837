package favorites

import (
	"context"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/chefbot/internal/data"
	"philcali.me/chefbot/internal/exceptions"
	"philcali.me/chefbot/internal/routes"
	"philcali.me/chefbot/internal/routes/util"
)

type Favorite struct {
	UserID   int64   `json:"userId"`
	RecipeID int64   `json:"recipeId"`
	Title    string  `json:"title"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

func NewFavorite(favorite data.Favorite) Favorite {
	return Favorite{
		UserID:   favorite.UserID,
		RecipeID: favorite.RecipeID,
		Title:    favorite.Title,
		ImageURL: favorite.ImageURL,
	}
}

// FavoritePage carries the continuation token as the string a caller
// passes back in the nextToken query parameter.
type FavoritePage struct {
	Items     []Favorite `json:"items"`
	NextToken *string    `json:"nextToken,omitempty"`
}

func NewFavoritePage(results data.QueryResults[data.Favorite]) FavoritePage {
	converted := util.ConvertQueryResults(results, NewFavorite)
	page := FavoritePage{Items: converted.Items}
	if len(converted.NextToken) > 0 {
		token := string(converted.NextToken)
		page.NextToken = &token
	}
	return page
}

// FavoriteService is a read and delete API over the favorites store for
// operators.
type FavoriteService struct {
	data data.FavoriteRepository
}

func NewRoute(repository data.FavoriteRepository) routes.Service {
	return &FavoriteService{
		data: repository,
	}
}

func (fs *FavoriteService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/favorites/:userId":              fs.ListFavorites,
		"GET:/favorites/:userId/:recipeId":    fs.GetFavorite,
		"DELETE:/favorites/:userId/:recipeId": fs.DeleteFavorite,
	}
}

func _getId(ctx context.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(routes.Params(ctx)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, exceptions.InvalidInput(name + " must be a positive integer.")
	}
	return id, nil
}

func (fs *FavoriteService) ListFavorites(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	userId, err := _getId(ctx, "userId")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	params, err := util.QueryParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	var items data.QueryResults[data.Favorite]
	if pager, ok := fs.data.(data.FavoritePager); ok {
		items, err = pager.ListPage(ctx, userId, params)
	} else {
		items.Items, err = fs.data.ListFor(ctx, userId)
	}
	return util.SerializeResponseOK(NewFavoritePage, items, err)
}

func (fs *FavoriteService) GetFavorite(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	userId, err := _getId(ctx, "userId")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	recipeId, err := _getId(ctx, "recipeId")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	favorite, err := fs.data.Find(ctx, userId, recipeId)
	return util.SerializeResponseOK(NewFavorite, favorite, err)
}

func (fs *FavoriteService) DeleteFavorite(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	userId, err := _getId(ctx, "userId")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	recipeId, err := _getId(ctx, "recipeId")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return util.SerializeResponseNoContent(fs.data.Delete(ctx, userId, recipeId))
}
