package favorites

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/chefbot/internal/data"
	"philcali.me/chefbot/internal/dynamodb/token"
	"philcali.me/chefbot/internal/exceptions"
)

const ENTITY = "Favorite"

// API is the subset of the DynamoDB client the store uses.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// FavoriteDynamoDBService stores favorites as PK="<userId>:Favorite",
// SK="<recipeId>". Insert-if-absent is a conditional put.
type FavoriteDynamoDBService struct {
	DynamoDB       API
	TableName      string
	TokenMarshaler token.TokenMarshaler
	Now            func() time.Time
}

var _ data.FavoriteRepository = (*FavoriteDynamoDBService)(nil)

func NewFavoriteService(tableName string, client API, marshaler token.TokenMarshaler) *FavoriteDynamoDBService {
	return &FavoriteDynamoDBService{
		DynamoDB:       client,
		TableName:      tableName,
		TokenMarshaler: marshaler,
		Now:            time.Now,
	}
}

func PrimaryKey(userId int64) string {
	return fmt.Sprintf("%d:%s", userId, ENTITY)
}

func SortKey(recipeId int64) string {
	return strconv.FormatInt(recipeId, 10)
}

func _getKey(userId int64, recipeId int64) (map[string]types.AttributeValue, error) {
	pk, err := attributevalue.Marshal(PrimaryKey(userId))
	if err != nil {
		return nil, err
	}
	sk, err := attributevalue.Marshal(SortKey(recipeId))
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{"PK": pk, "SK": sk}, nil
}

func (fs *FavoriteDynamoDBService) InsertIfAbsent(ctx context.Context, favorite data.Favorite) error {
	shim := data.FavoriteDTO{
		PK:         PrimaryKey(favorite.UserID),
		SK:         SortKey(favorite.RecipeID),
		UserID:     favorite.UserID,
		RecipeID:   favorite.RecipeID,
		Title:      favorite.Title,
		ImageURL:   favorite.ImageURL,
		CreateTime: fs.Now(),
	}
	item, err := attributevalue.MarshalMap(shim)
	if err != nil {
		return exceptions.StorageFailure("insert favorite", err)
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists().And(expression.Name("SK").AttributeNotExists())).Build()
	if err != nil {
		return exceptions.StorageFailure("insert favorite", err)
	}
	_, err = fs.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		Item:                     item,
		TableName:                aws.String(fs.TableName),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return nil
		}
		return exceptions.StorageFailure("insert favorite", err)
	}
	return nil
}

// ListPage returns a single page of the user's favorites ordered by recipe
// id; pass the returned NextToken to continue.
func (fs *FavoriteDynamoDBService) ListPage(ctx context.Context, userId int64, params data.QueryParams) (data.QueryResults[data.Favorite], error) {
	scope := strconv.FormatInt(userId, 10)
	keyEx := expression.Key("PK").Equal(expression.Value(PrimaryKey(userId)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return data.QueryResults[data.Favorite]{}, exceptions.StorageFailure("list favorites", err)
	}
	startKey, err := fs.TokenMarshaler.Unmarshal(scope, params.NextToken)
	if err != nil {
		return data.QueryResults[data.Favorite]{}, exceptions.InvalidInput("Invalid next token")
	}
	output, err := fs.DynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(fs.TableName),
		Limit:                     params.GetLimit(),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         startKey,
	})
	if err != nil {
		return data.QueryResults[data.Favorite]{}, exceptions.StorageFailure("list favorites", err)
	}
	var items []data.FavoriteDTO
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &items); err != nil {
		return data.QueryResults[data.Favorite]{}, exceptions.StorageFailure("list favorites", err)
	}
	nextToken, err := fs.TokenMarshaler.Marshal(scope, output.LastEvaluatedKey)
	if err != nil {
		return data.QueryResults[data.Favorite]{}, exceptions.StorageFailure("list favorites", err)
	}
	favorites := make([]data.Favorite, len(items))
	for i, item := range items {
		favorites[i] = item.ToFavorite()
	}
	return data.QueryResults[data.Favorite]{
		Items:     favorites,
		NextToken: nextToken,
	}, nil
}

func (fs *FavoriteDynamoDBService) ListFor(ctx context.Context, userId int64) ([]data.Favorite, error) {
	favorites := make([]data.Favorite, 0)
	params := data.QueryParams{Limit: data.MaxPageSize}
	for {
		page, err := fs.ListPage(ctx, userId, params)
		if err != nil {
			return nil, err
		}
		favorites = append(favorites, page.Items...)
		if len(page.NextToken) == 0 {
			return favorites, nil
		}
		params.NextToken = page.NextToken
	}
}

func (fs *FavoriteDynamoDBService) Find(ctx context.Context, userId int64, recipeId int64) (data.Favorite, error) {
	key, err := _getKey(userId, recipeId)
	if err != nil {
		return data.Favorite{}, exceptions.StorageFailure("find favorite", err)
	}
	response, err := fs.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(fs.TableName),
		Key:       key,
	})
	if err != nil {
		return data.Favorite{}, exceptions.StorageFailure("find favorite", err)
	}
	if response.Item == nil {
		return data.Favorite{}, exceptions.NotFound("favorite", SortKey(recipeId))
	}
	var shim data.FavoriteDTO
	if err := attributevalue.UnmarshalMap(response.Item, &shim); err != nil {
		return data.Favorite{}, exceptions.StorageFailure("find favorite", err)
	}
	return shim.ToFavorite(), nil
}

func (fs *FavoriteDynamoDBService) Delete(ctx context.Context, userId int64, recipeId int64) error {
	key, err := _getKey(userId, recipeId)
	if err != nil {
		return exceptions.StorageFailure("delete favorite", err)
	}
	_, err = fs.DynamoDB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		Key:       key,
		TableName: aws.String(fs.TableName),
	})
	if err != nil {
		return exceptions.StorageFailure("delete favorite", err)
	}
	return nil
}
