package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/chefbot/internal/notifications"
)

func _getRecordImage(record events.DynamoDBEventRecord) map[string]events.DynamoDBAttributeValue {
	if record.Change.NewImage != nil {
		return record.Change.NewImage
	}
	return record.Change.OldImage
}

func _attribute(image map[string]events.DynamoDBAttributeValue, name string) string {
	value, ok := image[name]
	if !ok {
		return ""
	}
	switch value.DataType() {
	case events.DataTypeString:
		return value.String()
	case events.DataTypeNumber:
		return value.Number()
	}
	return ""
}

func isFavorite(pk string) bool {
	return strings.HasSuffix(pk, ":Favorite")
}

// FavoriteChangeHandler announces saved and removed favorites.
type FavoriteChangeHandler struct {
	Publisher notifications.Publisher
}

func (fh *FavoriteChangeHandler) Filter(record events.DynamoDBEventRecord) bool {
	switch record.EventName {
	case "INSERT", "REMOVE":
		return isFavorite(_attribute(record.Change.Keys, "PK"))
	}
	return false
}

func (fh *FavoriteChangeHandler) Apply(ctx context.Context, record events.DynamoDBEventRecord) error {
	image := _getRecordImage(record)
	userId := strings.Split(_attribute(record.Change.Keys, "PK"), ":")[0]
	recipeId := _attribute(record.Change.Keys, "SK")
	title := _attribute(image, "title")
	action := "saved"
	phrase := "was saved to"
	if record.EventName == "REMOVE" {
		action = "removed"
		phrase = "was removed from"
	}
	err := fh.Publisher.Publish(ctx, notifications.Message{
		Subject: fmt.Sprintf("Favorite %s", action),
		Body:    fmt.Sprintf("Recipe %s (%s) %s favorites of user %s", recipeId, title, phrase, userId),
		Attributes: map[string]string{
			"action":   action,
			"userId":   userId,
			"recipeId": recipeId,
		},
	})
	if err != nil {
		return fmt.Errorf("publishing favorite %s for user %s: %w", recipeId, userId, err)
	}
	return nil
}

func DefaultFavoriteHandler(publisher notifications.Publisher) *FavoriteChangeHandler {
	return &FavoriteChangeHandler{
		Publisher: publisher,
	}
}
