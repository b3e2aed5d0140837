package main

import (
	"context"
	"fmt"

	lambdaEvents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"philcali.me/chefbot/internal/config"
	"philcali.me/chefbot/internal/events"
	"philcali.me/chefbot/internal/logger"
	"philcali.me/chefbot/internal/sns/services"
)

type App struct {
	Handlers []events.EventFilter
}

func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.LoadEvents()
	if err != nil {
		return nil, err
	}
	logger.Init("chefbot-events", cfg.IsDevelopment(), cfg.Log.Level)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	publisher := &services.NotificationSNSService{
		Sns:      sns.NewFromConfig(awsCfg),
		TopicArn: cfg.Events.TopicArn,
	}
	return &App{
		Handlers: []events.EventFilter{
			events.DefaultFavoriteHandler(publisher),
		},
	}, nil
}

func (app *App) HandleRequest(ctx context.Context, event lambdaEvents.DynamoDBEvent) error {
	failures := events.Process(ctx, event.Records, app.Handlers...)
	logger.Logger.Info().
		Int("records", len(event.Records)).
		Int("failures", failures).
		Msg("processed favorite stream batch")
	return nil
}

func main() {
	app, err := NewApp(context.Background())
	if err != nil {
		panic(fmt.Sprintf("Failed to start event processor: %s", err))
	}
	lambda.Start(app.HandleRequest)
}
