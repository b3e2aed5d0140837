package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"philcali.me/chefbot/internal/app"
	"philcali.me/chefbot/internal/config"
	"philcali.me/chefbot/internal/logger"
	"philcali.me/chefbot/internal/routes"
	"philcali.me/chefbot/internal/routes/favorites"
	"philcali.me/chefbot/internal/routes/filters"
	"philcali.me/chefbot/internal/routes/webhook"
	"philcali.me/chefbot/internal/telegram"
)

type App struct {
	Router routes.Router
}

func NewApp(ctx context.Context) App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init("chefbot-webhook", cfg.IsDevelopment(), cfg.Log.Level)
	if cfg.Telegram.WebhookSecret == "" {
		logger.Logger.Fatal().Msg("telegram.webhook_secret is required for the webhook")
	}
	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to assemble application")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to create Telegram bot")
	}
	services := []routes.Service{
		webhook.NewRoute(telegram.NewBot(api, application.Controller)),
	}
	if cfg.Admin.Token != "" {
		services = append(services, favorites.NewRoute(application.Favorites))
	}
	router := routes.NewRouter(
		[]filters.RequestFilter{
			filters.TelegramSecretFilter(cfg.Telegram.WebhookSecret),
			filters.AdminTokenFilter(cfg.Admin.Token),
		},
		services...,
	)
	return App{
		Router: *router,
	}
}

func (app *App) HandleRequest(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return app.Router.Invoke(request, ctx), nil
}

func main() {
	app := NewApp(context.Background())
	lambda.Start(app.HandleRequest)
}
