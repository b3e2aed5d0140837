package webhook

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"philcali.me/chefbot/internal/routes"
	"philcali.me/chefbot/internal/routes/util"
)

// Dispatcher handles one Telegram update; *telegram.Bot implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update) error
}

type Health struct {
	Status string `json:"status"`
}

type WebhookService struct {
	Bot Dispatcher
}

func NewRoute(bot Dispatcher) routes.Service {
	return &WebhookService{
		Bot: bot,
	}
}

func (ws *WebhookService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"POST:/telegram": ws.ReceiveUpdate,
		"GET:/health":    ws.GetHealth,
	}
}

// ReceiveUpdate acknowledges every well-formed update, even one whose
// handling failed, since Telegram would otherwise redeliver it.
func (ws *WebhookService) ReceiveUpdate(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	var update tgbotapi.Update
	if err := util.DecodeBody(event, &update); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	if err := ws.Bot.Dispatch(ctx, update); err != nil {
		log.Error().Err(err).Int("update", update.UpdateID).Msg("failed to handle update")
	}
	return events.APIGatewayV2HTTPResponse{StatusCode: 200}, nil
}

func (ws *WebhookService) GetHealth(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	return util.SerializeResponseOK(util.IdentityThunk[Health], Health{Status: "ok"}, nil)
}
