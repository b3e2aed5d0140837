package filters

import (
	"context"
	"crypto/subtle"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// TelegramSecretHeader carries the secret_token registered with setWebhook.
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type FilterContext struct {
	Request  *events.APIGatewayV2HTTPRequest
	Response *events.APIGatewayV2HTTPResponse
	Context  *context.Context
}

type RequestFilter interface {
	Filter(ctx *FilterContext) (*FilterContext, bool)
}

// SecretTokenFilter rejects requests under PathPrefix whose Header does not
// carry Secret. An empty Secret disables the check.
type SecretTokenFilter struct {
	PathPrefix string
	Header     string
	Scheme     string
	Secret     string
}

func header(request *events.APIGatewayV2HTTPRequest, name string) (string, bool) {
	for key, value := range request.Headers {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return "", false
}

func (sf *SecretTokenFilter) Filter(ctx *FilterContext) (*FilterContext, bool) {
	if sf.Secret == "" || !strings.HasPrefix(ctx.Request.RawPath, sf.PathPrefix) {
		return ctx, false
	}
	if value, ok := header(ctx.Request, sf.Header); ok {
		value = strings.TrimSpace(strings.TrimPrefix(value, sf.Scheme))
		if subtle.ConstantTimeCompare([]byte(value), []byte(sf.Secret)) == 1 {
			return ctx, false
		}
	}
	body := "{\"message\": \"Unauthorized\"}"
	return &FilterContext{
		Request: ctx.Request,
		Context: ctx.Context,
		Response: &events.APIGatewayV2HTTPResponse{
			Headers: map[string]string{
				"Content-Type":   "application/json",
				"Content-Length": strconv.Itoa(len(body)),
			},
			StatusCode: 401,
			Body:       body,
		},
	}, true
}

func DefaultFilterContext(event events.APIGatewayV2HTTPRequest, ctx context.Context) *FilterContext {
	return &FilterContext{
		Request: &event,
		Response: &events.APIGatewayV2HTTPResponse{
			StatusCode: 200,
		},
		Context: &ctx,
	}
}

// TelegramSecretFilter guards the webhook with the secret Telegram echoes
// back on every delivery.
func TelegramSecretFilter(secret string) *SecretTokenFilter {
	return &SecretTokenFilter{
		PathPrefix: "/telegram",
		Header:     TelegramSecretHeader,
		Secret:     secret,
	}
}

// AdminTokenFilter guards the favorites admin API with a bearer token.
func AdminTokenFilter(token string) *SecretTokenFilter {
	return &SecretTokenFilter{
		PathPrefix: "/favorites",
		Header:     "Authorization",
		Scheme:     "Bearer ",
		Secret:     token,
	}
}
