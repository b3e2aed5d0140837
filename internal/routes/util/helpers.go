package util

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/chefbot/internal/data"
	"philcali.me/chefbot/internal/exceptions"
)

func IdentityThunk[T any](thing T) T {
	return thing
}

func SerializeResponse[T interface{}, R interface{}](delayed func(T) R, thing T, err error, statusCode int) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	body, err := json.Marshal(delayed(thing))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	headers := map[string]string{
		"Content-Type":   "application/json",
		"Content-Length": strconv.Itoa(len(body)),
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

func SerializeResponseOK[T interface{}, R interface{}](delayed func(T) R, thing T, err error) (events.APIGatewayV2HTTPResponse, error) {
	return SerializeResponse(delayed, thing, err, 200)
}

func SerializeResponseNoContent(err error) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: 204,
	}, nil
}

// DecodeBody unmarshals the request body, undoing API Gateway's base64
// encoding when it was applied.
func DecodeBody(event events.APIGatewayV2HTTPRequest, out any) error {
	payload := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return exceptions.InvalidInput("Body is not valid base64.")
		}
		payload = decoded
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return exceptions.InvalidInput("Body is not valid JSON.")
	}
	return nil
}

// QueryParams reads the limit and nextToken query string parameters.
func QueryParams(event events.APIGatewayV2HTTPRequest) (data.QueryParams, error) {
	var params data.QueryParams
	if sLimit, ok := event.QueryStringParameters["limit"]; ok {
		limit, err := strconv.Atoi(sLimit)
		if err != nil {
			return params, exceptions.InvalidInput("Limit parameter was not a number type.")
		}
		params.Limit = limit
	}
	if token, ok := event.QueryStringParameters["nextToken"]; ok {
		params.NextToken = []byte(token)
	}
	return params, nil
}

func ConvertQueryResults[D interface{}, R interface{}](items data.QueryResults[D], thunk func(D) R) data.QueryResults[R] {
	if items.Items != nil {
		newItems := make([]R, len(items.Items))
		for i, rd := range items.Items {
			newItems[i] = thunk(rd)
		}
		return data.QueryResults[R]{
			Items:     newItems,
			NextToken: items.NextToken,
		}
	}
	return data.QueryResults[R]{
		Items: make([]R, 0),
	}
}
