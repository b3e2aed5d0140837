package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
	"philcali.me/chefbot/internal/exceptions"
	"philcali.me/chefbot/internal/routes/filters"
)

type Route func(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error)

// Service contributes routes keyed by "METHOD:/path/:param".
type Service interface {
	GetRoutes() map[string]Route
}

type paramsKey struct{}

// Params returns the path parameters matched for the current route.
func Params(ctx context.Context) map[string]string {
	if params, ok := ctx.Value(paramsKey{}).(map[string]string); ok {
		return params
	}
	return map[string]string{}
}

var paramPattern = regexp.MustCompile(":[^/]+")

type PathPattern struct {
	Path       string
	ParamNames []string
	matcher    *regexp.Regexp
}

func CompilePath(path string) PathPattern {
	pattern := PathPattern{Path: path}
	expr := paramPattern.ReplaceAllStringFunc(regexp.QuoteMeta(path), func(found string) string {
		pattern.ParamNames = append(pattern.ParamNames, found[1:])
		return "([^/]+)"
	})
	pattern.matcher = regexp.MustCompile("^" + expr + "$")
	return pattern
}

// Match extracts the path parameters when path fits the pattern.
func (p PathPattern) Match(path string) (map[string]string, bool) {
	values := p.matcher.FindStringSubmatch(path)
	if values == nil {
		return nil, false
	}
	params := make(map[string]string, len(p.ParamNames))
	for i, name := range p.ParamNames {
		params[name] = values[i+1]
	}
	return params, true
}

type RouteEntry struct {
	Method  string
	Pattern PathPattern
	Route   Route
}

type Router struct {
	Filters []filters.RequestFilter
	Routes  []RouteEntry
}

// NewRouter registers every service's routes behind the given filters,
// which run in order before any route. A malformed route key panics.
func NewRouter(fltrs []filters.RequestFilter, services ...Service) *Router {
	var entries []RouteEntry
	for _, service := range services {
		for composite, route := range service.GetRoutes() {
			method, path, ok := strings.Cut(composite, ":")
			if !ok || !strings.HasPrefix(path, "/") {
				panic(fmt.Sprintf("invalid route key %q", composite))
			}
			entries = append(entries, RouteEntry{
				Method:  method,
				Pattern: CompilePath(path),
				Route:   route,
			})
		}
	}
	return &Router{
		Routes:  entries,
		Filters: fltrs,
	}
}

func translateError(err error) events.APIGatewayV2HTTPResponse {
	statusCode := exceptions.StatusCode(err)
	if statusCode >= 500 {
		log.Error().Err(err).Int("status", statusCode).Msg("request failed")
	}
	body, _ := json.Marshal(map[string]string{"message": err.Error()})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"Content-Length": strconv.Itoa(len(body)),
		},
	}
}

func (r *Router) Invoke(event events.APIGatewayV2HTTPRequest, ctx context.Context) events.APIGatewayV2HTTPResponse {
	method := event.RequestContext.HTTP.Method
	log.Debug().Str("method", method).Str("path", event.RawPath).Msg("routing request")
	filterContext := filters.DefaultFilterContext(event, ctx)
	for _, filter := range r.Filters {
		updatedContext, broken := filter.Filter(filterContext)
		if broken {
			return *updatedContext.Response
		}
		filterContext = updatedContext
	}
	request := *filterContext.Request
	pathKnown := false
	for _, entry := range r.Routes {
		params, ok := entry.Pattern.Match(request.RawPath)
		if !ok {
			continue
		}
		if entry.Method != request.RequestContext.HTTP.Method {
			pathKnown = true
			continue
		}
		resp, err := entry.Route(request, context.WithValue(*filterContext.Context, paramsKey{}, params))
		if err != nil {
			return translateError(err)
		}
		return resp
	}
	if pathKnown {
		return translateError(&exceptions.ServiceError{
			StatusCode: 405,
			Cause:      fmt.Errorf("method %s not allowed on %s", method, event.RawPath),
		})
	}
	return translateError(exceptions.NotFound("route", event.RawPath))
}
