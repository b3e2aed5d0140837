package spoonacular

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"philcali.me/chefbot/internal/data"
	"philcali.me/chefbot/internal/exceptions"
	"philcali.me/chefbot/internal/metrics"
	"philcali.me/chefbot/internal/provider"
)

const DefaultBaseURL = "https://api.spoonacular.com"

type Settings struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

type SpoonacularAPI struct {
	BaseURL string
	Token   string
	Client  *http.Client
	Limiter *rate.Limiter
}

var _ provider.RecipeProvider = (*SpoonacularAPI)(nil)

func NewClient(settings Settings) *SpoonacularAPI {
	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if settings.RatePerSecond > 0 {
		limit = rate.Limit(settings.RatePerSecond)
	}
	burst := settings.Burst
	if burst <= 0 {
		burst = 1
	}
	return &SpoonacularAPI{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   settings.Token,
		Client:  &http.Client{Timeout: timeout},
		Limiter: rate.NewLimiter(limit, burst),
	}
}

func NewDefaultClient(token string) provider.RecipeProvider {
	return NewClient(Settings{Token: token})
}

// _apiRequest returns the response body of a successful call. A 404 maps to
// a NotFound for the given resource id, everything else that is not a 200
// is a provider failure.
func _apiRequest(ctx context.Context, sc *SpoonacularAPI, operation string, resource string, params url.Values) ([]byte, error) {
	if err := sc.Limiter.Wait(ctx); err != nil {
		return nil, exceptions.ProviderUnavailable(operation, err)
	}
	params.Set("apiKey", sc.Token)
	reqURL := fmt.Sprintf("%s/%s?%s", sc.BaseURL, resource, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, exceptions.ProviderUnavailable(operation, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := sc.Client.Do(req)
	if err != nil {
		return nil, exceptions.ProviderUnavailable(operation, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exceptions.ProviderUnavailable(operation, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, exceptions.NotFound("recipe", resource)
	case resp.StatusCode != http.StatusOK:
		return nil, exceptions.ProviderUnavailable(operation, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	return body, nil
}

func (sc *SpoonacularAPI) Search(ctx context.Context, input data.SearchInput) (results []data.RecipeSummary, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProvider("search", start, err) }()

	params := url.Values{}
	params.Set("ingredients", strings.Join(input.Ingredients, ","))
	if input.Limit > 0 {
		params.Set("number", strconv.Itoa(input.Limit))
	}
	params.Set("ignorePantry", strconv.FormatBool(input.IgnorePantry))
	body, err := _apiRequest(ctx, sc, "search", "recipes/findByIngredients", params)
	if err != nil {
		return nil, err
	}
	var hits []SearchHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, exceptions.ProviderUnavailable("search", err)
	}
	results = make([]data.RecipeSummary, 0, len(hits))
	for _, hit := range hits {
		results = append(results, ToSummary(hit))
	}
	zerolog.Ctx(ctx).Debug().
		Strs("ingredients", input.Ingredients).
		Int("results", len(results)).
		Msg("searched recipes by ingredients")
	return results, nil
}

func (sc *SpoonacularAPI) Lookup(ctx context.Context, recipeID int64) (detail data.RecipeDetail, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProvider("lookup", start, err) }()

	resource := fmt.Sprintf("recipes/%d/information", recipeID)
	body, err := _apiRequest(ctx, sc, "lookup", resource, url.Values{})
	if err != nil {
		if _, ok := err.(*exceptions.NotFoundError); ok {
			return data.RecipeDetail{}, exceptions.NotFound("recipe", strconv.FormatInt(recipeID, 10))
		}
		return data.RecipeDetail{}, err
	}
	var info Information
	if err := json.Unmarshal(body, &info); err != nil {
		return data.RecipeDetail{}, exceptions.ProviderUnavailable("lookup", err)
	}
	if info.Id == 0 {
		info.Id = recipeID
	}
	return ToDetail(info), nil
}
