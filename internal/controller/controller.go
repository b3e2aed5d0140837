// Package controller turns conversation events into provider calls, cache
// and favorites mutations, and rendered views.
package controller

import (
	"context"
	"errors"
	"strings"

	"philcali.me/chefbot/internal/action"
	"philcali.me/chefbot/internal/data"
	"philcali.me/chefbot/internal/exceptions"
	"philcali.me/chefbot/internal/logger"
	"philcali.me/chefbot/internal/metrics"
	"philcali.me/chefbot/internal/provider"
	"philcali.me/chefbot/internal/session"
)

const DefaultLimit = 5

type Controller struct {
	Provider     provider.RecipeProvider
	Favorites    data.FavoriteRepository
	Sessions     *session.Registry
	Limit        int
	IgnorePantry bool
}

type Option func(*Controller)

func WithLimit(limit int) Option {
	return func(c *Controller) {
		if limit > 0 {
			c.Limit = limit
		}
	}
}

func WithIgnorePantry(ignore bool) Option {
	return func(c *Controller) {
		c.IgnorePantry = ignore
	}
}

func NewController(recipes provider.RecipeProvider, favorites data.FavoriteRepository, sessions *session.Registry, opts ...Option) *Controller {
	c := &Controller{
		Provider:     recipes,
		Favorites:    favorites,
		Sessions:     sessions,
		Limit:        DefaultLimit,
		IgnorePantry: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle processes one event to completion. Events of the same
// conversation are serialized on the session's turn lock. Expected
// failures are rendered to the user; only rendering errors are returned.
func (c *Controller) Handle(ctx context.Context, ev Event, view View) error {
	s := c.Sessions.Acquire(ev.ConversationID)
	s.Lock()
	defer s.Unlock()

	ctx = logger.WithConversation(ctx, ev.ConversationID, ev.UserID, s.ID)
	metrics.Events.WithLabelValues(ev.label()).Inc()
	logger.From(ctx).Debug().
		Str("event", ev.label()).
		Stringer("state", s.State()).
		Msg("handling event")

	var err error
	switch ev.Kind {
	case TextEvent:
		err = c.search(ctx, s, ev, view)
	case CommandEvent:
		err = c.command(ctx, s, ev, view)
	case ActionEvent:
		err = c.dispatch(ctx, s, ev, view)
	default:
		err = exceptions.InvalidInput("unsupported event")
	}
	return c.render(ctx, err, view)
}

// render reports a handler failure to the user. Errors the controller does
// not recognize come from the view itself and are returned.
func (c *Controller) render(ctx context.Context, err error, view View) error {
	if err == nil {
		return nil
	}
	log := logger.From(ctx)
	var (
		empty       *exceptions.ProviderEmptyError
		stale       *exceptions.StaleSelectionError
		notFound    *exceptions.NotFoundError
		unavailable *exceptions.ProviderUnavailableError
		storage     *exceptions.StorageFailureError
		invalid     *exceptions.InvalidInputError
		message     string
		class       string
	)
	switch {
	case errors.As(err, &empty):
		class, message = "empty", MessageNotFound
	case errors.As(err, &stale):
		class, message = "stale", MessageStale
	case errors.As(err, &notFound):
		class, message = "not_found", MessageRecipeGone
		if notFound.Resource == "favorite" {
			message = MessageNotInFavorites
		}
	case errors.As(err, &unavailable):
		class, message = "provider", MessageFailure
		log.Error().Err(err).Msg("recipe provider unavailable")
	case errors.As(err, &storage):
		class, message = "storage", MessageFailure
		log.Error().Err(err).Msg("storage failure")
	case errors.As(err, &invalid):
		class, message = "invalid", MessageUsage
	default:
		log.Error().Err(err).Msg("failed to render response")
		return err
	}
	metrics.Failures.WithLabelValues(class).Inc()
	log.Debug().Err(err).Str("class", class).Msg("reporting failure to user")
	return view.Acknowledge(ctx, message)
}

func (c *Controller) search(ctx context.Context, s *session.Session, ev Event, view View) error {
	ingredients := ParseIngredients(ev.Text)
	if len(ingredients) == 0 {
		return view.Acknowledge(ctx, MessageUsage)
	}
	results, err := c.Provider.Search(ctx, data.SearchInput{
		Ingredients:  ingredients,
		Limit:        c.Limit,
		IgnorePantry: c.IgnorePantry,
	})
	if err != nil {
		// A failed search reads the same as an empty one to the user.
		metrics.Failures.WithLabelValues("provider").Inc()
		logger.From(ctx).Error().Err(err).Strs("ingredients", ingredients).Msg("recipe search failed")
		return exceptions.ProviderEmpty(strings.Join(ingredients, ","))
	}
	if len(results) == 0 {
		return exceptions.ProviderEmpty(strings.Join(ingredients, ","))
	}
	if err := s.Cache.Replace(ctx, results); err != nil {
		return exceptions.StorageFailure("session replace", err)
	}
	s.SetState(session.ResultsShown)
	cached, err := s.Cache.Results(ctx)
	if err != nil {
		return exceptions.StorageFailure("session results", err)
	}
	return view.PresentChoices(ctx, MessageResults, resultChoices(cached))
}

func (c *Controller) command(ctx context.Context, s *session.Session, ev Event, view View) error {
	switch ev.Command {
	case "favorites":
		return c.listFavorites(ctx, s, ev, view)
	case "stop":
		if err := c.Sessions.End(ctx, ev.ConversationID); err != nil {
			return exceptions.StorageFailure("session end", err)
		}
		s.SetState(session.Idle)
		return view.Acknowledge(ctx, MessageStopped)
	default:
		return view.Acknowledge(ctx, MessageHelp)
	}
}

func (c *Controller) dispatch(ctx context.Context, s *session.Session, ev Event, view View) error {
	a := ev.Action
	switch a.Kind {
	case action.ShowRecipe:
		return c.showRecipe(ctx, s, a.RecipeID, view)
	case action.SaveRecipe:
		return c.saveRecipe(ctx, s, ev.UserID, a.RecipeID, view)
	case action.Back:
		return c.backToList(ctx, s, view)
	case action.ShowFavorite:
		return c.showFavorite(ctx, s, ev.UserID, a.RecipeID, view)
	case action.DeleteFavorite:
		return c.deleteFavorite(ctx, s, ev.UserID, a.RecipeID, view)
	default:
		return exceptions.InvalidInput("unsupported action " + a.String())
	}
}

// resolve finds a recipe in the current result set; ids from any earlier
// search are stale.
func resolve(ctx context.Context, s *session.Session, recipeID int64) (data.RecipeSummary, error) {
	summary, ok, err := s.Cache.Lookup(ctx, recipeID)
	if err != nil {
		return summary, exceptions.StorageFailure("session lookup", err)
	}
	if !ok {
		return summary, exceptions.StaleSelection(recipeID)
	}
	return summary, nil
}

func (c *Controller) showRecipe(ctx context.Context, s *session.Session, recipeID int64, view View) error {
	summary, err := resolve(ctx, s, recipeID)
	if err != nil {
		return err
	}
	detail, err := c.Provider.Lookup(ctx, recipeID)
	if err != nil {
		return err
	}
	s.SetState(session.DetailShown)
	return view.PresentDetail(ctx, FormatDetail("🍲", detail), firstImage(detail.ImageURL, summary.ImageURL), []Choice{
		{Label: LabelSave, Action: action.Save(recipeID)},
		{Label: LabelBack, Action: action.BackToList()},
	})
}

func (c *Controller) saveRecipe(ctx context.Context, s *session.Session, userID int64, recipeID int64, view View) error {
	summary, err := resolve(ctx, s, recipeID)
	if err != nil {
		return err
	}
	if err := c.Favorites.InsertIfAbsent(ctx, data.FavoriteFromSummary(userID, summary)); err != nil {
		return err
	}
	logger.From(ctx).Info().Int64("recipe", recipeID).Msg("saved favorite")
	s.SetState(session.DetailShown)
	return view.Acknowledge(ctx, MessageSaved)
}

func (c *Controller) backToList(ctx context.Context, s *session.Session, view View) error {
	results, err := s.Cache.Results(ctx)
	if err != nil {
		return exceptions.StorageFailure("session results", err)
	}
	if len(results) == 0 {
		return exceptions.StaleSelection(0)
	}
	s.SetState(session.ResultsShown)
	return view.PresentChoices(ctx, MessageResults, resultChoices(results))
}

func (c *Controller) listFavorites(ctx context.Context, s *session.Session, ev Event, view View) error {
	favorites, err := c.Favorites.ListFor(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if len(favorites) == 0 {
		return view.Acknowledge(ctx, MessageNoFavorites)
	}
	s.SetState(session.FavoritesShown)
	return view.PresentChoices(ctx, MessageFavorites, favoriteChoices(favorites))
}

// showFavorite always renders the live detail; the stored snapshot only
// confirms the favorite exists and backs up a missing image.
func (c *Controller) showFavorite(ctx context.Context, s *session.Session, userID int64, recipeID int64, view View) error {
	favorite, err := c.Favorites.Find(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	detail, err := c.Provider.Lookup(ctx, recipeID)
	if err != nil {
		return err
	}
	s.SetState(session.FavoriteDetailShown)
	return view.PresentDetail(ctx, FormatDetail("⭐", detail), firstImage(detail.ImageURL, favorite.ImageURL), []Choice{
		{Label: LabelDelete, Action: action.Delete(recipeID)},
	})
}

func (c *Controller) deleteFavorite(ctx context.Context, s *session.Session, userID int64, recipeID int64, view View) error {
	if err := c.Favorites.Delete(ctx, userID, recipeID); err != nil {
		return err
	}
	logger.From(ctx).Info().Int64("recipe", recipeID).Msg("deleted favorite")
	s.SetState(session.FavoritesShown)
	if err := view.Acknowledge(ctx, MessageDeleted); err != nil {
		return err
	}
	return view.DeleteMessage(ctx)
}
