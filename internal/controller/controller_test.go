package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"philcali.me/chefbot/internal/action"
	"philcali.me/chefbot/internal/data"
	"philcali.me/chefbot/internal/exceptions"
	"philcali.me/chefbot/internal/session"
)

type fakeProvider struct {
	mu        sync.Mutex
	results   map[string][]data.RecipeSummary
	details   map[int64]data.RecipeDetail
	searchErr error
	lookupErr error
	searches  []data.SearchInput
	lookups   []int64
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		results: make(map[string][]data.RecipeSummary),
		details: make(map[int64]data.RecipeDetail),
	}
}

func (p *fakeProvider) Search(ctx context.Context, input data.SearchInput) ([]data.RecipeSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches = append(p.searches, input)
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return p.results[fmt.Sprint(input.Ingredients)], nil
}

func (p *fakeProvider) Lookup(ctx context.Context, recipeID int64) (data.RecipeDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookups = append(p.lookups, recipeID)
	if p.lookupErr != nil {
		return data.RecipeDetail{}, p.lookupErr
	}
	detail, ok := p.details[recipeID]
	if !ok {
		return detail, exceptions.NotFound("recipe", strconv.FormatInt(recipeID, 10))
	}
	return detail, nil
}

type fakeFavorites struct {
	mu    sync.Mutex
	rows  []data.Favorite
	fail  error
	calls int
}

func (f *fakeFavorites) InsertIfAbsent(ctx context.Context, favorite data.Favorite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	for _, row := range f.rows {
		if row.UserID == favorite.UserID && row.RecipeID == favorite.RecipeID {
			return nil
		}
	}
	f.rows = append(f.rows, favorite)
	return nil
}

func (f *fakeFavorites) ListFor(ctx context.Context, userID int64) ([]data.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	var out []data.Favorite
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeFavorites) Find(ctx context.Context, userID int64, recipeID int64) (data.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return data.Favorite{}, f.fail
	}
	for _, row := range f.rows {
		if row.UserID == userID && row.RecipeID == recipeID {
			return row, nil
		}
	}
	return data.Favorite{}, exceptions.NotFound("favorite", strconv.FormatInt(recipeID, 10))
}

func (f *fakeFavorites) Delete(ctx context.Context, userID int64, recipeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	for i, row := range f.rows {
		if row.UserID == userID && row.RecipeID == recipeID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type rendered struct {
	kind    string
	text    string
	photo   *string
	choices []Choice
}

type recordingView struct {
	calls []rendered
	fail  error
}

func (v *recordingView) record(r rendered) error {
	v.calls = append(v.calls, r)
	return v.fail
}

func (v *recordingView) PresentChoices(ctx context.Context, text string, choices []Choice) error {
	return v.record(rendered{kind: "choices", text: text, choices: choices})
}

func (v *recordingView) PresentDetail(ctx context.Context, text string, photoURL *string, choices []Choice) error {
	return v.record(rendered{kind: "detail", text: text, photo: photoURL, choices: choices})
}

func (v *recordingView) Acknowledge(ctx context.Context, text string) error {
	return v.record(rendered{kind: "ack", text: text})
}

func (v *recordingView) DeleteMessage(ctx context.Context) error {
	return v.record(rendered{kind: "delete"})
}

func (v *recordingView) last(t *testing.T) rendered {
	t.Helper()
	require.NotEmpty(t, v.calls, "nothing was rendered")
	return v.calls[len(v.calls)-1]
}

func ptr(s string) *string {
	return &s
}

const (
	chat = int64(100)
	user = int64(7)
)

type harness struct {
	provider  *fakeProvider
	favorites *fakeFavorites
	sessions  *session.Registry
	ctrl      *Controller
}

func newHarness() *harness {
	h := &harness{
		provider:  newFakeProvider(),
		favorites: &fakeFavorites{},
		sessions:  session.NewRegistry(session.MemoryFactory, 0),
	}
	h.ctrl = NewController(h.provider, h.favorites, h.sessions)
	return h
}

func (h *harness) handle(t *testing.T, ev Event) *recordingView {
	t.Helper()
	view := &recordingView{}
	require.NoError(t, h.ctrl.Handle(context.Background(), ev, view))
	return view
}

func (h *harness) state(t *testing.T) session.State {
	t.Helper()
	s, ok := h.sessions.Get(chat)
	require.True(t, ok)
	return s.State()
}

func fiveResults() []data.RecipeSummary {
	return []data.RecipeSummary{
		{ID: 11, Title: "Omelette", ImageURL: ptr("https://img/11.jpg")},
		{ID: 12, Title: "Frittata"},
		{ID: 13, Title: "Shakshuka", ImageURL: ptr("https://img/13.jpg")},
		{ID: 14, Title: "Quiche"},
		{ID: 15, Title: "Scramble"},
	}
}

func TestNewController(t *testing.T) {
	c := NewController(nil, nil, nil)
	assert.Equal(t, DefaultLimit, c.Limit)
	assert.True(t, c.IgnorePantry)

	c = NewController(nil, nil, nil, WithLimit(3), WithIgnorePantry(false), WithLimit(0))
	assert.Equal(t, 3, c.Limit)
	assert.False(t, c.IgnorePantry)
}

func TestSearchAndSelect(t *testing.T) {
	h := newHarness()
	h.provider.results["[egg]"] = fiveResults()
	h.provider.details[13] = data.RecipeDetail{
		ID:             13,
		Title:          "Shakshuka",
		ReadyInMinutes: 30,
		Ingredients:    []string{"4 eggs", "1 can tomatoes"},
		Instructions:   ptr("Simmer the sauce. Crack the eggs."),
	}

	view := h.handle(t, Text(chat, user, " egg ,"))
	require.Len(t, h.provider.searches, 1)
	assert.Equal(t, data.SearchInput{Ingredients: []string{"egg"}, Limit: 5, IgnorePantry: true}, h.provider.searches[0])
	list := view.last(t)
	assert.Equal(t, "choices", list.kind)
	assert.Equal(t, MessageResults, list.text)
	require.Len(t, list.choices, 5)
	for i, r := range fiveResults() {
		assert.Equal(t, r.Title, list.choices[i].Label)
		assert.Equal(t, action.Recipe(r.ID), list.choices[i].Action)
	}
	assert.Equal(t, session.ResultsShown, h.state(t))

	view = h.handle(t, Pressed(chat, user, list.choices[2].Action))
	assert.Equal(t, []int64{13}, h.provider.lookups)
	detail := view.last(t)
	assert.Equal(t, "detail", detail.kind)
	assert.Contains(t, detail.text, "🍲 Shakshuka")
	assert.Contains(t, detail.text, "⏳ Cooking time: 30 min")
	assert.Contains(t, detail.text, "- 4 eggs\n- 1 can tomatoes")
	assert.Contains(t, detail.text, "Crack the eggs.")
	require.NotNil(t, detail.photo)
	assert.Equal(t, "https://img/13.jpg", *detail.photo, "falls back to the search image")
	assert.Equal(t, []Choice{
		{Label: LabelSave, Action: action.Save(13)},
		{Label: LabelBack, Action: action.BackToList()},
	}, detail.choices)
	assert.Equal(t, session.DetailShown, h.state(t))
}

func TestSaveTwiceKeepsOneRow(t *testing.T) {
	h := newHarness()
	h.provider.results["[leek]"] = []data.RecipeSummary{{ID: 42, Title: "Soup"}}
	h.handle(t, Text(chat, user, "leek"))

	for i := 0; i < 2; i++ {
		view := h.handle(t, Pressed(chat, user, action.Save(42)))
		assert.Equal(t, rendered{kind: "ack", text: MessageSaved}, view.last(t))
	}

	favorites, err := h.favorites.ListFor(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, data.Favorite{UserID: user, RecipeID: 42, Title: "Soup"}, favorites[0])
	assert.Empty(t, h.provider.lookups, "saving does not fetch the detail")
}

func TestFavoriteDetailUsesLiveTitle(t *testing.T) {
	h := newHarness()
	h.favorites.rows = []data.Favorite{{UserID: user, RecipeID: 42, Title: "Soup", ImageURL: ptr("https://img/old.jpg")}}
	h.provider.details[42] = data.RecipeDetail{ID: 42, Title: "Soup v2", ReadyInMinutes: 20}

	view := h.handle(t, Command(chat, user, "favorites"))
	list := view.last(t)
	assert.Equal(t, MessageFavorites, list.text)
	assert.Equal(t, []Choice{{Label: "Soup", Action: action.Favorite(42)}}, list.choices)
	assert.Equal(t, session.FavoritesShown, h.state(t))

	view = h.handle(t, Pressed(chat, user, action.Favorite(42)))
	detail := view.last(t)
	assert.Contains(t, detail.text, "⭐ Soup v2")
	assert.NotContains(t, detail.text, "⭐ Soup\n")
	assert.Contains(t, detail.text, NoInstructions)
	require.NotNil(t, detail.photo)
	assert.Equal(t, "https://img/old.jpg", *detail.photo)
	assert.Equal(t, []Choice{{Label: LabelDelete, Action: action.Delete(42)}}, detail.choices)
	assert.Equal(t, session.FavoriteDetailShown, h.state(t))
}

func TestEmptySearchKeepsCache(t *testing.T) {
	h := newHarness()
	h.provider.results["[egg]"] = fiveResults()
	h.handle(t, Text(chat, user, "egg"))

	view := h.handle(t, Text(chat, user, "unobtainium"))
	assert.Equal(t, rendered{kind: "ack", text: MessageNotFound}, view.last(t))
	assert.Equal(t, session.ResultsShown, h.state(t))

	view = h.handle(t, Pressed(chat, user, action.BackToList()))
	assert.Len(t, view.last(t).choices, 5, "previous results are still cached")
}

func TestSearchFailureReadsAsNotFound(t *testing.T) {
	h := newHarness()
	h.provider.searchErr = exceptions.ProviderUnavailable("search", errors.New("timeout"))

	view := h.handle(t, Text(chat, user, "egg"))
	assert.Equal(t, rendered{kind: "ack", text: MessageNotFound}, view.last(t))
	assert.Equal(t, session.Idle, h.state(t))
}

func TestBlankIngredients(t *testing.T) {
	h := newHarness()
	view := h.handle(t, Text(chat, user, " , ,"))
	assert.Equal(t, rendered{kind: "ack", text: MessageUsage}, view.last(t))
	assert.Empty(t, h.provider.searches)
}

func TestStaleSelection(t *testing.T) {
	h := newHarness()
	h.provider.results["[egg]"] = fiveResults()
	h.provider.results["[leek]"] = []data.RecipeSummary{{ID: 42, Title: "Soup"}}
	h.handle(t, Text(chat, user, "egg"))
	h.handle(t, Text(chat, user, "leek"))

	t.Run("ShowRecipe", func(t *testing.T) {
		view := h.handle(t, Pressed(chat, user, action.Recipe(13)))
		assert.Equal(t, rendered{kind: "ack", text: MessageStale}, view.last(t))
		assert.Empty(t, h.provider.lookups)
	})

	t.Run("SaveRecipe", func(t *testing.T) {
		view := h.handle(t, Pressed(chat, user, action.Save(13)))
		assert.Equal(t, rendered{kind: "ack", text: MessageStale}, view.last(t))
		assert.Empty(t, h.favorites.rows)
	})

	t.Run("BackWithoutSearch", func(t *testing.T) {
		fresh := newHarness()
		view := fresh.handle(t, Pressed(chat, user, action.BackToList()))
		assert.Equal(t, rendered{kind: "ack", text: MessageStale}, view.last(t))
	})
}

func TestStorageFailure(t *testing.T) {
	h := newHarness()
	h.provider.results["[leek]"] = []data.RecipeSummary{{ID: 42, Title: "Soup"}}
	h.handle(t, Text(chat, user, "leek"))
	h.favorites.fail = exceptions.StorageFailure("insert favorite", errors.New("disk full"))

	for _, ev := range []Event{
		Pressed(chat, user, action.Save(42)),
		Command(chat, user, "favorites"),
		Pressed(chat, user, action.Favorite(42)),
		Pressed(chat, user, action.Delete(42)),
	} {
		t.Run(ev.label(), func(t *testing.T) {
			view := h.handle(t, ev)
			assert.Equal(t, []rendered{{kind: "ack", text: MessageFailure}}, view.calls)
		})
	}
}

func TestDetailProviderFailures(t *testing.T) {
	h := newHarness()
	h.provider.results["[egg]"] = fiveResults()
	h.handle(t, Text(chat, user, "egg"))

	t.Run("Gone", func(t *testing.T) {
		view := h.handle(t, Pressed(chat, user, action.Recipe(11)))
		assert.Equal(t, rendered{kind: "ack", text: MessageRecipeGone}, view.last(t))
	})

	t.Run("Unavailable", func(t *testing.T) {
		h.provider.lookupErr = exceptions.ProviderUnavailable("lookup", errors.New("502"))
		view := h.handle(t, Pressed(chat, user, action.Recipe(11)))
		assert.Equal(t, rendered{kind: "ack", text: MessageFailure}, view.last(t))
		assert.Equal(t, session.ResultsShown, h.state(t))
	})
}

func TestMissingFavorite(t *testing.T) {
	h := newHarness()
	view := h.handle(t, Pressed(chat, user, action.Favorite(9)))
	assert.Equal(t, rendered{kind: "ack", text: MessageNotInFavorites}, view.last(t))
	assert.Empty(t, h.provider.lookups)
}

func TestNoFavorites(t *testing.T) {
	h := newHarness()
	view := h.handle(t, Command(chat, user, "favorites"))
	assert.Equal(t, rendered{kind: "ack", text: MessageNoFavorites}, view.last(t))
	assert.Equal(t, session.Idle, h.state(t))
}

func TestDeleteFavorite(t *testing.T) {
	h := newHarness()
	h.favorites.rows = []data.Favorite{
		{UserID: user, RecipeID: 42, Title: "Soup"},
		{UserID: user + 1, RecipeID: 42, Title: "Soup"},
	}

	view := h.handle(t, Pressed(chat, user, action.Delete(42)))
	assert.Equal(t, []rendered{{kind: "ack", text: MessageDeleted}, {kind: "delete"}}, view.calls)
	assert.Equal(t, session.FavoritesShown, h.state(t))
	assert.Equal(t, []data.Favorite{{UserID: user + 1, RecipeID: 42, Title: "Soup"}}, h.favorites.rows)

	view = h.handle(t, Pressed(chat, user, action.Delete(42)))
	assert.Equal(t, MessageDeleted, view.calls[0].text, "deleting twice is harmless")
}

func TestCommands(t *testing.T) {
	h := newHarness()
	for _, command := range []string{"start", "help", "unknown"} {
		t.Run(command, func(t *testing.T) {
			view := h.handle(t, Command(chat, user, command))
			assert.Equal(t, rendered{kind: "ack", text: MessageHelp}, view.last(t))
		})
	}
}

func TestStopEndsSession(t *testing.T) {
	h := newHarness()
	h.provider.results["[egg]"] = fiveResults()
	h.handle(t, Text(chat, user, "egg"))
	first, ok := h.sessions.Get(chat)
	require.True(t, ok)

	view := h.handle(t, Command(chat, user, "STOP"))
	assert.Equal(t, rendered{kind: "ack", text: MessageStopped}, view.last(t))
	_, ok = h.sessions.Get(chat)
	assert.False(t, ok)
	results, err := first.Cache.Results(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results, "cache is cleared on stop")

	view = h.handle(t, Pressed(chat, user, action.Recipe(11)))
	assert.Equal(t, rendered{kind: "ack", text: MessageStale}, view.last(t))
	second, _ := h.sessions.Get(chat)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestViewErrorsAreReturned(t *testing.T) {
	h := newHarness()
	h.provider.results["[egg]"] = fiveResults()
	broken := errors.New("chat not found")

	err := h.ctrl.Handle(context.Background(), Text(chat, user, "egg"), &recordingView{fail: broken})
	assert.ErrorIs(t, err, broken)
}

func TestConversationsAreIsolated(t *testing.T) {
	h := newHarness()
	h.provider.results["[egg]"] = fiveResults()
	h.provider.results["[leek]"] = []data.RecipeSummary{{ID: 42, Title: "Soup"}}
	h.handle(t, Text(chat, user, "egg"))
	h.handle(t, Text(chat+1, user+1, "leek"))

	view := h.handle(t, Pressed(chat, user, action.Save(13)))
	assert.Equal(t, MessageSaved, view.last(t).text)

	view = &recordingView{}
	require.NoError(t, h.ctrl.Handle(context.Background(), Pressed(chat+1, user+1, action.Save(13)), view))
	assert.Equal(t, MessageStale, view.last(t).text)
}

func TestConcurrentEventsInOneConversation(t *testing.T) {
	h := newHarness()
	h.provider.results["[egg]"] = fiveResults()
	h.handle(t, Text(chat, user, "egg"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := Pressed(chat, user, action.Save(fiveResults()[i%5].ID))
			if i%2 == 0 {
				ev = Text(chat, user, "egg")
			}
			assert.NoError(t, h.ctrl.Handle(context.Background(), ev, &recordingView{}))
		}(i)
	}
	wg.Wait()

	favorites, err := h.favorites.ListFor(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, favorites, 5)
}

func TestParseIngredients(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"chicken, rice, onion", []string{"chicken", "rice", "onion"}},
		{"  tofu  ", []string{"tofu"}},
		{"a,,b, ,", []string{"a", "b"}},
		{"", nil},
		{" , ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIngredients(tt.in))
		})
	}
}

func TestFormatDetail(t *testing.T) {
	text := FormatDetail("🍲", data.RecipeDetail{
		Title:          "Toast",
		ReadyInMinutes: 5,
		Ingredients:    []string{"bread"},
		Instructions:   ptr("  "),
	})
	assert.Equal(t, "🍲 Toast\n\n⏳ Cooking time: 5 min\n📝 Ingredients:\n- bread\n\n🔪 Instructions:\n"+NoInstructions, text)
}
