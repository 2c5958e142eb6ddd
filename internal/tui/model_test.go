package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coupn-app/coupn/internal/app"
	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/search"
	"github.com/coupn-app/coupn/internal/testutil"
	"github.com/coupn-app/coupn/internal/testutil/promotions"
	"github.com/coupn-app/coupn/internal/voice"
)

// matcherFunc adapts a function to search.Matcher and counts calls.
type matcherFunc struct {
	fn    func(query string, list []model.Promotion) (model.RelevanceResult, error)
	calls int
	mu    sync.Mutex
}

func (m *matcherFunc) Match(_ context.Context, query string, list []model.Promotion) (model.RelevanceResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(query, list)
}

func (m *matcherFunc) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// byCompany answers every query with the positions of the named companies.
func byCompany(companies map[string][]string) *matcherFunc {
	return &matcherFunc{fn: func(query string, list []model.Promotion) (model.RelevanceResult, error) {
		indices := []int{}
		for _, want := range companies[query] {
			for i, p := range list {
				if p.Company == want {
					indices = append(indices, i)
				}
			}
		}
		return model.RelevanceResult{Indices: indices, Explanation: "matched " + query}, nil
	}}
}

type fakeClipboard struct {
	err  error
	text string
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.text = text
	return c.err
}

type failingStore struct {
	PromotionStore
}

func (failingStore) ListPromotions(context.Context, string) ([]model.Promotion, error) {
	return nil, errors.New("database is locked")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedToday() model.Date {
	return model.NewDate(2025, time.May, 15)
}

func newTestModel(t *testing.T, matcher search.Matcher, opts ...Option) (Model, *testutil.TestDB) {
	t.Helper()

	db := testutil.SetupTestDB(t, promotions.NewBuilder(t).
		WithFixture(promotions.FixtureSearch).
		Build())

	base := []Option{
		WithStore(db.Storage),
		WithState(app.NewState(db.UserID)),
		WithMatcher(matcher),
		WithLogger(discardLogger()),
		WithClock(fixedToday),
		WithClipboard(&fakeClipboard{}),
		WithSize(100, 60),
	}
	m, err := New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	return loaded(t, m), db
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update must return a Model")
	return out, cmd
}

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, m.loadPromotions()())
	return m
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeQuery focuses the search box and types query.
func typeQuery(t *testing.T, m Model, query string) Model {
	t.Helper()
	if !m.input.Focused() {
		m, _ = update(t, m, keys("/"))
	}
	m, _ = update(t, m, keys(query))
	return m
}

// submit presses enter and returns the pending search command.
func submit(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func companies(list []model.Promotion) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.Company)
	}
	return out
}

func TestNewRequiresStoreAndState(t *testing.T) {
	_, err := New(context.Background(), WithState(app.NewState("u")))
	assert.Error(t, err)

	db := testutil.SetupTestDB(t, nil)
	_, err = New(context.Background(), WithStore(db.Storage))
	assert.Error(t, err)
}

func TestLoadShowsEveryPromotion(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	assert.False(t, m.Loading())
	assert.Len(t, m.Visible(), 6)
	assert.False(t, m.Filter().IsActive())

	view := m.View()
	assert.Contains(t, view, "Welcome back, test-user")
	assert.Contains(t, view, "Nike")
	assert.Contains(t, view, "6 promotions")
	assert.NotContains(t, view, "No matching promotions")
}

func TestLoadingScreen(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)
	m, err := New(context.Background(),
		WithStore(db.Storage),
		WithState(app.NewState(db.UserID)),
		WithLogger(discardLogger()))
	require.NoError(t, err)

	assert.True(t, m.Loading())
	assert.Contains(t, m.View(), "Loading your promotions")
	assert.NotNil(t, m.Init())
}

func TestSearchFiltersToMatches(t *testing.T) {
	matcher := byCompany(map[string][]string{"shoes": {"Nike"}})
	m, _ := newTestModel(t, matcher)

	m = typeQuery(t, m, "shoes")
	m, cmd := submit(t, m)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Searching")

	m, _ = update(t, m, cmd())

	assert.Equal(t, []string{"Nike"}, companies(m.Visible()))
	assert.Equal(t, 1, matcher.Calls())
	assert.Contains(t, m.View(), "matched shoes")
}

func TestBlankSearchMakesNoCall(t *testing.T) {
	matcher := byCompany(nil)
	m, _ := newTestModel(t, matcher)

	m = typeQuery(t, m, "   ")
	m, cmd := submit(t, m)

	assert.Nil(t, cmd)
	assert.Equal(t, 0, matcher.Calls())
	assert.Len(t, m.Visible(), 6)
}

func TestSearchFailureShowsEverything(t *testing.T) {
	matcher := &matcherFunc{fn: func(string, []model.Promotion) (model.RelevanceResult, error) {
		return model.RelevanceResult{}, llm.NewError(llm.KindTimeout, "relevance", context.DeadlineExceeded)
	}}
	m, _ := newTestModel(t, matcher)

	m = typeQuery(t, m, "shoes")
	m, cmd := submit(t, m)
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.False(t, m.Filter().IsActive())
	assert.Len(t, m.Visible(), 6)
	assert.Empty(t, m.Notice(), "search failures are logged, not shown")
}

func TestDuplicateMatchesRenderTwice(t *testing.T) {
	matcher := byCompany(map[string][]string{"shoes": {"Nike", "Nike"}})
	m, _ := newTestModel(t, matcher)

	m = typeQuery(t, m, "shoes")
	m, cmd := submit(t, m)
	m, _ = update(t, m, cmd())

	assert.Equal(t, []string{"Nike", "Nike"}, companies(m.Visible()))
}

func TestLatestSearchWins(t *testing.T) {
	matcher := byCompany(map[string][]string{
		"shoes":       {"Nike"},
		"shoes pizza": {"Domino's"},
	})
	m, _ := newTestModel(t, matcher)

	m = typeQuery(t, m, "shoes")
	m, first := submit(t, m)
	require.NotNil(t, first)

	m = typeQuery(t, m, " pizza")
	m, second := submit(t, m)
	require.NotNil(t, second)

	m, _ = update(t, m, second())
	m, _ = update(t, m, first())

	assert.Equal(t, []string{"Domino's"}, companies(m.Visible()))
}

func TestTypingAfterSubmitKeepsPendingSearch(t *testing.T) {
	matcher := byCompany(map[string][]string{"shoes": {"Nike"}})
	m, _ := newTestModel(t, matcher)

	m = typeQuery(t, m, "shoes")
	m, cmd := submit(t, m)
	require.NotNil(t, cmd)

	m = typeQuery(t, m, " and")
	assert.Equal(t, search.Searching, m.search.State())
	assert.Contains(t, m.View(), "Searching")

	m, _ = update(t, m, cmd())

	assert.Equal(t, search.Idle, m.search.State())
	assert.Equal(t, []string{"Nike"}, companies(m.Visible()))
	assert.Equal(t, "shoes and", m.input.Value())
}

func TestEmptyMatchAffordance(t *testing.T) {
	m, _ := newTestModel(t, byCompany(map[string][]string{"yachts": {}}))

	m = typeQuery(t, m, "yachts")
	m, cmd := submit(t, m)
	m, _ = update(t, m, cmd())

	assert.True(t, m.Filter().IsEmptyMatch())
	assert.Empty(t, m.Visible())
	assert.Contains(t, m.View(), "No matching promotions")
}

func TestClearingSearchRestoresAll(t *testing.T) {
	m, _ := newTestModel(t, byCompany(map[string][]string{"shoes": {"Nike"}}))

	m = typeQuery(t, m, "shoes")
	m, cmd := submit(t, m)
	m, _ = update(t, m, cmd())
	require.Len(t, m.Visible(), 1)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlU})

	assert.False(t, m.Filter().IsActive())
	assert.Len(t, m.Visible(), 6)
}

func TestTypingInSearchDoesNotTriggerShortcuts(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	m = typeQuery(t, m, "q")
	m, _ = update(t, m, keys("d"))

	assert.Nil(t, m.pendingDelete)
	assert.False(t, m.quitting)
	assert.Equal(t, "qd", m.input.Value())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.input.Focused())
}

func TestCategoryToggles(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	// sports is the fourth category
	for range 3 {
		m, _ = update(t, m, keys("l"))
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, []string{"Nike"}, companies(m.Visible()))

	m, _ = update(t, m, keys("l"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.ElementsMatch(t, []string{"Nike"}, companies(m.Visible()), "health has no promotions")

	m, _ = update(t, m, keys("h"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Empty(t, m.Visible())
	assert.Contains(t, m.View(), "No promotions match the selected filters")

	m, _ = update(t, m, keys("0"))
	assert.Len(t, m.Visible(), 6)
}

func TestHideExpired(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	m, _ = update(t, m, keys("x"))

	visible := companies(m.Visible())
	assert.Len(t, visible, 4)
	assert.NotContains(t, visible, "Domino's")
	assert.NotContains(t, visible, "Old Navy")
	assert.Contains(t, m.View(), "expired hidden")
}

func TestSortModes(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	// By expiry: dated promotions soonest first, undated last in store order.
	assert.Equal(t,
		[]string{"Old Navy", "Domino's", "Nike", "Sephora", "Delta", "Barnes & Noble"},
		companies(m.Visible()))

	m, _ = update(t, m, keys("s"))
	assert.Equal(t,
		[]string{"Barnes & Noble", "Delta", "Domino's", "Nike", "Old Navy", "Sephora"},
		companies(m.Visible()))
	assert.Contains(t, m.View(), "sorted by company")
}

func TestSortKeepsSearchPositions(t *testing.T) {
	m, _ := newTestModel(t, byCompany(map[string][]string{"deals": {"Sephora", "Old Navy"}}))

	m = typeQuery(t, m, "deals")
	m, cmd := submit(t, m)
	m, _ = update(t, m, cmd())

	assert.Equal(t, []string{"Old Navy", "Sephora"}, companies(m.Visible()))
}

func TestExpiryBadges(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	expired := model.Promotion{Company: "A", ExpirationDate: model.NewDate(2025, time.May, 1)}
	soon := model.Promotion{Company: "B", ExpirationDate: model.NewDate(2025, time.May, 17)}
	later := model.Promotion{Company: "C", ExpirationDate: model.NewDate(2025, time.June, 30)}

	assert.Contains(t, m.expiryBadge(expired), "Expired May 1, 2025")
	assert.Contains(t, m.expiryBadge(soon), "Expires soon: May 17, 2025")
	assert.Contains(t, m.expiryBadge(later), "Expires Jun 30, 2025")
	assert.Contains(t, m.expiryBadge(model.Promotion{}), "No expiry")
}

func TestCopyCode(t *testing.T) {
	cb := &fakeClipboard{}
	m, _ := newTestModel(t, byCompany(nil), WithClipboard(cb))

	// Old Navy sorts first and has no code.
	m, _ = update(t, m, keys("c"))
	assert.Equal(t, "Old Navy has no code", m.Notice())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(t, m, keys("c"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, "BOGO", cb.text)
	assert.Equal(t, "Copied code", m.Notice())
}

func TestCopyFailureIsReported(t *testing.T) {
	cb := &fakeClipboard{err: errors.New("no clipboard utility")}
	m, _ := newTestModel(t, byCompany(nil), WithClipboard(cb))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(t, m, keys("c"))
	m, _ = update(t, m, cmd())

	assert.Equal(t, "Could not copy code", m.Notice())
}

func TestDeletePromotion(t *testing.T) {
	m, db := newTestModel(t, byCompany(nil))

	m, _ = update(t, m, keys("d"))
	assert.Contains(t, m.Notice(), "Delete Old Navy")

	m, cmd := update(t, m, keys("y"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Len(t, m.Visible(), 5)
	assert.NotContains(t, companies(m.Visible()), "Old Navy")
	assert.Len(t, db.MustList(), 5)
	assert.Equal(t, "Deleted Old Navy", m.Notice())
}

func TestDeleteCanBeCancelled(t *testing.T) {
	m, db := newTestModel(t, byCompany(nil))

	m, _ = update(t, m, keys("d"))
	m, cmd := update(t, m, keys("n"))

	assert.Nil(t, cmd)
	assert.Empty(t, m.Notice())
	assert.Len(t, m.Visible(), 6)
	assert.Len(t, db.MustList(), 6)
}

func TestDeleteReissuesActiveSearch(t *testing.T) {
	m, _ := newTestModel(t, byCompany(map[string][]string{"deals": {"Nike", "Old Navy"}}))

	m = typeQuery(t, m, "deals")
	m, cmd := submit(t, m)
	m, _ = update(t, m, cmd())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, []string{"Old Navy", "Nike"}, companies(m.Visible()))

	m, _ = update(t, m, keys("d"))
	m, cmd = update(t, m, keys("y"))
	m, _ = update(t, m, cmd())

	assert.False(t, m.Filter().IsActive(), "positions from the old list are dropped")
	assert.Equal(t, search.Searching, m.search.State())
}

func TestLoadFailureKeepsCurrentPromotions(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))
	m.store = failingStore{}

	m, _ = update(t, m, keys("r"))
	assert.True(t, m.Loading())

	m, _ = update(t, m, m.loadPromotions()())

	assert.False(t, m.Loading())
	assert.Equal(t, "Could not load promotions", m.Notice())
	assert.Len(t, m.Visible(), 6)
}

func TestAddMoreShowsIngestHint(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil), WithIngestHint("Run coupn ingest"))

	m, cmd := update(t, m, keys("a"))

	assert.NotNil(t, cmd)
	assert.Equal(t, "Run coupn ingest", m.Notice())
}

func TestNoticeExpires(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	m, _ = update(t, m, keys("a"))
	stale := clearNoticeMsg{id: m.noticeID - 1}
	m, _ = update(t, m, stale)
	assert.NotEmpty(t, m.Notice())

	m, _ = update(t, m, clearNoticeMsg{id: m.noticeID})
	assert.Empty(t, m.Notice())
}

func TestEmptyStateOffersIngest(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)
	m, err := New(context.Background(),
		WithStore(db.Storage),
		WithState(app.NewState(db.UserID)),
		WithLogger(discardLogger()))
	require.NoError(t, err)
	m = loaded(t, m)

	view := m.View()
	assert.Contains(t, view, "No promotions yet.")
	assert.Contains(t, view, "add more promotions")
}

func TestVoiceNotConfigured(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	m, _ = update(t, m, keys("v"))

	assert.Equal(t, "Voice is not configured", m.Notice())
}

type scriptedVoice struct {
	transcript string
	answer     string
	heard      []model.Promotion
}

func (s *scriptedVoice) Transcribe(context.Context, []byte, string) (string, error) {
	return s.transcript, nil
}

func (s *scriptedVoice) Answer(_ context.Context, _ string, list []model.Promotion) (string, error) {
	s.heard = list
	return s.answer, nil
}

func (s *scriptedVoice) Synthesize(context.Context, string) (llm.Speech, error) {
	return llm.Speech{ContentType: "audio/mpeg", Audio: []byte("mp3")}, nil
}

func TestVoiceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "question.wav")
	output := filepath.Join(dir, "answer.mp3")
	require.NoError(t, os.WriteFile(input, []byte("RIFF"), 0600))

	steps := &scriptedVoice{
		transcript: "food deals",
		answer:     "Domino's buy one pizza get one free until April 30",
	}

	state := app.NewState(testutil.DefaultUser)
	pipeline := voice.NewPipeline(voice.Config{
		Recorder:    voice.FileRecorder{Path: input},
		Transcriber: steps,
		Responder:   steps,
		Synthesizer: steps,
		Player:      voice.FilePlayer{Path: output},
		Source:      state,
		Logger:      discardLogger(),
	})

	db := testutil.SetupTestDB(t, promotions.NewBuilder(t).WithFixture(promotions.FixtureSearch).Build())
	m, err := New(context.Background(),
		WithStore(db.Storage),
		WithState(state),
		WithVoice(pipeline),
		WithLogger(discardLogger()),
		WithClock(fixedToday))
	require.NoError(t, err)
	m = loaded(t, m)

	m, start := update(t, m, keys("v"))
	require.NotNil(t, start)
	m, _ = update(t, m, start())
	assert.Equal(t, voice.Recording, pipeline.State())
	assert.Contains(t, m.View(), "Recording")

	m, finish := update(t, m, keys("v"))
	require.NotNil(t, finish)
	m, _ = update(t, m, finish())

	assert.Equal(t, voice.Idle, pipeline.State())
	assert.Empty(t, m.Notice())
	assert.Len(t, steps.heard, 6, "answers draw on the full list")

	view := m.View()
	assert.Contains(t, view, `You asked: "food deals"`)
	assert.Contains(t, view, "buy one pizza")

	audio, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
}

func TestVoiceStartFailureIsShown(t *testing.T) {
	pipeline := voice.NewPipeline(voice.Config{
		Recorder: voice.FileRecorder{Path: filepath.Join(t.TempDir(), "missing.wav")},
		Logger:   discardLogger(),
	})
	m, _ := newTestModel(t, byCompany(nil), WithVoice(pipeline))

	m, cmd := update(t, m, keys("v"))
	m, _ = update(t, m, cmd())

	assert.Equal(t, voice.Idle, pipeline.State())
	assert.Equal(t, "Could not access the microphone", m.Notice())
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	m, cmd := update(t, m, keys("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestWindowResize(t *testing.T) {
	m, _ := newTestModel(t, byCompany(nil))

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 20})

	assert.Equal(t, 1, m.cardsPerPage())
	for range 5 {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 5, m.cursor)
	assert.Equal(t, 5, m.offset)
	assert.Contains(t, m.View(), "Barnes & Noble")
}
