// Package tui implements the promotion dashboard as a terminal UI.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/coupn-app/coupn/internal/app"
	"github.com/coupn-app/coupn/internal/common"
	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/search"
	"github.com/coupn-app/coupn/internal/tui/themes"
	"github.com/coupn-app/coupn/internal/voice"
)

const (
	loadTimeout    = 30 * time.Second
	noticeDuration = 4 * time.Second
)

// Model holds the dashboard state.
type Model struct {
	ctx           context.Context
	store         PromotionStore
	clipboard     Clipboard
	today         func() model.Date
	enabled       map[model.Category]bool
	state         *app.State
	search        *search.Controller
	voice         *voice.Pipeline
	logger        *slog.Logger
	pendingDelete *model.PromotionKey
	notice        string
	config        Config
	theme         themes.Theme
	keymap        KeyMap
	help          help.Model
	input         textinput.Model
	spinner       spinner.Model
	noticeID      int
	noticeLevel   noticeLevel
	sortMode      SortMode
	categoryIdx   int
	cursor        int
	offset        int
	width         int
	height        int
	hideExpired   bool
	loading       bool
	voiceBusy     bool
	quitting      bool
}

// New creates the dashboard model. A store and state are required; without
// a matcher the search input falls back to keyword matching.
func New(ctx context.Context, opts ...Option) (Model, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Store == nil {
		return Model{}, fmt.Errorf("promotion store is required")
	}
	if cfg.State == nil {
		return Model{}, fmt.Errorf("application state is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Matcher == nil {
		cfg.Matcher = search.NewKeywordMatcher()
	}

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = `Search promotions, e.g. "shoes or pizza"`
	input.CharLimit = 200

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(cfg.Theme.Primary)

	m := Model{
		ctx:       ctx,
		config:    cfg,
		theme:     cfg.Theme,
		keymap:    DefaultKeyMap(),
		store:     cfg.Store,
		state:     cfg.State,
		search:    search.NewController(cfg.Matcher, cfg.State, cfg.Logger),
		voice:     cfg.Voice,
		clipboard: cfg.Clipboard,
		today:     cfg.Today,
		logger:    cfg.Logger,
		enabled:   make(map[model.Category]bool),
		help:      help.New(),
		input:     input,
		spinner:   spin,
		width:     cfg.Width,
		height:    cfg.Height,
		loading:   true,
	}
	m.help.Width = cfg.Width
	return m, nil
}

// Run starts the dashboard and blocks until the user quits.
func Run(ctx context.Context, opts ...Option) error {
	m, err := New(ctx, opts...)
	if err != nil {
		return err
	}

	program := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

// Init loads the promotion list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadPromotions())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-8)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case promotionsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.logger.Error("Failed to load promotions",
				"user", m.state.User(),
				"error", msg.err)
			return m, m.setNotice(noticeError, "Could not load promotions")
		}
		m.state.SetPromotions(msg.promotions)
		return m, m.refilter()

	case searchResolvedMsg:
		if m.search.Resolve(msg.ticket, msg.result, msg.err) {
			m.cursor, m.offset = 0, 0
		}
		return m, nil

	case promotionDeletedMsg:
		if msg.err != nil {
			m.logger.Error("Failed to delete promotion",
				"company", msg.key.Company,
				"error", msg.err)
			return m, m.setNotice(noticeError, "Could not delete "+msg.key.Company)
		}
		m.state.Remove(msg.key)
		return m, tea.Batch(m.refilter(), m.setNotice(noticeSuccess, "Deleted "+msg.key.Company))

	case voiceStartedMsg:
		m.voiceBusy = false
		if msg.err != nil && !errors.Is(msg.err, voice.ErrBusy) {
			return m, m.setNotice(noticeError, common.UserMessage(msg.err, "Could not start recording"))
		}
		return m, nil

	case voiceFinishedMsg:
		m.voiceBusy = false
		if msg.err != nil {
			return m, m.setNotice(noticeError, common.UserMessage(msg.err, "Voice request failed"))
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.logger.Warn("Failed to copy to clipboard", "what", msg.what, "error", msg.err)
			return m, m.setNotice(noticeError, "Could not copy "+msg.what)
		}
		return m, m.setNotice(noticeSuccess, "Copied "+msg.what)

	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.input.Focused() {
		return m.handleSearchKey(msg)
	}

	if m.pendingDelete != nil {
		target := *m.pendingDelete
		m.pendingDelete = nil
		m.notice = ""
		if key.Matches(msg, m.keymap.Confirm) {
			return m, m.deletePromotion(target)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keymap.Up):
		m.cursor--
		m.clampCursor()

	case key.Matches(msg, m.keymap.Down):
		m.cursor++
		m.clampCursor()

	case key.Matches(msg, m.keymap.PrevCategory):
		m.categoryIdx = (m.categoryIdx + len(model.Categories) - 1) % len(model.Categories)

	case key.Matches(msg, m.keymap.NextCategory):
		m.categoryIdx = (m.categoryIdx + 1) % len(model.Categories)

	case key.Matches(msg, m.keymap.ToggleCategory):
		category := model.Categories[m.categoryIdx]
		if m.enabled[category] {
			delete(m.enabled, category)
		} else {
			m.enabled[category] = true
		}
		m.cursor, m.offset = 0, 0

	case key.Matches(msg, m.keymap.ClearFilters):
		m.enabled = make(map[model.Category]bool)
		m.cursor, m.offset = 0, 0

	case key.Matches(msg, m.keymap.ToggleExpired):
		m.hideExpired = !m.hideExpired
		m.cursor, m.offset = 0, 0

	case key.Matches(msg, m.keymap.CycleSort):
		m.sortMode = m.sortMode.next()
		m.cursor, m.offset = 0, 0

	case key.Matches(msg, m.keymap.Search):
		return m, m.input.Focus()

	case key.Matches(msg, m.keymap.Voice):
		return m, m.toggleVoice()

	case key.Matches(msg, m.keymap.CopyCode):
		return m, m.copySelected("code", func(p model.Promotion) string { return p.Code })

	case key.Matches(msg, m.keymap.CopyBarcode):
		return m, m.copySelected("barcode", func(p model.Promotion) string { return p.Barcode })

	case key.Matches(msg, m.keymap.Delete):
		if p, ok := m.selected(); ok {
			target := p.Key()
			m.pendingDelete = &target
			m.noticeID++
			m.noticeLevel = noticeInfo
			m.notice = fmt.Sprintf("Delete %s: %q? (y/n)", p.Company, p.Message)
		}

	case key.Matches(msg, m.keymap.AddMore):
		return m, m.setNotice(noticeInfo, m.config.IngestHint)

	case key.Matches(msg, m.keymap.Refresh):
		m.loading = true
		return m, m.loadPromotions()
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Submit):
		m.search.SetQuery(m.input.Value())
		m.cursor, m.offset = 0, 0
		return m, m.submitSearch()

	case key.Matches(msg, m.keymap.Blur):
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keymap.ClearSearch):
		m.input.SetValue("")
		m.search.SetQuery("")
		m.cursor, m.offset = 0, 0
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.search.Query() {
		m.search.SetQuery(m.input.Value())
		m.clampCursor()
	}
	return m, cmd
}

// submitSearch issues the current query. The matcher runs off the update
// loop and its outcome comes back as a searchResolvedMsg.
func (m *Model) submitSearch() tea.Cmd {
	ticket, ok := m.search.Submit()
	if !ok {
		return nil
	}

	ctrl, ctx := m.search, m.ctx
	return func() tea.Msg {
		result, err := ctrl.Run(ctx, ticket)
		return searchResolvedMsg{ticket: ticket, result: result, err: err}
	}
}

// refilter drops a filter whose positions refer to the previous list and
// reissues the current query against the new one.
func (m *Model) refilter() tea.Cmd {
	m.search.Invalidate()
	m.clampCursor()
	if strings.TrimSpace(m.search.Query()) == "" {
		return nil
	}
	return m.submitSearch()
}

func (m *Model) toggleVoice() tea.Cmd {
	if m.voice == nil {
		return m.setNotice(noticeInfo, "Voice is not configured")
	}
	if m.voiceBusy {
		return nil
	}

	pipeline, ctx := m.voice, m.ctx
	switch pipeline.State() {
	case voice.Idle:
		m.voiceBusy = true
		return func() tea.Msg {
			return voiceStartedMsg{err: pipeline.Start(ctx)}
		}
	case voice.Recording:
		m.voiceBusy = true
		return func() tea.Msg {
			return voiceFinishedMsg{err: pipeline.StopAndProcess(ctx)}
		}
	default:
		return nil
	}
}

func (m *Model) copySelected(what string, field func(model.Promotion) string) tea.Cmd {
	p, ok := m.selected()
	if !ok {
		return nil
	}
	value := field(p)
	if value == "" {
		return m.setNotice(noticeInfo, fmt.Sprintf("%s has no %s", p.Company, what))
	}

	cb := m.clipboard
	return func() tea.Msg {
		return copiedMsg{what: what, err: cb.WriteAll(value)}
	}
}

func (m Model) loadPromotions() tea.Cmd {
	store, ctx, user := m.store, m.ctx, m.state.User()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, loadTimeout)
		defer cancel()

		promotions, err := store.ListPromotions(ctx, user)
		return promotionsLoadedMsg{promotions: promotions, err: err}
	}
}

func (m Model) deletePromotion(target model.PromotionKey) tea.Cmd {
	store, ctx, user := m.store, m.ctx, m.state.User()
	return func() tea.Msg {
		return promotionDeletedMsg{key: target, err: store.DeletePromotion(ctx, user, target)}
	}
}

// setNotice shows a status line message that clears itself.
func (m *Model) setNotice(level noticeLevel, text string) tea.Cmd {
	m.noticeID++
	id := m.noticeID
	m.notice = text
	m.noticeLevel = level
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{id: id}
	})
}

// visible returns the promotions to render: the search results narrowed by
// the category and expiry toggles, then sorted. Sorting happens after the
// search filter so positions are only ever resolved against the list the
// search was issued with.
func (m Model) visible() []model.Promotion {
	today := m.today()
	results := m.search.Results()

	out := make([]model.Promotion, 0, len(results))
	for _, p := range results {
		if len(m.enabled) > 0 && !m.enabled[p.Category] {
			continue
		}
		if m.hideExpired && p.IsExpired(today) {
			continue
		}
		out = append(out, p)
	}
	sortPromotions(out, m.sortMode)
	return out
}

func (m Model) selected() (model.Promotion, bool) {
	visible := m.visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return model.Promotion{}, false
	}
	return visible[m.cursor], true
}

// clampCursor keeps the cursor on a visible card and scrolls to it.
func (m *Model) clampCursor() {
	count := len(m.visible())
	if m.cursor >= count {
		m.cursor = count - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	page := m.cardsPerPage()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
}

// Filter exposes the active search filter.
func (m Model) Filter() model.Filter {
	return m.search.Filter()
}

// Visible exposes the promotions currently rendered, in order.
func (m Model) Visible() []model.Promotion {
	return m.visible()
}

// Notice returns the status line message.
func (m Model) Notice() string {
	return m.notice
}

// Loading reports whether the promotion list is being fetched.
func (m Model) Loading() bool {
	return m.loading
}
