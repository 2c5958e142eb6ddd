package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/search"
	"github.com/coupn-app/coupn/internal/tui/themes"
	"github.com/coupn-app/coupn/internal/voice"
)

const (
	cardHeight    = 7
	maxCardWidth  = 76
	chromeHeight  = 12
	soonThreshold = 3
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.loading && len(m.state.Promotions()) == 0 {
		return m.renderLoading()
	}

	sections := []string{
		m.renderHeader(),
		m.renderSearch(),
		m.renderCategories(),
	}
	if v := m.renderVoice(); v != "" {
		sections = append(sections, v)
	}
	sections = append(sections,
		m.renderCards(),
		m.renderStatusBar(),
		m.help.View(m.keymap),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderLoading renders the loading screen.
func (m Model) renderLoading() string {
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		m.theme.Title.Render("Coupn"),
		"",
		m.spinner.View()+" "+lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Loading your promotions..."),
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("Welcome back, " + m.state.User())

	total := len(m.state.Promotions())
	details := []string{pluralize(total, "promotion"), "sorted by " + m.sortMode.String()}
	if m.hideExpired {
		details = append(details, "expired hidden")
	}
	if m.loading {
		details = append(details, m.spinner.View()+"refreshing")
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		m.theme.Subtitle.Render(strings.Join(details, " · ")),
	)
}

func (m Model) renderSearch() string {
	lines := []string{m.input.View()}

	switch {
	case m.search.State() == search.Searching:
		lines = append(lines, m.spinner.View()+m.theme.StatusPending.Render("Searching..."))
	case m.search.Filter().IsActive() && m.search.Explanation() != "":
		lines = append(lines, m.theme.StatusPending.Render(m.search.Explanation()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderCategories renders the category toggles. With none enabled every
// category is shown.
func (m Model) renderCategories() string {
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted).Padding(0, 1)

	tags := make([]string, 0, len(model.Categories))
	for i, category := range model.Categories {
		var tag string
		if m.enabled[category] {
			tag = m.theme.CategoryBadge(category)
		} else {
			tag = muted.Render(string(category))
		}
		if i == m.categoryIdx {
			tag = lipgloss.NewStyle().Underline(true).Render(tag)
		}
		tags = append(tags, tag)
	}

	return lipgloss.NewStyle().
		Width(max(20, m.width)).
		Render(strings.Join(tags, " "))
}

func (m Model) renderVoice() string {
	if m.voice == nil {
		return ""
	}

	switch m.voice.State() {
	case voice.Recording:
		return m.theme.StatusError.Render("● Recording... press v to stop")
	case voice.Processing:
		return m.spinner.View() + m.theme.StatusPending.Render("Working on your question...")
	}

	var lines []string
	if t := m.voice.Transcript(); t != "" {
		lines = append(lines, m.theme.Subtitle.Render(fmt.Sprintf("You asked: %q", t)))
	}
	if a := m.voice.Answer(); a != "" {
		lines = append(lines, m.theme.Normal.Render(a))
	}
	if len(lines) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderCards() string {
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)

	if len(m.state.Promotions()) == 0 {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			"",
			m.theme.Bold.Render("No promotions yet."),
			muted.Render("Press a to add more promotions."),
			"",
		)
	}

	// An empty match is distinct from no filter at all.
	if m.search.Filter().IsEmptyMatch() {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			"",
			m.theme.Bold.Render("No matching promotions"),
			muted.Render("Try a different search, or press Ctrl+U in the search box to clear it."),
			"",
		)
	}

	visible := m.visible()
	if len(visible) == 0 {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			"",
			muted.Render("No promotions match the selected filters. Press 0 to show every category."),
			"",
		)
	}

	end := min(len(visible), m.offset+m.cardsPerPage())
	cards := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		cards = append(cards, m.renderCard(visible[i], i == m.cursor))
	}

	if end < len(visible) {
		cards = append(cards, muted.Render(fmt.Sprintf("%d more below", len(visible)-end)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (m Model) renderCard(p model.Promotion, selected bool) string {
	style := m.theme.Card
	if selected {
		style = m.theme.SelectedCard
	}

	heading := fmt.Sprintf("%s %s  %s",
		themes.GetCategoryIcon(p.Category),
		m.theme.Bold.Render(p.Company),
		m.theme.CategoryBadge(p.Category),
	)

	lines := []string{heading, m.theme.Normal.Render(p.Message)}

	var redeem []string
	if p.Code != "" {
		redeem = append(redeem, "Code "+m.theme.Code.Render(p.Code))
	}
	if p.Barcode != "" {
		redeem = append(redeem, "Barcode "+m.theme.Code.Render(p.Barcode))
	}
	if len(redeem) > 0 {
		lines = append(lines, strings.Join(redeem, "  "))
	}

	footer := m.expiryBadge(p)
	if p.Link != "" {
		footer += "  " + lipgloss.NewStyle().Foreground(m.theme.Info).Render(p.Link)
	}
	lines = append(lines, footer)

	return style.
		Width(min(maxCardWidth, max(20, m.width-2))).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) expiryBadge(p model.Promotion) string {
	if p.ExpirationDate.IsZero() {
		return lipgloss.NewStyle().Foreground(m.theme.Muted).Render("No expiry")
	}

	date := p.ExpirationDate.Time().Format("Jan 2, 2006")
	today := m.today()

	switch {
	case p.IsExpired(today):
		return m.theme.StatusError.Render("Expired " + date)
	case p.ExpirationDate.Before(today.AddDays(soonThreshold + 1)):
		return m.theme.StatusWarning.Render("Expires soon: " + date)
	default:
		return m.theme.Subtitle.Render("Expires " + date)
	}
}

// renderStatusBar renders the bottom status bar.
func (m Model) renderStatusBar() string {
	left := "Browse"
	switch {
	case m.input.Focused():
		left = "Search"
	case m.pendingDelete != nil:
		left = "Delete"
	}

	var center string
	if m.notice != "" {
		switch m.noticeLevel {
		case noticeError:
			center = m.theme.StatusError.Render(m.notice)
		case noticeSuccess:
			center = m.theme.StatusSuccess.Render(m.notice)
		default:
			center = m.theme.StatusInfo.Render(m.notice)
		}
	}

	right := lipgloss.NewStyle().Foreground(m.theme.Muted).Render("? Help")

	spacing := max(2, m.width-lipgloss.Width(left)-lipgloss.Width(center)-lipgloss.Width(right))
	leftPad := spacing / 2
	rightPad := spacing - leftPad

	return m.theme.Normal.
		Background(m.theme.Border).
		Render(m.theme.StatusInfo.Render(left) +
			strings.Repeat(" ", leftPad) +
			center +
			strings.Repeat(" ", rightPad) +
			right)
}

func (m Model) cardsPerPage() int {
	return max(1, (m.height-chromeHeight)/cardHeight)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
