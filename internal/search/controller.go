// Package search owns the query state behind promotion filtering.
//
// A Controller tags every submitted search with a sequence number. Only the
// answer to the latest issued search may change the filter, so a slow
// response can never overwrite a newer query or a cleared input.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
)

// State is the controller's lifecycle state.
type State int

// Controller states.
const (
	Idle State = iota
	Searching
)

func (s State) String() string {
	if s == Searching {
		return "searching"
	}
	return "idle"
}

// Matcher finds the positions of promotions relevant to a query.
type Matcher interface {
	Match(ctx context.Context, query string, promotions []model.Promotion) (model.RelevanceResult, error)
}

// PromotionSource provides the current promotion list. Implementations must
// return a snapshot that the caller may keep.
type PromotionSource interface {
	Promotions() []model.Promotion
}

// Ticket identifies one issued search and carries the exact list it was
// issued against.
type Ticket struct {
	ID         string
	Query      string
	Promotions []model.Promotion
	Seq        uint64
}

// Controller holds the query input, the current filter and the single
// in-flight search.
type Controller struct {
	matcher     Matcher
	source      PromotionSource
	logger      *slog.Logger
	lastErr     error
	query       string
	inflight    string
	explanation string
	filter      model.Filter
	basis       []model.Promotion
	seq         uint64
	state       State
	mu          sync.Mutex
}

// NewController creates a controller that searches source with matcher.
func NewController(matcher Matcher, source PromotionSource, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		matcher: matcher,
		source:  source,
		logger:  logger,
		filter:  model.NoFilter(),
	}
}

// SetQuery updates the input text. Editing does not affect a search in
// flight; only the next Submit does. A blank query clears the filter
// immediately and any search in flight becomes stale.
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if query == c.query {
		return
	}
	c.query = query

	if strings.TrimSpace(query) == "" {
		c.seq++
		c.state = Idle
		c.inflight = ""
		c.clearLocked()
	}
}

// Submit issues a search for the current query. It returns false when nothing
// should be sent: a search for this same query is already running, or the
// query is blank (which clears the filter). Submitting a different query
// while searching supersedes the search in flight.
func (c *Controller) Submit() (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := strings.TrimSpace(c.query)
	if query == "" {
		c.seq++
		c.state = Idle
		c.inflight = ""
		c.clearLocked()
		return Ticket{}, false
	}

	if c.state == Searching && query == c.inflight {
		return Ticket{}, false
	}

	c.seq++
	c.state = Searching
	c.inflight = query

	var promotions []model.Promotion
	if c.source != nil {
		promotions = c.source.Promotions()
	}

	return Ticket{
		ID:         uuid.NewString(),
		Seq:        c.seq,
		Query:      query,
		Promotions: promotions,
	}, true
}

// Run performs the matcher call for t. It does not touch controller state.
func (c *Controller) Run(ctx context.Context, t Ticket) (model.RelevanceResult, error) {
	c.logger.Debug("Searching promotions",
		"search_id", t.ID,
		"seq", t.Seq,
		"query", t.Query,
		"promotions", len(t.Promotions))
	return c.matcher.Match(ctx, t.Query, t.Promotions)
}

// Resolve applies the outcome of t. Outcomes for anything but the latest
// issued search are discarded and Resolve returns false. Failures clear the
// filter so every promotion stays visible.
func (c *Controller) Resolve(t Ticket, result model.RelevanceResult, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Seq != c.seq {
		c.logger.Debug("Discarding stale search result",
			"search_id", t.ID,
			"seq", t.Seq,
			"latest", c.seq)
		return false
	}

	c.state = Idle
	c.inflight = ""

	if err != nil {
		if !errors.Is(err, llm.ErrEmptyQuery) {
			c.logger.Error("Search failed, showing all promotions",
				"search_id", t.ID,
				"query", t.Query,
				"error", err)
		}
		c.clearLocked()
		c.lastErr = err
		return true
	}

	c.filter = result.Filter()
	c.basis = t.Promotions
	c.explanation = result.Explanation
	c.lastErr = nil
	return true
}

// Search runs a complete search for query synchronously and returns the
// resulting filter. The error, if any, has already been absorbed into the
// filter; it is returned for callers that want to report it.
func (c *Controller) Search(ctx context.Context, query string) (model.Filter, error) {
	c.SetQuery(query)

	t, ok := c.Submit()
	if !ok {
		return c.Filter(), nil
	}

	result, err := c.Run(ctx, t)
	c.Resolve(t, result, err)
	return c.Filter(), err
}

// Invalidate drops the current filter because the promotion list changed and
// its positions no longer line up. Any search in flight becomes stale.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.state = Idle
	c.inflight = ""
	c.clearLocked()
}

// Filter returns the current filter.
func (c *Controller) Filter() model.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Results returns the promotions to display. An active filter is applied to
// the list its search was issued against.
func (c *Controller) Results() []model.Promotion {
	c.mu.Lock()
	filter, basis, source := c.filter, c.basis, c.source
	c.mu.Unlock()

	if filter.IsActive() {
		return filter.Apply(basis)
	}
	if source == nil {
		return nil
	}
	return source.Promotions()
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Query returns the current input text.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Explanation returns the explanation of the applied result, if any.
func (c *Controller) Explanation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.explanation
}

// Err returns the failure of the latest resolved search.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) clearLocked() {
	c.filter = model.NoFilter()
	c.basis = nil
	c.explanation = ""
	c.lastErr = nil
}
