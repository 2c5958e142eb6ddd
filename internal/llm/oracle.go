package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coupn-app/coupn/internal/model"
)

// DefaultOracleTimeout bounds a single relevance call.
const DefaultOracleTimeout = 30 * time.Second

// RelevanceOracle maps a free-text query over an ordered promotion list to the
// positions of matching promotions. The answer is only meaningful against the
// exact slice that was sent, in the same order.
type RelevanceOracle struct {
	client  Client
	logger  *slog.Logger
	timeout time.Duration
	strict  bool
}

// OracleOption configures a RelevanceOracle.
type OracleOption func(*RelevanceOracle)

// WithOracleTimeout overrides the per-call deadline.
func WithOracleTimeout(d time.Duration) OracleOption {
	return func(o *RelevanceOracle) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithStrictValidation makes any invalid index fail the whole answer.
func WithStrictValidation(strict bool) OracleOption {
	return func(o *RelevanceOracle) {
		o.strict = strict
	}
}

// WithOracleLogger sets the logger used for validation warnings.
func WithOracleLogger(logger *slog.Logger) OracleOption {
	return func(o *RelevanceOracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewRelevanceOracle creates an oracle backed by client.
func NewRelevanceOracle(client Client, opts ...OracleOption) *RelevanceOracle {
	o := &RelevanceOracle{
		client:  client,
		logger:  slog.Default(),
		timeout: DefaultOracleTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Match asks the model which promotions match query. Blank queries fail with
// ErrEmptyQuery without any network call, and an empty list yields an empty
// match without one.
func (o *RelevanceOracle) Match(ctx context.Context, query string, promotions []model.Promotion) (model.RelevanceResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.RelevanceResult{}, ErrEmptyQuery
	}
	if len(promotions) == 0 {
		return model.RelevanceResult{Indices: []int{}, Explanation: "No promotions to search."}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	content, err := o.client.Complete(ctx, CompletionRequest{
		System: BuildRelevancePrompt(promotions),
		User:   query,
		JSON:   true,
	})
	if err != nil {
		return model.RelevanceResult{}, err
	}

	result, err := parseRelevance(content, len(promotions), o.strict)
	if err != nil {
		o.logger.Warn("Relevance answer rejected",
			"error", err,
			"promotions", len(promotions))
		return model.RelevanceResult{}, err
	}

	if result.Dropped > 0 {
		o.logger.Warn("Dropped invalid relevance indices",
			"dropped", result.Dropped,
			"kept", len(result.Indices),
			"promotions", len(promotions))
	}

	return result, nil
}

// BuildRelevancePrompt builds the system instruction enumerating every
// promotion by its 0-based position along with the matching policy.
func BuildRelevancePrompt(promotions []model.Promotion) string {
	var sb strings.Builder

	sb.WriteString("You help users find relevant promotions and discounts.\n")
	sb.WriteString("You have access to the following promotions:\n\n")

	for i, p := range promotions {
		expires := p.ExpirationDate.String()
		if expires == "" {
			expires = "none"
		}
		fmt.Fprintf(&sb, "[%d] %s - %s (Category: %s, Expires: %s)\n", i, p.Company, p.Message, p.Category, expires)
	}

	sb.WriteString(`
Go through each promotion individually.
Find ALL promotions that match ANY part of the user's query. For example, for "food and makeup":
return every promotion related to food AND every promotion related to makeup.
Match on category, company name and promotion message.
If the company is not relevant, do not include it, even when the wording is close.
If there are duplicate promotions, include all of them.
If nothing matches, return an empty array.

Respond with a single JSON object and nothing else:
{
  "relevant_indices": number[],
  "explanation": string
}
relevant_indices are the 0-based positions from the list above; explanation briefly says why they match.`)

	return sb.String()
}
