package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coupn-app/coupn/internal/model"
)

// dealFinderPrompt keeps spoken answers short and free of formatting.
const dealFinderPrompt = `You are a deal finder that gives extremely concise answers about available promotions. Follow these rules strictly:
1. Never use markdown or formatting characters such as * or -.
2. Keep the answer very short and to the point.
3. Only state the essentials of each deal: company, offer and expiry.
4. Use natural but brief sentences.
5. No greetings or pleasantries.
6. No bullet points or special characters.
7. Be enthusiastic, shopping is a great time to save!
8. Always subtract one day from the expiry date, since that is when it is realistically usable.`

// Matcher finds the positions of promotions relevant to a query.
type Matcher interface {
	Match(ctx context.Context, query string, promotions []model.Promotion) (model.RelevanceResult, error)
}

// Summarizer answers a free-text question with a short natural-language
// summary of the matching deals.
type Summarizer struct {
	matcher Matcher
	client  Client
	logger  *slog.Logger
}

// NewSummarizer creates a summarizer that narrows promotions with matcher and
// phrases the answer with client.
func NewSummarizer(matcher Matcher, client Client, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{matcher: matcher, client: client, logger: logger}
}

// Answer runs relevance matching over promotions, dereferences the returned
// positions against that same slice, and asks the chat model to describe them.
func (s *Summarizer) Answer(ctx context.Context, message string, promotions []model.Promotion) (string, error) {
	result, err := s.matcher.Match(ctx, message, promotions)
	if err != nil {
		return "", fmt.Errorf("failed to search promotions: %w", err)
	}

	relevant := result.Filter().Apply(promotions)
	s.logger.Debug("Relevant promotions for answer",
		"query", message,
		"matched", len(relevant))

	answer, err := s.client.Complete(ctx, CompletionRequest{
		System: dealFinderPrompt,
		User:   BuildAnswerPrompt(message, relevant),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get AI response: %w", err)
	}

	return strings.TrimSpace(answer), nil
}

// BuildAnswerPrompt lists the matched deals under the user's query.
func BuildAnswerPrompt(message string, deals []model.Promotion) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Query: %q\n\nDeals:\n", message)
	for _, p := range deals {
		if p.ExpirationDate.IsZero() {
			fmt.Fprintf(&sb, "%s: %s\n", p.Company, p.Message)
			continue
		}
		fmt.Fprintf(&sb, "%s: %s until %s\n", p.Company, p.Message, p.ExpirationDate)
	}
	sb.WriteString("\nProvide a brief response listing only the relevant deals.")

	return sb.String()
}
