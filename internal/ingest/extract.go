package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coupn-app/coupn/internal/common"
	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
)

// maxMessageRunes bounds the email text sent for extraction.
const maxMessageRunes = 6000

// extractionDateLayout is MMDDYYYY.
const extractionDateLayout = "01022006"

const extractionPrompt = `You extract promotions from marketing email.

Respond with a JSON object: {"promotions": [...]}. Each promotion has these string fields:
"Expiration Date", "Company", "Category", "Promo message", "Promo code".

Instructions:
- If the message is not related to promotions, respond with {"promotions": []}.
- For the 'Expiration Date', give the expiration date if available in the format MMDDYYYY; the time of day does not matter; leave it empty if not provided.
- For the 'Company', give the organization name associated with the promo.
- For the 'Category', use one of: %s.
- For the 'Promo message', include only concise and relevant phrases, such as "25%% off" or "Up to 70%% off".
- For the 'Promo code', give the promo code if available; leave it empty if there is no code.`

// Extractor turns email text into promotions using a language model.
type Extractor struct {
	client llm.Client
	logger *slog.Logger
}

// NewExtractor creates an extractor over client.
func NewExtractor(client llm.Client, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, logger: logger}
}

type extractedPromotion struct {
	ExpirationDate string `json:"Expiration Date"`
	Company        string `json:"Company"`
	Category       string `json:"Category"`
	Message        string `json:"Promo message"`
	Code           string `json:"Promo code"`
}

// ExtractPromotions asks the model for the promotions in text. Entries without
// a company or message are skipped, and an email with none returns
// common.ErrNotAPromotion.
func (e *Extractor) ExtractPromotions(ctx context.Context, text string) ([]model.Promotion, error) {
	const op = "extraction"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, llm.ErrEmptyInput
	}
	if utf8.RuneCountInString(text) > maxMessageRunes {
		text = string([]rune(text)[:maxMessageRunes])
	}

	content, err := e.client.Complete(ctx, llm.CompletionRequest{
		System:      ExtractionPrompt(),
		User:        text,
		Temperature: llm.Temperature(0.1),
		MaxTokens:   500,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Promotions []extractedPromotion `json:"promotions"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(content)), &resp); err != nil {
		return nil, llm.NewError(llm.KindMalformedResponse, op, fmt.Errorf("failed to parse extraction: %w", err))
	}

	promotions := make([]model.Promotion, 0, len(resp.Promotions))
	for _, raw := range resp.Promotions {
		p := model.NormalizePromotion(model.Promotion{
			Company:  raw.Company,
			Category: model.Category(raw.Category),
			Message:  raw.Message,
			Code:     raw.Code,
		})
		if p.Company == "" || p.Message == "" {
			e.logger.Debug("skipping incomplete extraction", "company", p.Company, "message", p.Message)
			continue
		}
		if date := strings.TrimSpace(raw.ExpirationDate); date != "" {
			parsed, err := time.Parse(extractionDateLayout, date)
			if err != nil {
				e.logger.Warn("ignoring unparseable expiration date", "company", p.Company, "date", date)
			} else {
				p.ExpirationDate = model.DateOf(parsed)
			}
		}
		promotions = append(promotions, p)
	}

	if len(promotions) == 0 {
		return nil, common.ErrNotAPromotion
	}
	return promotions, nil
}

// ExtractionPrompt returns the system prompt listing the category set.
func ExtractionPrompt() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = "'" + string(c) + "'"
	}
	return fmt.Sprintf(extractionPrompt, strings.Join(names, ", "))
}

// cleanJSON strips a markdown code fence around a JSON answer.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
