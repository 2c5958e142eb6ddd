package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/coupn-app/coupn/internal/model"
)

// cleanMarkdownWrapper strips code fences and any prose around a JSON object.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```JSON")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}

	return content
}

// parseRelevance validates a relevance answer against a list of n promotions.
// In lenient mode out-of-range and non-integer entries are dropped and counted;
// in strict mode any such entry fails the whole answer.
func parseRelevance(content string, n int, strict bool) (model.RelevanceResult, error) {
	const op = "relevance match"

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &payload); err != nil {
		return model.RelevanceResult{}, NewError(KindMalformedResponse, op, fmt.Errorf("failed to parse JSON payload: %w", err))
	}

	rawIndices, ok := payload["relevant_indices"]
	if !ok || string(rawIndices) == "null" {
		return model.RelevanceResult{}, NewError(KindMalformedResponse, op, errors.New("response lacks relevant_indices"))
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(rawIndices, &entries); err != nil {
		return model.RelevanceResult{}, NewError(KindContractViolation, op, errors.New("relevant_indices is not an array"))
	}

	var explanation string
	if rawExplanation, ok := payload["explanation"]; ok && string(rawExplanation) != "null" {
		if err := json.Unmarshal(rawExplanation, &explanation); err != nil {
			return model.RelevanceResult{}, NewError(KindContractViolation, op, errors.New("explanation is not a string"))
		}
	}

	result := model.RelevanceResult{
		Explanation: explanation,
		Indices:     make([]int, 0, len(entries)),
	}

	for _, entry := range entries {
		idx, ok := integerIndex(entry)
		if !ok || idx < 0 || idx >= n {
			if strict {
				return model.RelevanceResult{}, NewError(KindContractViolation, op,
					fmt.Errorf("invalid index %s for %d promotions", string(entry), n))
			}
			result.Dropped++
			continue
		}
		result.Indices = append(result.Indices, idx)
	}

	return result, nil
}

// integerIndex accepts JSON numbers with no fractional part, including 2.0.
func integerIndex(raw json.RawMessage) (int, bool) {
	if string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
