package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
)

// Client talks to a remote Coupn server. It satisfies the search and voice
// collaborator interfaces so the dashboard can run against a server instead
// of calling providers directly.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userID     string
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, userID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
	}
}

// Match asks the server which promotions are relevant to query. Indices the
// server returns outside the list are dropped.
func (c *Client) Match(ctx context.Context, query string, promotions []model.Promotion) (model.RelevanceResult, error) {
	if strings.TrimSpace(query) == "" {
		return model.RelevanceResult{}, llm.ErrEmptyQuery
	}

	var result model.RelevanceResult
	if err := c.postJSON(ctx, "search", "/api/search", SearchRequest{Query: query, Promotions: promotions}, &result); err != nil {
		return model.RelevanceResult{}, err
	}

	valid := make([]int, 0, len(result.Indices))
	for _, idx := range result.Indices {
		if idx < 0 || idx >= len(promotions) {
			result.Dropped++
			continue
		}
		valid = append(valid, idx)
	}
	result.Indices = valid
	return result, nil
}

// Answer asks the server's chat endpoint about promotions.
func (c *Client) Answer(ctx context.Context, message string, promotions []model.Promotion) (string, error) {
	var resp ChatResponse
	if err := c.postJSON(ctx, "chat", "/api/chat", ChatRequest{Message: message, Promotions: promotions}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Transcribe uploads recorded audio for transcription.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	const op = "transcribe"
	if len(audio) == 0 {
		return "", llm.ErrEmptyInput
	}
	if filename == "" {
		filename = transcriptionFilename
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	data, _, err := c.do(ctx, op, http.MethodPost, "/api/transcribe", writer.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}

	var resp TranscribeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", llm.NewError(llm.KindMalformedResponse, op, err)
	}
	return resp.Text, nil
}

// Synthesize asks the server to speak text.
func (c *Client) Synthesize(ctx context.Context, text string) (llm.Speech, error) {
	if strings.TrimSpace(text) == "" {
		return llm.Speech{}, llm.ErrEmptyInput
	}

	payload, err := json.Marshal(SpeakRequest{Text: text})
	if err != nil {
		return llm.Speech{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	data, header, err := c.do(ctx, "speak", http.MethodPost, "/api/speak", "application/json", bytes.NewReader(payload))
	if err != nil {
		return llm.Speech{}, err
	}

	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return llm.Speech{ContentType: contentType, Audio: data}, nil
}

// ListPromotions fetches the client's user's stored promotions.
func (c *Client) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	const op = "list promotions"

	data, _, err := c.do(ctx, op, http.MethodGet, "/api/promotions", "", nil)
	if err != nil {
		return nil, err
	}

	promotions := []model.Promotion{}
	if err := json.Unmarshal(data, &promotions); err != nil {
		return nil, llm.NewError(llm.KindMalformedResponse, op, err)
	}
	return promotions, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	data, _, err := c.do(ctx, op, http.MethodPost, path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return llm.NewError(llm.KindMalformedResponse, op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader) ([]byte, http.Header, error) {
	if c.baseURL == "" {
		return nil, nil, llm.NewError(llm.KindConfiguration, op, errors.New("server URL not configured"))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, llm.NewError(llm.KindConfiguration, op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userID != "" {
		req.Header.Set(UserHeader, c.userID)
	}
	req.Header.Set(chimw.RequestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, llm.ClassifyTransport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, llm.ClassifyTransport(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, nil, &llm.OracleError{
			Kind:       llm.KindUpstreamStatus,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(msg),
		}
	}

	return data, resp.Header, nil
}
