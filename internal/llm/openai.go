package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	chatCompletionsPath = "/v1/chat/completions"
	transcriptionsPath  = "/v1/audio/transcriptions"
	speechPath          = "/v1/audio/speech"

	// maxErrorBody caps how much of an upstream error body is kept.
	maxErrorBody = 512
)

// openAIClient implements Client and AudioClient against any provider that
// speaks the OpenAI wire format.
type openAIClient struct {
	httpClient         *http.Client
	limiter            *rateLimiter
	observer           Observer
	provider           string
	baseURL            string
	apiKey             string
	model              string
	transcriptionModel string
	speechModel        string
	voice              string
	temperature        float64
	maxTokens          int
}

// newOpenAIClient creates a new OpenAI-compatible client. A missing API key
// is not an error here; each call reports it as a configuration failure.
func newOpenAIClient(cfg Config) *openAIClient {
	temperature := 0.3
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	transcriptionModel := cfg.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = "whisper-1"
	}

	speechModel := cfg.SpeechModel
	if speechModel == "" {
		speechModel = "tts-1"
	}

	voice := cfg.Voice
	if voice == "" {
		voice = "alloy"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &openAIClient{
		httpClient:         httpClient,
		limiter:            newRateLimiter(cfg.RateLimit),
		observer:           cfg.Observer,
		provider:           cfg.Provider,
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:             strings.TrimSpace(cfg.APIKey),
		model:              cfg.Model,
		transcriptionModel: transcriptionModel,
		speechModel:        speechModel,
		voice:              voice,
		temperature:        temperature,
		maxTokens:          cfg.MaxTokens,
	}
}

// Complete sends a chat completion request and returns the first choice's content.
func (c *openAIClient) Complete(ctx context.Context, req CompletionRequest) (content string, err error) {
	const op = "chat completion"
	defer c.observe(op, time.Now(), &err)

	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := make([]map[string]string, 0, 2)
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.User})

	requestBody := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": temperature,
	}
	if maxTokens > 0 {
		requestBody["max_tokens"] = maxTokens
	}
	if req.JSON {
		requestBody["response_format"] = map[string]string{"type": "json_object"}
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, _, err := c.do(ctx, op, chatCompletionsPath, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", NewError(KindMalformedResponse, op, fmt.Errorf("failed to parse response: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", NewError(KindMalformedResponse, op, errors.New("no completion choices returned"))
	}

	return response.Choices[0].Message.Content, nil
}

// Transcribe uploads recorded audio and returns the recognized text.
func (c *openAIClient) Transcribe(ctx context.Context, audio []byte, filename string) (text string, err error) {
	const op = "transcription"
	defer c.observe(op, time.Now(), &err)

	if len(audio) == 0 {
		return "", fmt.Errorf("%s: %w: no audio", op, ErrEmptyInput)
	}
	if filename == "" {
		filename = "audio.webm"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := writer.WriteField("model", c.transcriptionModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	body, _, err := c.do(ctx, op, transcriptionsPath, writer.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	var response struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", NewError(KindMalformedResponse, op, fmt.Errorf("failed to parse response: %w", err))
	}
	if response.Text == nil {
		return "", NewError(KindMalformedResponse, op, errors.New("response has no text"))
	}

	return *response.Text, nil
}

// Synthesize turns text into speech audio.
func (c *openAIClient) Synthesize(ctx context.Context, text string) (speech Speech, err error) {
	const op = "speech synthesis"
	defer c.observe(op, time.Now(), &err)

	if strings.TrimSpace(text) == "" {
		return Speech{}, fmt.Errorf("%s: %w: no text", op, ErrEmptyInput)
	}

	jsonBody, err := json.Marshal(map[string]string{
		"model": c.speechModel,
		"voice": c.voice,
		"input": text,
	})
	if err != nil {
		return Speech{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, header, err := c.do(ctx, op, speechPath, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return Speech{}, err
	}
	if len(body) == 0 {
		return Speech{}, NewError(KindMalformedResponse, op, errors.New("empty audio body"))
	}

	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return Speech{ContentType: contentType, Audio: body}, nil
}

// do performs one rate-limited POST and classifies every failure.
func (c *openAIClient) do(ctx context.Context, op, path, contentType string, payload io.Reader) ([]byte, http.Header, error) {
	if c.apiKey == "" {
		return nil, nil, NewError(KindConfiguration, op, fmt.Errorf("no API key configured for %s", c.providerName()))
	}
	if c.baseURL == "" {
		return nil, nil, NewError(KindConfiguration, op, fmt.Errorf("no base URL configured for %s", c.providerName()))
	}

	if err := c.limiter.wait(ctx); err != nil {
		return nil, nil, ClassifyTransport(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return nil, nil, NewError(KindConfiguration, op, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, ClassifyTransport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, ClassifyTransport(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, nil, &OracleError{
			Kind:       KindUpstreamStatus,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s API error: %s", c.providerName(), snippet),
		}
	}

	return body, resp.Header, nil
}

func (c *openAIClient) providerName() string {
	if c.provider == "" {
		return "provider"
	}
	return c.provider
}

func (c *openAIClient) observe(op string, start time.Time, err *error) {
	if c.observer != nil {
		c.observer.ObserveCall(c.providerName(), op, time.Since(start), *err)
	}
}

// ClassifyTransport separates deadline expiry from other network failures.
func ClassifyTransport(op string, err error) *OracleError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(KindTimeout, op, err)
	}
	return NewError(KindTransport, op, err)
}

// openAIResponse represents the chat completion response structure.
type openAIResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Created int64 `json:"created"`
}
