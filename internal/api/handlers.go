package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/coupn-app/coupn/internal/common"
	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/metrics"
	"github.com/coupn-app/coupn/internal/model"
)

// transcriptionFilename is the name uploads are forwarded under. Browsers
// record webm, and the provider infers the codec from the extension.
const transcriptionFilename = "audio.webm"

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query      string            `json:"query"`
	Promotions []model.Promotion `json:"promotions"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message    string            `json:"message"`
	Promotions []model.Promotion `json:"promotions"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// TranscribeResponse is the body returned by POST /api/transcribe.
type TranscribeResponse struct {
	Text string `json:"text"`
}

// SpeakRequest is the body of POST /api/speak.
type SpeakRequest struct {
	Text string `json:"text"`
}

// UpsertRequest is the body of POST /api/promotions.
type UpsertRequest struct {
	Promotions []model.Promotion `json:"promotions"`
}

// UpsertResponse reports how many promotions were saved.
type UpsertResponse struct {
	Upserted int `json:"upserted"`
}

// DeleteRequest identifies the promotion removed by DELETE /api/promotions.
type DeleteRequest struct {
	Company string `json:"company"`
	Message string `json:"message"`
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if s.matcher == nil {
		respondError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	result, err := s.matcher.Match(r.Context(), req.Query, req.Promotions)
	if err != nil {
		s.observeSearch(metrics.SearchFailed)
		s.logger.Error("search failed", "error", err, "query", req.Query, "promotions", len(req.Promotions))
		respondError(w, statusFor(err), "Failed to process search request")
		return
	}

	if len(result.Indices) == 0 {
		s.observeSearch(metrics.SearchEmpty)
	} else {
		s.observeSearch(metrics.SearchMatched)
	}
	if result.Indices == nil {
		result.Indices = []int{}
	}
	respondJSON(w, http.StatusOK, result)
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.responder == nil {
		respondError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	answer, err := s.responder.Answer(r.Context(), req.Message, req.Promotions)
	if err != nil {
		s.logger.Error("chat failed", "error", err)
		respondError(w, statusFor(err), "Failed to get AI response")
		return
	}
	respondJSON(w, http.StatusOK, ChatResponse{Response: answer})
}

// Transcribe handles POST /api/transcribe with a multipart "audio" field.
func (s *Server) Transcribe(w http.ResponseWriter, r *http.Request) {
	if s.audio == nil {
		respondError(w, http.StatusServiceUnavailable, "transcription is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxAudioSize)
	file, _, err := r.FormFile("audio")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "audio file too large")
			return
		}
		respondError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer func() { _ = file.Close() }()

	audio, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}
	if len(audio) == 0 {
		respondError(w, http.StatusBadRequest, "No audio file provided")
		return
	}

	text, err := s.audio.Transcribe(r.Context(), audio, transcriptionFilename)
	if err != nil {
		s.logger.Error("transcription failed", "error", err, "bytes", len(audio))
		respondError(w, statusFor(err), "Failed to transcribe audio")
		return
	}
	respondJSON(w, http.StatusOK, TranscribeResponse{Text: text})
}

// Speak handles POST /api/speak and returns the synthesized audio bytes.
func (s *Server) Speak(w http.ResponseWriter, r *http.Request) {
	var req SpeakRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if s.audio == nil {
		respondError(w, http.StatusServiceUnavailable, "speech is not configured")
		return
	}

	speech, err := s.audio.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("speech synthesis failed", "error", err)
		respondError(w, statusFor(err), "Failed to generate speech")
		return
	}

	contentType := speech.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(speech.Audio)
}

// ListPromotions handles GET /api/promotions.
func (s *Server) ListPromotions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}

	promotions, err := s.store.ListPromotions(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.logger.Error("failed to list promotions", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list promotions")
		return
	}
	respondJSON(w, http.StatusOK, promotions)
}

// UpsertPromotions handles POST /api/promotions.
func (s *Server) UpsertPromotions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}

	var req UpsertRequest
	if !s.decode(w, r, &req) {
		return
	}
	for i, p := range req.Promotions {
		if strings.TrimSpace(p.Company) == "" || strings.TrimSpace(p.Message) == "" {
			respondError(w, http.StatusBadRequest, "promotion "+strconv.Itoa(i)+" needs a company and a message")
			return
		}
	}

	if err := s.store.UpsertPromotions(r.Context(), userFrom(r.Context()), req.Promotions); err != nil {
		s.logger.Error("failed to upsert promotions", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save promotions")
		return
	}
	respondJSON(w, http.StatusOK, UpsertResponse{Upserted: len(req.Promotions)})
}

// DeletePromotion handles DELETE /api/promotions.
func (s *Server) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}

	var req DeleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	key := model.PromotionKey{
		Company: strings.TrimSpace(req.Company),
		Message: strings.TrimSpace(req.Message),
	}
	if key.Company == "" || key.Message == "" {
		respondError(w, http.StatusBadRequest, "company and message are required")
		return
	}

	err := s.store.DeletePromotion(r.Context(), userFrom(r.Context()), key)
	switch {
	case errors.Is(err, common.ErrNotFound):
		respondError(w, http.StatusNotFound, "promotion not found")
	case err != nil:
		s.logger.Error("failed to delete promotion", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete promotion")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// decode reads a size-limited JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "request body is empty")
			return false
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (s *Server) observeSearch(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSearch(outcome)
	}
}

// statusFor maps provider failures onto gateway statuses.
func statusFor(err error) int {
	switch llm.KindOf(err) {
	case llm.KindTimeout:
		return http.StatusGatewayTimeout
	case llm.KindTransport, llm.KindUpstreamStatus, llm.KindMalformedResponse, llm.KindContractViolation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
