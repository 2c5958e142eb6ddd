package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/search"
	dbtest "github.com/coupn-app/coupn/internal/testutil"
	"github.com/coupn-app/coupn/internal/testutil/promotions"
	"github.com/coupn-app/coupn/internal/voice"
)

// Compile-time checks that Client satisfies the dashboard's collaborators.
var (
	_ search.Matcher    = (*Client)(nil)
	_ voice.Transcriber = (*Client)(nil)
	_ voice.Responder   = (*Client)(nil)
	_ voice.Synthesizer = (*Client)(nil)
)

func startServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(setupServer(t, opts))
	t.Cleanup(server.Close)
	return server
}

func TestClientMatchDropsOutOfRangeIndices(t *testing.T) {
	matcher := &stubMatcher{result: model.RelevanceResult{Indices: []int{0, 7, 1}, Explanation: "Both fit."}}
	server := startServer(t, Options{Matcher: matcher})
	client := NewClient(server.URL+"/", "u1", nil)

	promos := promotions.NewBuilder(t).WithFixture(promotions.FixtureDemo).Build()
	result, err := client.Match(context.Background(), "deals", promos)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, result.Indices)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, "Both fit.", result.Explanation)
}

func TestClientMatchBlankQuery(t *testing.T) {
	client := NewClient("http://unused", "u1", nil)

	_, err := client.Match(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, llm.ErrEmptyQuery)
}

func TestClientUpstreamError(t *testing.T) {
	server := startServer(t, Options{Matcher: &stubMatcher{err: llm.NewError(llm.KindTimeout, "chat completion", context.DeadlineExceeded)}})
	client := NewClient(server.URL, "u1", nil)

	_, err := client.Match(context.Background(), "shoes", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrUpstreamStatus)
	var oe *llm.OracleError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, http.StatusGatewayTimeout, oe.StatusCode)
	assert.Contains(t, oe.Error(), "Failed to process search request")
}

func TestClientTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	client := NewClient(slow.URL, "u1", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Answer(ctx, "deals?", nil)
	assert.ErrorIs(t, err, llm.ErrTimeout)
}

func TestClientMissingBaseURL(t *testing.T) {
	client := NewClient("", "u1", nil)

	_, err := client.Answer(context.Background(), "deals?", nil)
	assert.ErrorIs(t, err, llm.ErrConfiguration)
}

func TestClientVoiceRoundTrip(t *testing.T) {
	audio := &stubAudio{text: "shoe deals", speech: llm.Speech{ContentType: "audio/mpeg", Audio: []byte("ID3")}}
	server := startServer(t, Options{Audio: audio, Responder: &stubResponder{answer: "Nike has 30% off."}})
	client := NewClient(server.URL, "u1", nil)
	ctx := context.Background()

	text, err := client.Transcribe(ctx, []byte("RIFF"), "audio.wav")
	require.NoError(t, err)
	assert.Equal(t, "shoe deals", text)
	assert.Equal(t, []byte("RIFF"), audio.audio)

	answer, err := client.Answer(ctx, text, nil)
	require.NoError(t, err)
	assert.Equal(t, "Nike has 30% off.", answer)

	speech, err := client.Synthesize(ctx, answer)
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", speech.ContentType)
	assert.Equal(t, []byte("ID3"), speech.Audio)

	_, err = client.Transcribe(ctx, nil, "")
	assert.ErrorIs(t, err, llm.ErrEmptyInput)
}

func TestClientListPromotions(t *testing.T) {
	db := dbtest.SetupTestDB(t, promotions.NewBuilder(t).WithFixture(promotions.FixtureSearch).Build())
	server := startServer(t, Options{Store: db.Storage})

	got, err := NewClient(server.URL, db.UserID, nil).ListPromotions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, db.Promotions.Companies(), promotions.Set(got).Companies())

	_, err = NewClient(server.URL, "", nil).ListPromotions(context.Background())
	var oe *llm.OracleError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, http.StatusUnauthorized, oe.StatusCode)
}

func TestClientSendsRequestID(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(chimw.RequestIDHeader)
		respondJSON(w, http.StatusOK, ChatResponse{Response: "ok"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "u1", nil).Answer(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Len(t, seen, 36)
}
