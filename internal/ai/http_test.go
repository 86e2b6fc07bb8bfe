package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railmadad/backend/internal/models"
)

func TestHTTPAdapterParsesCompletion(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-test",
			"choices": []map[string]any{{
				"message": map[string]any{
					"content": "```json\n{\"category\":\"Food Quality\",\"priority\":\"High\",\"keywords\":[\"stale\"],\"summary\":\"stale food\",\"confidence\":0.82}\n```",
				},
			}},
		})
	}))
	defer srv.Close()

	a := HTTPAdapter{BaseURL: srv.URL + "/v1/", Model: "gpt-test", APIKey: "k"}
	got, err := a.AnalyzeText(context.Background(), "stale food served in pantry car (http test)")
	require.NoError(t, err)

	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, "gpt-test", gotBody["model"])
	assert.Equal(t, "Food Quality", got.Category)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"stale"}, got.Keywords)
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)
	assert.Equal(t, "gpt-test", got.ModelVersion)
}

func TestHTTPAdapterSendsImagesInline(t *testing.T) {
	var parts []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content any `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		parts, _ = body.Messages[1].Content.([]any)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"category\":\"Cleanliness\",\"priority\":\"MEDIUM\",\"confidence\":0.5}"}}]}`))
	}))
	defer srv.Close()

	a := HTTPAdapter{BaseURL: srv.URL}
	got, err := a.AnalyzeMedia(context.Background(), Attachment{Filename: "x.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, err)
	assert.Equal(t, "Cleanliness", got.Category)
	require.Len(t, parts, 2)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.Contains(t, img, "data:image/png;base64,")
}

func TestHTTPAdapterRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"3s"}]}}`))
	}))
	defer srv.Close()

	_, err := (&HTTPAdapter{BaseURL: srv.URL}).AnalyzeMedia(context.Background(), Attachment{Filename: "a.mp3", ContentType: "audio/mpeg"})
	var rl RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "rate limited, retry after 3s", rl.Error())
}

func TestHTTPAdapterCacheIsPerInstance(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"model":"m","choices":[{"message":{"content":"{\"category\":\"Cleanliness\",\"keywords\":[\"dirty\"]}"}}]}`))
	}))
	defer srv.Close()
	ctx := context.Background()

	first := NewHTTPAdapter(srv.URL, "", "m", srv.Client())
	a, err := first.AnalyzeText(ctx, "dirty coach")
	require.NoError(t, err)
	a.Keywords[0] = "mutated"
	b, err := first.AnalyzeText(ctx, "dirty coach")
	require.NoError(t, err)
	assert.Equal(t, []string{"dirty"}, b.Keywords)
	assert.Equal(t, int32(1), calls.Load())

	second := NewHTTPAdapter(srv.URL, "", "m", srv.Client())
	_, err = second.AnalyzeText(ctx, "dirty coach")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	uncached := &HTTPAdapter{BaseURL: srv.URL}
	_, err = uncached.AnalyzeText(ctx, "dirty coach")
	require.NoError(t, err)
	_, err = uncached.AnalyzeText(ctx, "dirty coach")
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestHTTPAdapterAskSendsHistory(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Use My Complaints.  "}}]}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, "", "gpt-test", nil)
	history := []ChatMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	got, err := a.Ask(context.Background(), "how do I track?", history)
	require.NoError(t, err)
	assert.Equal(t, "Use My Complaints.", got)

	assert.NotContains(t, body, "response_format")
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
	assert.Equal(t, "how do I track?", msgs[3].(map[string]any)["content"])
}

func TestHTTPAdapterAskTrimsHistory(t *testing.T) {
	var n int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []json.RawMessage `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		n = len(body.Messages)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	history := make([]ChatMessage, 50)
	for i := range history {
		history[i] = ChatMessage{Role: "user", Content: "again"}
	}
	_, err := NewHTTPAdapter(srv.URL, "", "m", nil).Ask(context.Background(), "q", history)
	require.NoError(t, err)
	assert.Equal(t, maxHistory+2, n)
}

func TestMockAssistantAnswersByKeyword(t *testing.T) {
	m := MockAdapter{}
	got, err := m.Ask(context.Background(), "How can I TRACK my complaint?", nil)
	require.NoError(t, err)
	assert.Contains(t, got, "complaint ID")

	got, err = m.Ask(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}
