package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/railmadad/backend/internal/models"
)

// Categories offered to the model. Labels outside this list are still accepted
// and resolved against the category registry by the caller.
var promptCategories = []string{
	"Health Issue or Accident", "Theft or Robbery", "Ticketing and Reservations", "Seat Reserved by Other Person",
	"AC or Fan Issue", "Cleanliness", "Bed Roll", "Food Quality", "Staff Behavior", "Delayed Train",
	"Water Availability", "Electrical Issues", "Toilet Issues", "Luggage Issues", "Overcrowding",
	"Accessibility Issues", "Harassment", "Refund Issues", "Other",
}

const (
	maxImageBytes = 4 << 20
	cacheSize     = 512
	cacheTTL      = 60 * time.Second
)

// HTTPAdapter talks to an OpenAI-compatible /chat/completions endpoint.
// Text analyses are cached per adapter; a zero-value adapter does not cache.
type HTTPAdapter struct {
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
	Client    *http.Client

	cache *expirable.LRU[string, models.Analysis]
}

func NewHTTPAdapter(baseURL, apiKey, model string, client *http.Client) *HTTPAdapter {
	return &HTTPAdapter{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  client,
		cache:   expirable.NewLRU[string, models.Analysis](cacheSize, nil, cacheTTL),
	}
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type analysisBody struct {
	Category   string   `json:"category"`
	Categories []string `json:"categories"`
	Priority   string   `json:"priority"`
	Keywords   []string `json:"keywords"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
}

func systemPrompt() string {
	return "You classify Indian Railways passenger complaints. Reply with JSON only: " +
		`{"category": string, "categories": [string], "priority": "CRITICAL"|"HIGH"|"MEDIUM"|"LOW", ` +
		`"keywords": [string], "summary": string, "confidence": number between 0 and 1}. ` +
		"Allowed categories: " + strings.Join(promptCategories, ", ") + "."
}

func (h *HTTPAdapter) AnalyzeText(ctx context.Context, description string) (models.Analysis, error) {
	if h.cache != nil {
		if v, ok := h.cache.Get(description); ok {
			return v.Clone(), nil
		}
	}
	a, err := h.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt()},
		{Role: "user", Content: "Complaint: " + description},
	})
	if err != nil {
		return models.Analysis{}, err
	}
	if h.cache != nil {
		h.cache.Add(description, a.Clone())
	}
	return a, nil
}

// AnalyzeMedia sends images inline as data URLs. Other media is described by name and type only.
func (h *HTTPAdapter) AnalyzeMedia(ctx context.Context, att Attachment) (models.Analysis, error) {
	kind := models.MediaType(att.ContentType)
	text := fmt.Sprintf("Attachment %q of type %s submitted with a complaint.", att.Filename, att.ContentType)
	if kind != "image" || len(att.Data) > maxImageBytes {
		return h.complete(ctx, []chatMessage{
			{Role: "system", Content: systemPrompt()},
			{Role: "user", Content: text},
		})
	}
	dataURL := "data:" + att.ContentType + ";base64," + base64.StdEncoding.EncodeToString(att.Data)
	return h.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt()},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: text + " Describe the problem visible in the image."},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	})
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Messages       []chatMessage     `json:"messages"`
}

func (h *HTTPAdapter) complete(ctx context.Context, messages []chatMessage) (models.Analysis, error) {
	content, model, err := h.post(ctx, chatRequest{
		Model:          h.Model,
		MaxTokens:      h.MaxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages:       messages,
	})
	if err != nil {
		return models.Analysis{}, err
	}
	return parseAnalysis(content, model)
}

// post sends one chat completion and returns the first choice and the serving model.
func (h *HTTPAdapter) post(ctx context.Context, payload chatRequest) (string, string, error) {
	if strings.TrimSpace(h.BaseURL) == "" {
		return "", "", errors.New("AI_URL is not set")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	url := strings.TrimRight(h.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(h.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	client := h.Client
	if client == nil {
		timeout := 15 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
				timeout = remaining
			}
		}
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", "", fmt.Errorf("ai request timed out")
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", "", fmt.Errorf("ai request timed out")
		}
		return "", "", fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", "", RateLimitError{RetryAfter: extractRetryAfter(errBody)}
		}
		return "", "", fmt.Errorf("ai http error: %s", resp.Status)
	}

	var res struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", "", err
	}
	if len(res.Choices) == 0 {
		return "", "", errors.New("empty ai response")
	}
	return res.Choices[0].Message.Content, res.Model, nil
}

func parseAnalysis(content, model string) (models.Analysis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var body analysisBody
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &body); err != nil {
		return models.Analysis{}, fmt.Errorf("decode ai analysis: %w", err)
	}
	return models.Analysis{
		Category:     body.Category,
		Categories:   body.Categories,
		Priority:     NormalizePriority(body.Priority),
		Keywords:     body.Keywords,
		Summary:      body.Summary,
		Confidence:   body.Confidence,
		ModelVersion: model,
	}, nil
}

func extractRetryAfter(errBody map[string]any) time.Duration {
	errObj, ok := errBody["error"].(map[string]any)
	if !ok {
		return 0
	}
	details, ok := errObj["details"].([]any)
	if !ok {
		return 0
	}
	for _, d := range details {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := m["@type"].(string); ok && strings.Contains(t, "RetryInfo") {
			if s, ok := m["retryDelay"].(string); ok {
				if dur, err := time.ParseDuration(s); err == nil {
					return dur
				}
			}
		}
	}
	return 0
}
