package ai

import (
	"context"
	"errors"
	"strings"
)

const maxHistory = 20

type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

// Assistant answers passenger questions about using the complaint service.
type Assistant interface {
	Ask(ctx context.Context, prompt string, history []ChatMessage) (string, error)
}

// FallbackReply is returned to the passenger whenever the assistant cannot answer.
const FallbackReply = "Sorry, I can't answer right now. You can file a complaint from the Submit page " +
	"and follow it with the complaint ID you receive."

const assistantPrompt = "You are the Rail Madad assistant for Indian Railways passengers. " +
	"Help only with filing complaints, tracking them by complaint ID, attaching photos, video or audio, " +
	"and how complaints are categorised, prioritised and routed. " +
	"Steer unrelated questions back to complaints. Keep answers short and give steps where useful. " +
	"If you do not know a detail about Rail Madad, say so."

// Ask keeps the latest turns of history and does not cache answers.
func (h *HTTPAdapter) Ask(ctx context.Context, prompt string, history []ChatMessage) (string, error) {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: assistantPrompt})
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	answer, _, err := h.post(ctx, chatRequest{Model: h.Model, Temperature: 0.3, MaxTokens: h.MaxTokens, Messages: messages})
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("empty assistant answer")
	}
	return answer, nil
}

var mockAnswers = []struct {
	words  []string
	answer string
}{
	{[]string{"track", "status", "where is"}, "Open My Complaints and pick the complaint ID you were given, for example RM000123. Each status change shows up in its timeline."},
	{[]string{"photo", "video", "audio", "upload", "attach"}, "You can attach photos, video or audio on the Submit page. Files are checked automatically to help categorise your complaint."},
	{[]string{"priority", "urgent", "emergency"}, "Complaints about safety, health and harassment are marked critical or high priority and are handled first."},
	{[]string{"submit", "file", "register", "complain"}, "Sign in with your phone number, enter your 10 digit PNR and describe the problem. You will get a complaint ID right away."},
}

// Ask matches simple keywords so development runs have a predictable assistant.
func (m MockAdapter) Ask(ctx context.Context, prompt string, history []ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lower := strings.ToLower(prompt)
	for _, a := range mockAnswers {
		for _, w := range a.words {
			if strings.Contains(lower, w) {
				return a.answer, nil
			}
		}
	}
	return "I can help you submit a complaint, attach evidence and track its progress. What would you like to do?", nil
}
