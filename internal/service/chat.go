package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/railmadad/backend/internal/ai"
)

type ChatRequest struct {
	Message string           `json:"message" validate:"required,max=2000"`
	History []ai.ChatMessage `json:"history" validate:"max=50,dive"`
}

type ChatReply struct {
	Message  string `json:"message"`
	Fallback bool   `json:"fallback,omitempty"`
}

// ChatService fronts the help assistant. Provider failures become a canned reply.
type ChatService struct {
	Assistant ai.Assistant
	Validator *validator.Validate
	Timeout   time.Duration
	Logger    zerolog.Logger
}

func (s *ChatService) Reply(ctx context.Context, req ChatRequest) (ChatReply, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := s.Validator.Struct(req); err != nil {
		return ChatReply{}, validationError(err)
	}
	if s.Assistant == nil {
		return ChatReply{Message: ai.FallbackReply, Fallback: true}, nil
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	answer, err := s.Assistant.Ask(ctx, req.Message, req.History)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("assistant unavailable, using fallback reply")
		return ChatReply{Message: ai.FallbackReply, Fallback: true}, nil
	}
	return ChatReply{Message: answer}, nil
}
