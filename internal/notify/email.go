package notify

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ResendEmail sends mail through the Resend API.
type ResendEmail struct {
	Client *resend.Client
	From   string
}

func NewResendEmail(apiKey, from, baseURL string) (*ResendEmail, error) {
	client := resend.NewClient(apiKey)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("resend base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendEmail{Client: client, From: from}, nil
}

func (r *ResendEmail) SendEmail(ctx context.Context, to, subject, body string) error {
	_, err := r.Client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.From,
		To:      []string{to},
		Subject: subject,
		Html:    "<p>" + html.EscapeString(body) + "</p>",
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// LogEmail is used when no email provider is configured.
type LogEmail struct {
	Logger zerolog.Logger
}

func (l LogEmail) SendEmail(ctx context.Context, to, subject, body string) error {
	l.Logger.Info().Str("subject", subject).Int("length", len(body)).Msg("email delivery disabled, message not sent")
	return nil
}
