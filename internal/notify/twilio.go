package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioSMS sends text messages through the Twilio Messages REST API.
// Prefix is prepended to both numbers; "whatsapp:" routes the message over WhatsApp.
type TwilioSMS struct {
	AccountSID string
	AuthToken  string
	From       string
	Prefix     string
	BaseURL    string
	Client     *http.Client
}

func (t TwilioSMS) SendSMS(ctx context.Context, to, body string) error {
	base := t.BaseURL
	if base == "" {
		base = twilioBaseURL
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	form := url.Values{}
	form.Set("To", t.Prefix+to)
	form.Set("From", t.Prefix+t.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(base, "/"), t.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("twilio http error: %s: %d %s", resp.Status, errBody.Code, errBody.Message)
	}
	return nil
}

// LogSMS is used when Twilio is not configured. It only logs that a message would be sent.
type LogSMS struct {
	Logger zerolog.Logger
}

func (l LogSMS) SendSMS(ctx context.Context, to, body string) error {
	l.Logger.Info().Str("to", maskNumber(to)).Int("length", len(body)).Msg("sms delivery disabled, message not sent")
	return nil
}

func maskNumber(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}
