package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/railmadad/backend/internal/models"
)

const (
	EventSubmitted     = "complaint.submitted"
	EventStatusChanged = "complaint.status_changed"
	EventAssigned      = "complaint.assigned"
	EventEnriched      = "complaint.enriched"
)

// Event is published to every notifier. ContactEmail stays off the wire.
type Event struct {
	Type         string          `json:"type"`
	ComplaintID  string          `json:"complaintId"`
	UserID       string          `json:"userId"`
	Status       models.Status   `json:"status"`
	Priority     models.Priority `json:"priority"`
	AssigneeID   string          `json:"assigneeId,omitempty"`
	Channel      string          `json:"channel,omitempty"`
	ContactEmail string          `json:"-"`
	Message      string          `json:"message"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Recorder receives one observation per delivery attempt.
type Recorder interface {
	ObserveNotification(notifier, outcome string)
}

type named struct {
	name string
	n    Notifier
}

// Dispatcher fans events out to notifiers on background goroutines.
// Delivery failures are logged and never reach the caller.
type Dispatcher struct {
	notifiers []named
	timeout   time.Duration
	logger    zerolog.Logger
	metrics   Recorder
	wg        sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, logger zerolog.Logger, metrics Recorder) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{timeout: timeout, logger: logger, metrics: metrics}
}

func (d *Dispatcher) Register(name string, n Notifier) {
	d.notifiers = append(d.notifiers, named{name: name, n: n})
}

func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	base := context.WithoutCancel(ctx)
	for _, nn := range d.notifiers {
		nn := nn
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			outcome := "ok"
			if err := nn.n.Notify(ctx, e); err != nil {
				outcome = "error"
				d.logger.Error().Err(err).
					Str("notifier", nn.name).
					Str("event", e.Type).
					Str("complaint_id", e.ComplaintID).
					Msg("notification failed")
			}
			if d.metrics != nil {
				d.metrics.ObserveNotification(nn.name, outcome)
			}
		}()
	}
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier writes events to the application log.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, e Event) error {
	l.Logger.Info().
		Str("event", e.Type).
		Str("complaint_id", e.ComplaintID).
		Str("status", string(e.Status)).
		Str("assignee_id", e.AssigneeID).
		Msg(e.Message)
	return nil
}

const (
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
	ChannelNone     = "none"
)

// UserLookup resolves the complainant's phone number and email.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (models.User, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ContactNotifier tells the complainant about submission and status changes over the
// channel they picked. An empty channel means SMS to the login number. A channel with
// no configured sender is logged and skipped.
type ContactNotifier struct {
	SMS      SMSSender
	WhatsApp SMSSender
	Email    EmailSender
	Users    UserLookup
	Logger   zerolog.Logger
}

func (n ContactNotifier) Notify(ctx context.Context, e Event) error {
	if e.Type != EventStatusChanged && e.Type != EventSubmitted {
		return nil
	}
	channel := e.Channel
	if channel == "" {
		channel = ChannelSMS
	}
	if channel == ChannelNone {
		return nil
	}

	u, err := n.Users.GetUser(ctx, e.UserID)
	if err != nil {
		return err
	}
	body := "RailMadad " + e.ComplaintID + ": " + e.Message

	switch channel {
	case ChannelSMS, ChannelWhatsApp:
		sender := n.SMS
		if channel == ChannelWhatsApp {
			sender = n.WhatsApp
		}
		if sender == nil {
			n.skip(channel, e)
			return nil
		}
		if u.PhoneNumber == "" {
			return errors.New("complainant has no phone number")
		}
		return sender.SendSMS(ctx, u.PhoneNumber, body)
	case ChannelEmail:
		if n.Email == nil {
			n.skip(channel, e)
			return nil
		}
		to := e.ContactEmail
		if to == "" {
			to = u.Email
		}
		if to == "" {
			return errors.New("complainant has no email address")
		}
		return n.Email.SendEmail(ctx, to, "Complaint "+e.ComplaintID+" update", body)
	default:
		n.skip(channel, e)
		return nil
	}
}

func (n ContactNotifier) skip(channel string, e Event) {
	n.Logger.Warn().
		Str("channel", channel).
		Str("complaint_id", e.ComplaintID).
		Msg("no sender configured for contact channel, notification skipped")
}
