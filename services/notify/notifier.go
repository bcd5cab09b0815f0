// Package notifysvc fans announcements out to tenant members by email.
package notifysvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/profile"
	"github.com/kindredkids/compass/storage/supabase"
)

// Notification is an announcement row created through the API.
type Notification struct {
	ID         string `json:"id,omitempty"`
	ChurchID   string `json:"church_id"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	TargetRole string `json:"target_role"`
	Category   string `json:"category"`
	CreatedBy  string `json:"created_by,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// TargetAll addresses every member of the tenant regardless of role.
const TargetAll = "all"

// Notifier emails tenant members when a notification is created. Delivery is
// best-effort: recipient lookup failures are logged and dropped, and the
// email backend itself dispatches asynchronously.
type Notifier struct {
	enabled bool
	store   *supabase.Client
	mail    core.EmailService
	logger  core.Logger
}

func NewNotifier(conf *core.Config, store *supabase.Client, mailSvc core.EmailService, logger core.Logger) *Notifier {
	return &Notifier{
		enabled: conf.NotifyEmails,
		store:   store,
		mail:    mailSvc,
		logger:  logger,
	}
}

// NotificationCreated builds the recipient list for n's tenant, filtered by
// target role, and hands one message per recipient to the email backend.
func (nf *Notifier) NotificationCreated(n Notification) {
	if !nf.enabled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recipients, err := nf.recipients(ctx, n)
	if err != nil {
		nf.logger.Error(fmt.Sprintf("listing notification recipients: %v", err), err)
		return
	}

	messages := make([]*core.EmailMessage, 0, len(recipients))
	for _, prof := range recipients {
		if prof.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:      []mail.Address{{Name: prof.FullName, Address: prof.Email}},
			Subject: n.Title,
			Body:    fmt.Sprintf("Hi %s,\n\n%s\n", prof.FullName, n.Message),
		})
	}
	nf.mail.SendMessages(messages...)
}

func (nf *Notifier) recipients(ctx context.Context, n Notification) ([]profile.Profile, error) {
	q := nf.store.From("users").Select("id,full_name,email,role").Eq("church_id", n.ChurchID)
	if n.TargetRole != "" && n.TargetRole != TargetAll {
		q = q.Eq("role", n.TargetRole)
	}

	var profiles []profile.Profile
	if err := q.Get(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
