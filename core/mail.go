package core

import "net/mail"

type (
	// EmailMessage is a plain-text mail submission. Notification fan-out and
	// operator mails only ever send text content.
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		Body    string
	}

	// EmailService is any service that can send emails.
	// Delivery is best-effort: implementations send in the background and
	// swallow failures; callers get no completion signal.
	EmailService interface {
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.Body != "" }
