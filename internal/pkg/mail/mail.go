package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/titanfed/titan/internal/pkg/env"
)

var ErrInvalidMessage = errors.New("mail message requires recipient, subject and body")

// Message is one outgoing HTML email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	Tag      string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Subject) == "" || strings.TrimSpace(m.HTMLBody) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSenderFromEnv uses Postmark when POSTMARK_SERVER_TOKEN is set and SMTP
// otherwise.
func NewSenderFromEnv() Sender {
	from := env.GetEnv("MAIL_SENDER", env.GetEnv("SMTP_SENDER", ""))
	if token := strings.TrimSpace(env.GetEnv("POSTMARK_SERVER_TOKEN", "")); token != "" {
		sender, err := NewPostmarkSender(PostmarkConfig{
			ServerToken:  token,
			AccountToken: env.GetEnv("POSTMARK_ACCOUNT_TOKEN", ""),
			From:         from,
			ReplyTo:      env.GetEnv("MAIL_REPLY_TO", ""),
		})
		if err == nil {
			log.Info("[Mail] Using Postmark sender")
			return sender
		}
		log.Warnf("[Mail] Postmark not usable, falling back to SMTP: %v", err)
	}
	return NewSMTPSenderFromEnv()
}
