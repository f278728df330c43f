// Package mail sends account notifications over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"pymegate/internal/platform/config"
)

// SMTP delivers plain-text mail through a single relay. It satisfies the
// account service's Notifier interface.
type SMTP struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host),
		from: cfg.From,
	}
}

func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
