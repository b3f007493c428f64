package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"urbansetu/utils"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer is a no-op when Host is empty.
type SMTPMailer struct {
	opts SMTPOptions
}

func NewSMTPMailer(o SMTPOptions) *SMTPMailer {
	return &SMTPMailer{opts: o}
}

func (m *SMTPMailer) Enabled() bool {
	return m != nil && m.opts.Host != ""
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.Enabled() {
		utils.Debug().Str("to", utils.MaskEmail(to)).Str("subject", subject).Msg("mailer disabled, dropping email")
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.opts.From,
		"To: " + to,
		"Subject: " + subject,
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.opts.Host, m.opts.Port)
	var auth smtp.Auth
	if m.opts.Username != "" {
		auth = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, envelopeAddress(m.opts.From), []string{to}, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// envelopeAddress pulls "a@b" out of "Name <a@b>".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		return strings.TrimSuffix(from[i+1:], ">")
	}
	return from
}

// SendAsync runs Send in the background and only logs failures.
func SendAsync(m Mailer, to, subject, body string) {
	if m == nil || to == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := m.Send(ctx, to, subject, body); err != nil {
			utils.Warn().Err(err).Str("to", utils.MaskEmail(to)).Msg("failed to send email")
			utils.TrackError("mail", "send")
		}
	}()
}
