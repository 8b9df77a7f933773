package services

import (
	"fmt"

	"github.com/echowrite/echowrite/internal/config"
	"github.com/wneessen/go-mail"
)

// Mailer delivers transactional email. Failures block strict flows
// (registration rollback) but are otherwise surfaced as plain errors.
type Mailer interface {
	SendVerificationCode(to, name, code string) error
	SendDeviceVerificationCode(to, name, code string) error
	SendPasswordResetCode(to, name, code string) error
}

// SMTPMailer sends through the configured SMTP relay.
type SMTPMailer struct {
	cfg *config.Config
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendVerificationCode(to, name, code string) error {
	subject := "Verify your EchoWrite email"
	body := fmt.Sprintf("Hi %s,\n\nYour EchoWrite verification code is: %s\n\nThe code expires in 10 minutes.\n", name, code)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendDeviceVerificationCode(to, name, code string) error {
	subject := "New device sign-in on EchoWrite"
	body := fmt.Sprintf("Hi %s,\n\nA sign-in from a new device needs verification. Your code is: %s\n\nIf this wasn't you, change your password.\n", name, code)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendPasswordResetCode(to, name, code string) error {
	subject := "Reset your EchoWrite password"
	body := fmt.Sprintf("Hi %s,\n\nYour password reset code is: %s\n\nThe code expires in 10 minutes. If you didn't request a reset, ignore this email.\n", name, code)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.SMTPHost,
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.SMTPUser),
		mail.WithPassword(m.cfg.SMTPPassword),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
