package config

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends HTML e-mail over SMTP.
type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether SMTP_HOST and SMTP_FROM are set.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != "" && m.cfg.From != ""
}

func (m *Mailer) Send(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if !m.Enabled() {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Pass)

	// STARTTLS on 587 (Gmail/Office365).
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.cfg.Host,
		InsecureSkipVerify: m.cfg.SkipTLSVerify, // dev only
	}

	return d.DialAndSend(msg)
}
