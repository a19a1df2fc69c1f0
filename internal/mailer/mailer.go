package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/aphexes/flaskblog/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, log *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// SendPasswordReset sends the reset link for a requested password reset
func (s *Sender) SendPasswordReset(to, username, resetURL string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Password Reset Request"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"To reset your password, visit the following link:\n%s\n\n"+
			"If you did not make this request then simply ignore this email "+
			"and no changes will be made.\n",
		username, resetURL,
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.log.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
