package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"docvault/internal/platform/config"
)

// Mailer sends account emails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailer builds a Mailer from SMTP config.
func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

// SendOTP mails a verification code to the user.
func (m *Mailer) SendOTP(_ context.Context, to, name, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "OTP Verification - Document Vault")
	msg.SetBody("text/html", otpBody(name, code))
	msg.AddAlternative("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour one-time password is %s. It is valid for 5 minutes. Do not share this code with anyone.\n", name, code))

	return m.dialer.DialAndSend(msg)
}

func otpBody(name, code string) string {
	return fmt.Sprintf(`<div style="max-width:600px;margin:0 auto;font-family:Arial,sans-serif">
  <h2>OTP Verification</h2>
  <p>Hi %s,</p>
  <p>Your one-time password for secure access to your documents is:</p>
  <p style="font-size:32px;font-weight:bold;letter-spacing:5px">%s</p>
  <p style="font-size:14px;color:#666">This OTP is valid for 5 minutes. Do not share this code with anyone.</p>
</div>`, name, code)
}
