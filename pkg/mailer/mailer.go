package mailer

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mjlee/confirmail-backend/config"
	"gopkg.in/gomail.v2"
)

// Mailer delivers transactional confirmation email. The plaintext token
// travels only through this channel.
type Mailer interface {
	SendConfirmationEmail(to, token, redirectTo string) error
	SendPasswordResetEmail(to, token, redirectTo string) error
}

type smtpMailer struct {
	dialer      *gomail.Dialer
	from        string
	baseURL     string
	sendTimeout time.Duration
}

func NewSMTPMailer(cfg *config.SMTPConfig, baseURL string) Mailer {
	return &smtpMailer{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:        cfg.From,
		baseURL:     baseURL,
		sendTimeout: cfg.SendTimeout,
	}
}

func (m *smtpMailer) SendConfirmationEmail(to, token, redirectTo string) error {
	link := m.confirmationURL(token, redirectTo)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Confirm your email address")

	body := fmt.Sprintf(`
		<h2>Confirm your email address</h2>
		<p>Thanks for signing up! Please confirm your email address by clicking the link below.</p>
		<p><a href="%s">Confirm email</a></p>
		<p>This link expires in 24 hours. If you did not create an account, you can ignore this email.</p>
	`, link)

	msg.SetBody("text/html", body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

func (m *smtpMailer) SendPasswordResetEmail(to, token, redirectTo string) error {
	link := m.confirmationURL(token, redirectTo)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password reset request")

	body := fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>We received a request to reset the password for your account.</p>
		<p><a href="%s">Reset password</a></p>
		<p>This link expires in 1 hour. If you did not request this change, you can ignore this email.</p>
	`, link)

	msg.SetBody("text/html", body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

// confirmationURL embeds the plaintext token (never the hash) and the
// post-confirmation redirect target.
func (m *smtpMailer) confirmationURL(token, redirectTo string) string {
	params := url.Values{}
	params.Set("token", token)
	if redirectTo != "" {
		params.Set("redirect_to", redirectTo)
	}
	return fmt.Sprintf("%s?%s", m.baseURL, params.Encode())
}

// send runs DialAndSend under a deadline; gomail exposes no timeout of
// its own and a wedged SMTP server must not hold the request hostage.
func (m *smtpMailer) send(msg *gomail.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(m.sendTimeout):
		return fmt.Errorf("smtp send timed out after %s", m.sendTimeout)
	}
}
