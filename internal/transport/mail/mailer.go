package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Mailer delivers the two transactional messages the auth flow depends
// on: the login verification code and the password-reset link. A nil or
// unconfigured Mailer fails fast so a login never succeeds silently
// without the code reaching the inbox.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	useTLS   bool
}

func NewMailer(host, port, username, password, from string, useTLS bool) *Mailer {
	return &Mailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
		useTLS:   useTLS,
	}
}

// SendOTP emails the plaintext verification code for the MFA login step.
func (m *Mailer) SendOTP(ctx context.Context, email, otp string) error {
	subject := "Your Evently verification code"
	body := fmt.Sprintf("Your verification code is: %s\n\nIt expires in 10 minutes. If you did not try to sign in, you can ignore this email.", otp)
	return m.send(ctx, email, subject, body)
}

// SendPasswordReset emails the reset link containing the opaque token.
func (m *Mailer) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	subject := "Reset your Evently password"
	body := fmt.Sprintf("Use the link below to reset your password:\n\n%s\n\nThe link expires in 10 minutes. If you did not request this, ignore this email.", resetURL)
	return m.send(ctx, email, subject, body)
}

func (m *Mailer) send(ctx context.Context, email, subject, body string) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if m.host == "" || m.port == "" || m.from == "" {
		return errors.New("mailer missing configuration")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	message := strings.Builder{}
	message.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	message.WriteString(fmt.Sprintf("To: %s\r\n", email))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	message.WriteString(body)
	message.WriteString("\r\n")

	addr := net.JoinHostPort(m.host, m.port)
	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{email}, []byte(message.String()))
}
