package utils

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/resend/resend-go/v2"
)

// Mailer is the outbound mail collaborator. Implementations render and send
// a message; they never mutate application state.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, username, verifyURL string) error
	SendPasswordResetEmail(ctx context.Context, email, username, resetURL string) error
}

// DispatchEmail sends after the triggering DB mutation has already
// committed. A failure is logged and swallowed, never retried and never
// rolled back into the request.
func DispatchEmail(ctx context.Context, kind, to string, send func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := send(ctx); err != nil {
		slog.Error("email dispatch failed", "type", kind, "to", to, "error", err)
		return
	}
	slog.Info("email sent", "type", kind, "to", to)
}

const mailTimeout = 15 * time.Second

type ResendMailer struct {
	client  *resend.Client
	from    string
	appName string
	isDev   bool
}

func NewResendMailer() *ResendMailer {
	apiKey := os.Getenv("RESEND_API_KEY")
	isDev := os.Getenv("GIN_MODE") != "release"

	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = "mail.taskmanager@example.com"
	}
	appName := os.Getenv("APP_NAME")
	if appName == "" {
		appName = "Task Manager"
	}

	return &ResendMailer{
		client:  client,
		from:    from,
		appName: appName,
		isDev:   isDev,
	}
}

func (m *ResendMailer) SendVerificationEmail(ctx context.Context, email, username, verifyURL string) error {
	subject := "Verify your email"
	body := fmt.Sprintf(`Hi %s,

Welcome to %s! We're excited to have you on board.

To verify your email, open the link below:

%s

Need help? Just reply to this email.`, username, m.appName, verifyURL)

	return m.send(ctx, "email_verification", email, subject, body, verifyURL)
}

func (m *ResendMailer) SendPasswordResetEmail(ctx context.Context, email, username, resetURL string) error {
	subject := "Reset your password"
	body := fmt.Sprintf(`Hi %s,

We received a request to reset the password for your %s account.

To reset your password, open the link below:

%s

If you didn't request this, you can safely ignore this email.`, username, m.appName, resetURL)

	return m.send(ctx, "password_reset", email, subject, body, resetURL)
}

func (m *ResendMailer) send(ctx context.Context, kind, to, subject, body, url string) error {
	if m.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject, "url", url)
		return nil
	}
	if m.client == nil {
		return fmt.Errorf("mail transport not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}
	_, err := m.client.Emails.SendWithContext(ctx, params)
	return err
}
