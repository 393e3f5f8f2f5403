package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/models"
)

// NotificationSender delivers a single email. Implementations report what the
// transport accepted, or fail; they never retry.
type NotificationSender interface {
	Send(ctx context.Context, msg *models.EmailMessage) (*models.DeliveryReceipt, error)
}

// NewNotificationSender builds the sender selected by the email provider
// setting.
func NewNotificationSender(cfg *config.EmailSettings) (NotificationSender, error) {
	switch cfg.Provider {
	case constants.EmailProviderSMTP, "":
		return NewSMTPSender(cfg), nil
	case constants.EmailProviderSendGrid:
		return NewSendGridSender(cfg)
	case constants.EmailProviderLog:
		return NewLogSender(nil), nil
	default:
		return nil, fmt.Errorf("unsupported email provider: %q", cfg.Provider)
	}
}

// ResetLink returns the reset URL with the token as a query parameter. Any
// query already present on base is kept.
func ResetLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid reset url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var resetEmailHTML = template.Must(template.New("reset").Parse(`
<h1>Password Reset Request</h1>
<p>You received this email because you requested a password reset.</p>
<p>Click the link below to reset your password:</p>
<a href="{{.Link}}" style="padding: 10px 20px; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px; display: inline-block; margin: 10px 0;">Reset Password</a>
<p>Or use this reset token:</p>
<p style="background-color: #f5f5f5; padding: 10px; border-radius: 5px; font-family: monospace; margin: 10px 0;">{{.Token}}</p>
<p>If you didn't request a password reset, please ignore this email.</p>
<p>This link and token will expire in {{.Validity}}.</p>
`))

// BuildResetEmail renders the reset message for a token. The link and the raw
// token are both included so the user can paste the token by hand.
func BuildResetEmail(to, resetURL, token string, validity time.Duration) (*models.EmailMessage, error) {
	link, err := ResetLink(resetURL, token)
	if err != nil {
		return nil, err
	}

	data := struct {
		Link     string
		Token    string
		Validity string
	}{
		Link:     link,
		Token:    token,
		Validity: humanDuration(validity),
	}

	var html bytes.Buffer
	if err := resetEmailHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render reset email: %w", err)
	}

	var text strings.Builder
	text.WriteString("You received this email because you requested a password reset.\n\n")
	fmt.Fprintf(&text, "Reset your password: %s\n\n", link)
	fmt.Fprintf(&text, "Or use this reset token: %s\n\n", token)
	text.WriteString("If you didn't request a password reset, please ignore this email.\n")
	fmt.Fprintf(&text, "This link and token will expire in %s.\n", data.Validity)

	return &models.EmailMessage{
		To:       to,
		Subject:  constants.ResetEmailSubject,
		HTMLBody: strings.TrimSpace(html.String()),
		TextBody: text.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
