package service

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	gomail "github.com/wneessen/go-mail"

	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/models"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

const maxLoggedResponse = 200

// SMTPSender delivers email through an SMTP relay. With Secure set it speaks
// implicit TLS (usually port 465); otherwise it upgrades with STARTTLS when
// the server offers it. Configured credentials make AUTH mandatory: a relay
// that does not offer it fails the session before any mail is handed over.
type SMTPSender struct {
	cfg config.EmailSettings
}

// NewSMTPSender creates an SMTPSender from the email settings.
func NewSMTPSender(cfg *config.EmailSettings) *SMTPSender {
	return &SMTPSender{cfg: *cfg}
}

// newClient builds a client for one session with the relay.
func (s *SMTPSender) newClient() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTimeout(constants.SMTPDialTimeout),
		gomail.WithTLSConfig(&tls.Config{
			ServerName:         s.cfg.Host,
			InsecureSkipVerify: s.cfg.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		}),
	}

	if s.cfg.Secure {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp settings: %w", err)
	}
	return client, nil
}

// Verify checks that the relay is reachable and accepts the credentials.
func (s *SMTPSender) Verify(ctx context.Context) error {
	client, err := s.newClient()
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to smtp server %s: %w", s.cfg.SMTPAddress(), err)
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("smtp quit failed: %w", err)
	}
	return nil
}

// Send implements NotificationSender.
func (s *SMTPSender) Send(ctx context.Context, msg *models.EmailMessage) (*models.DeliveryReceipt, error) {
	if s.cfg.Debug {
		log.Debug().
			Str("host", s.cfg.Host).
			Int("port", s.cfg.Port).
			Bool("secure", s.cfg.Secure).
			Str("user", s.cfg.Username).
			Str("password", constants.LogRedactedValue).
			Msg("Attempting to send email")
	}

	messageID := s.newMessageID()
	message, err := s.compose(msg, messageID)
	if err != nil {
		return nil, err
	}

	client, err := s.newClient()
	if err != nil {
		return nil, err
	}

	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		s.debugFailure(err)
		var sendErr *gomail.SendError
		if errors.As(err, &sendErr) && sendErr.Reason == gomail.ErrSMTPRcptTo {
			return nil, fmt.Errorf("smtp RCPT TO rejected: %w", err)
		}
		return nil, fmt.Errorf("smtp delivery via %s failed: %w", s.cfg.SMTPAddress(), err)
	}

	receipt := &models.DeliveryReceipt{
		MessageID: "<" + messageID + ">",
		Accepted:  []string{msg.To},
	}

	if s.cfg.Debug {
		log.Debug().
			Str("message_id", receipt.MessageID).
			Strs("accepted", utils.MaskEmails(receipt.Accepted)).
			Msg("Email sent successfully")
	}

	return receipt, nil
}

func (s *SMTPSender) debugFailure(err error) {
	if !s.cfg.Debug {
		return
	}
	event := log.Debug().Err(err)

	var sendErr *gomail.SendError
	if errors.As(err, &sendErr) {
		event = event.Str("stage", sendErr.Reason.String()).Bool("temporary", sendErr.IsTemp())
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		event = event.Int("response_code", tpErr.Code).Str("response", utils.TruncateString(tpErr.Msg, maxLoggedResponse))
	}
	event.Msg("SMTP error details")
}

// newMessageID returns a Message-ID value without the angle brackets.
func (s *SMTPSender) newMessageID() string {
	domain := "localhost"
	if at := strings.LastIndex(s.cfg.FromAddress, "@"); at >= 0 && at < len(s.cfg.FromAddress)-1 {
		domain = s.cfg.FromAddress[at+1:]
	}
	return uuid.NewString() + "@" + domain
}

// compose builds a multipart/alternative message with a plain text and an
// HTML part. Header encoding is left to go-mail.
func (s *SMTPSender) compose(msg *models.EmailMessage, messageID string) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetMessageIDWithValue(messageID)
	m.SetDate()

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBodyString(gomail.TypeTextPlain, msg.TextBody)
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(gomail.TypeTextPlain, msg.TextBody)
	}
	return m, nil
}
