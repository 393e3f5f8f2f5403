package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/models"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

const (
	sendGridEndpoint  = "/v3/mail/send"
	sendGridMessageID = "X-Message-Id"
)

// SendGridSender delivers email through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	debug     bool
}

// NewSendGridSender creates a SendGridSender. It requires an API key.
func NewSendGridSender(cfg *config.EmailSettings) (*SendGridSender, error) {
	return newSendGridSender(cfg, "")
}

// newSendGridSender lets tests point the client at a local server. An empty
// host means the public API.
func newSendGridSender(cfg *config.EmailSettings, host string) (*SendGridSender, error) {
	if cfg.SendGridAPIKey == "" {
		return nil, fmt.Errorf("sendgrid api key not set")
	}

	request := sendgrid.GetRequest(cfg.SendGridAPIKey, sendGridEndpoint, host)
	request.Method = "POST"

	return &SendGridSender{
		client:    &sendgrid.Client{Request: request},
		fromName:  cfg.FromName,
		fromEmail: cfg.FromAddress,
		debug:     cfg.Debug,
	}, nil
}

// Send implements NotificationSender.
func (s *SendGridSender) Send(ctx context.Context, msg *models.EmailMessage) (*models.DeliveryReceipt, error) {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.TextBody, msg.HTMLBody)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		log.Error().Err(err).Str("to", utils.MaskEmail(msg.To)).Msg("Failed to send email via SendGrid")
		return nil, fmt.Errorf("sendgrid request failed: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		log.Error().
			Int("status_code", response.StatusCode).
			Str("to", utils.MaskEmail(msg.To)).
			Msg("SendGrid rejected email")
		if s.debug {
			log.Debug().Str("response", response.Body).Msg("SendGrid error details")
		}
		return &models.DeliveryReceipt{Rejected: []string{msg.To}, Response: response.Body},
			fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	receipt := &models.DeliveryReceipt{
		Accepted: []string{msg.To},
		Response: fmt.Sprintf("%d", response.StatusCode),
	}
	if ids := response.Headers[sendGridMessageID]; len(ids) > 0 {
		receipt.MessageID = ids[0]
	}

	log.Info().
		Int("status_code", response.StatusCode).
		Str("message_id", receipt.MessageID).
		Msg("Email sent via SendGrid")

	return receipt, nil
}
