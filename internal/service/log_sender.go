package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authkeeper/internal/models"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// LogSender keeps outgoing messages in memory instead of delivering them. It
// backs the "log" email provider and the in-memory harness, which prints the
// text body so the reset token can be copied from the terminal.
type LogSender struct {
	mu   sync.Mutex
	out  io.Writer
	sent []models.EmailMessage
}

// NewLogSender creates a LogSender. When out is nil messages are only kept.
func NewLogSender(out io.Writer) *LogSender {
	return &LogSender{out: out}
}

// Send implements NotificationSender.
func (s *LogSender) Send(ctx context.Context, msg *models.EmailMessage) (*models.DeliveryReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, *msg)
	messageID := fmt.Sprintf("<%s@localhost>", uuid.NewString())

	if s.out != nil {
		fmt.Fprintf(s.out, "\n--- email to %s ---\nSubject: %s\n\n%s--- end of email ---\n", msg.To, msg.Subject, msg.TextBody)
	}

	log.Info().
		Str("to", utils.MaskEmail(msg.To)).
		Str("subject", msg.Subject).
		Str("message_id", messageID).
		Msg("Email recorded by log sender")

	return &models.DeliveryReceipt{
		MessageID: messageID,
		Accepted:  []string{msg.To},
		Response:  "250 recorded",
	}, nil
}

// Sent returns a copy of the messages recorded so far.
func (s *LogSender) Sent() []models.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EmailMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

// Last returns the most recent message.
func (s *LogSender) Last() (models.EmailMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return models.EmailMessage{}, false
	}
	return s.sent[len(s.sent)-1], true
}
