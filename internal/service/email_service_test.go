package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/models"
)

func sendGridSettings() *config.EmailSettings {
	return &config.EmailSettings{
		Provider:       "sendgrid",
		SendGridAPIKey: "test-api-key",
		FromAddress:    "noreply@example.com",
		FromName:       "Auth System",
	}
}

func TestNewSendGridSender(t *testing.T) {
	t.Run("Success with API key set", func(t *testing.T) {
		sender, err := NewSendGridSender(sendGridSettings())
		assert.NoError(t, err)
		assert.NotNil(t, sender)
	})

	t.Run("Error with no API key", func(t *testing.T) {
		cfg := sendGridSettings()
		cfg.SendGridAPIKey = ""

		sender, err := NewSendGridSender(cfg)
		assert.Error(t, err)
		assert.Nil(t, sender)
		assert.Contains(t, err.Error(), "sendgrid api key not set")
	})
}

func TestSendGridSender_Send(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("X-Message-Id", "sg-message-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender, err := newSendGridSender(sendGridSettings(), server.URL)
	require.NoError(t, err)

	receipt, err := sender.Send(context.Background(), &models.EmailMessage{
		To:       "alice@example.com",
		Subject:  "Password Reset Request",
		HTMLBody: "<p>hi</p>",
		TextBody: "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "sg-message-1", receipt.MessageID)
	assert.Equal(t, []string{"alice@example.com"}, receipt.Accepted)
	assert.Equal(t, "Bearer test-api-key", gotAuth)
	assert.Equal(t, "Password Reset Request", gotBody["subject"])
}

func TestSendGridSender_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	sender, err := newSendGridSender(sendGridSettings(), server.URL)
	require.NoError(t, err)

	_, err = sender.Send(context.Background(), &models.EmailMessage{To: "alice@example.com", Subject: "s", TextBody: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
