package service

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/authkeeper/internal/config"
	"github.com/yasinhessnawi1/authkeeper/internal/models"
)

type fakeSMTPOptions struct {
	rejectRcpt bool
	offerAuth  bool
}

// fakeSMTPServer speaks just enough SMTP for a client session: no TLS, and
// AUTH PLAIN only when offerAuth is set.
type fakeSMTPServer struct {
	listener net.Listener
	opts     fakeSMTPOptions

	mu          sync.Mutex
	commands    []string
	data        string
	credentials string
}

func newFakeSMTPServer(t *testing.T, opts fakeSMTPOptions) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSMTPServer{listener: ln, opts: opts}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeSMTPServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTPServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTPServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { fmt.Fprintf(conn, "%s\r\n", line) }

	reply("220 localhost ESMTP ready")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		switch verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0]); verb {
		case "EHLO", "HELO":
			reply("250-localhost")
			if s.opts.offerAuth {
				reply("250-AUTH PLAIN")
			}
			reply("250 PIPELINING")
		case "AUTH":
			if !s.opts.offerAuth {
				reply("502 Command not implemented")
				continue
			}
			fields := strings.Fields(line)
			initial := ""
			if len(fields) > 2 {
				initial = fields[2]
			} else {
				reply("334 ")
				next, err := r.ReadString('\n')
				if err != nil {
					return
				}
				initial = strings.TrimRight(next, "\r\n")
			}
			decoded, err := base64.StdEncoding.DecodeString(initial)
			if err != nil {
				reply("501 Malformed credentials")
				continue
			}
			s.mu.Lock()
			s.credentials = string(decoded)
			s.mu.Unlock()
			reply("235 2.7.0 Authentication successful")
		case "MAIL":
			reply("250 OK")
		case "RCPT":
			if s.opts.rejectRcpt {
				reply("550 No such user")
				continue
			}
			reply("250 OK")
		case "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var body strings.Builder
			for {
				dl, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if dl == ".\r\n" {
					break
				}
				body.WriteString(dl)
			}
			s.mu.Lock()
			s.data = body.String()
			s.mu.Unlock()
			reply("250 OK queued")
		case "RSET", "NOOP":
			reply("250 OK")
		case "QUIT":
			reply("221 Bye")
			return
		default:
			reply("502 Command not implemented")
		}
	}
}

func (s *fakeSMTPServer) snapshot() ([]string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...), s.data
}

func (s *fakeSMTPServer) receivedCredentials() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentials
}

func hasCommandPrefix(commands []string, prefix string) bool {
	for _, c := range commands {
		if strings.HasPrefix(strings.ToUpper(c), prefix) {
			return true
		}
	}
	return false
}

func smtpSettings(port int) *config.EmailSettings {
	return &config.EmailSettings{
		Provider:    "smtp",
		Host:        "127.0.0.1",
		Port:        port,
		FromAddress: "noreply@example.com",
		FromName:    "Auth System",
		Debug:       true,
	}
}

func TestSMTPSender_Send(t *testing.T) {
	server := newFakeSMTPServer(t, fakeSMTPOptions{})
	sender := NewSMTPSender(smtpSettings(server.port()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	receipt, err := sender.Send(ctx, &models.EmailMessage{
		To:       "alice@example.com",
		Subject:  "Password Reset Request",
		HTMLBody: "<p>Reset</p>",
		TextBody: "Reset",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice@example.com"}, receipt.Accepted)
	assert.Empty(t, receipt.Rejected)
	assert.Empty(t, receipt.Response)
	assert.True(t, strings.HasSuffix(receipt.MessageID, "@example.com>"))

	commands, data := server.snapshot()
	assert.Contains(t, commands, "MAIL FROM:<noreply@example.com>")
	assert.Contains(t, commands, "RCPT TO:<alice@example.com>")
	assert.Contains(t, data, `From: "Auth System" <noreply@example.com>`)
	assert.Contains(t, data, "Subject: Password Reset Request")
	assert.Contains(t, data, "Message-ID: "+receipt.MessageID)
	assert.Contains(t, data, "multipart/alternative")
	assert.Contains(t, data, "text/html")
	assert.False(t, hasCommandPrefix(commands, "AUTH"), "no credentials configured")
}

func TestSMTPSender_RecipientRejected(t *testing.T) {
	server := newFakeSMTPServer(t, fakeSMTPOptions{rejectRcpt: true})
	sender := NewSMTPSender(smtpSettings(server.port()))

	_, err := sender.Send(context.Background(), &models.EmailMessage{To: "ghost@example.com", Subject: "s", TextBody: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RCPT TO rejected")
}

func TestSMTPSender_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sender := NewSMTPSender(smtpSettings(port))
	_, err = sender.Send(context.Background(), &models.EmailMessage{To: "alice@example.com", Subject: "s", TextBody: "b"})
	assert.Error(t, err)
}

func TestSMTPSender_Verify(t *testing.T) {
	server := newFakeSMTPServer(t, fakeSMTPOptions{})
	sender := NewSMTPSender(smtpSettings(server.port()))

	require.NoError(t, sender.Verify(context.Background()))

	commands, _ := server.snapshot()
	assert.Contains(t, commands, "QUIT")
}

func TestSMTPSender_AuthenticatesWhenConfigured(t *testing.T) {
	server := newFakeSMTPServer(t, fakeSMTPOptions{offerAuth: true})
	cfg := smtpSettings(server.port())
	cfg.Username = "mailer"
	cfg.Password = "s3cret"
	sender := NewSMTPSender(cfg)

	_, err := sender.Send(context.Background(), &models.EmailMessage{To: "alice@example.com", Subject: "s", TextBody: "b"})
	require.NoError(t, err)

	assert.Equal(t, "\x00mailer\x00s3cret", server.receivedCredentials())
	commands, _ := server.snapshot()
	assert.True(t, hasCommandPrefix(commands, "MAIL FROM"))
}

func TestSMTPSender_CredentialsWithoutServerAuth(t *testing.T) {
	server := newFakeSMTPServer(t, fakeSMTPOptions{})
	cfg := smtpSettings(server.port())
	cfg.Username = "mailer"
	cfg.Password = "s3cret"
	sender := NewSMTPSender(cfg)

	_, err := sender.Send(context.Background(), &models.EmailMessage{To: "alice@example.com", Subject: "s", TextBody: "b"})
	require.Error(t, err)

	commands, data := server.snapshot()
	assert.False(t, hasCommandPrefix(commands, "MAIL FROM"), "nothing may be handed over unauthenticated")
	assert.Empty(t, data)

	assert.Error(t, sender.Verify(context.Background()))
}

func TestSMTPSender_EncodesNonASCIIFromName(t *testing.T) {
	server := newFakeSMTPServer(t, fakeSMTPOptions{})
	cfg := smtpSettings(server.port())
	cfg.FromName = "Équipe Sécurité"
	sender := NewSMTPSender(cfg)

	_, err := sender.Send(context.Background(), &models.EmailMessage{To: "alice@example.com", Subject: "s", TextBody: "b"})
	require.NoError(t, err)

	_, data := server.snapshot()
	assert.Regexp(t, `From: =\?(?i:utf-8)\?[QqBb]\?`, data)
	assert.NotContains(t, data, "Équipe")
	assert.Contains(t, data, "<noreply@example.com>")
}
