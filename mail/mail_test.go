package mail

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/junaidrashid-git/eshop/config"
	"github.com/junaidrashid-git/eshop/logger"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFallsBackToLogMailer(t *testing.T) {
	var out bytes.Buffer
	m := New(config.EmailConfig{}, logger.NewWithOutput(&out, "info", false))
	require.IsType(t, &LogMailer{}, m)

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "Hi", Text: "body"}))
	assert.Contains(t, out.String(), "subject=Hi")

	assert.IsType(t, &SMTPMailer{}, New(config.EmailConfig{Host: "smtp.example.com", Port: 587}, logger.Discard()))
}

func TestVerificationEmail(t *testing.T) {
	msg := VerificationEmail(models.User{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"},
		"http://shop.test/verify-email/MQ/tok/")

	assert.Equal(t, []string{"jane@example.com"}, msg.To)
	assert.Equal(t, "Verify Your Email Address", msg.Subject)
	assert.Contains(t, msg.Text, "Hi Jane Doe,")
	assert.Contains(t, msg.Text, "http://shop.test/verify-email/MQ/tok/")
}

func TestOrderConfirmationEmail(t *testing.T) {
	order := models.Order{
		ID:        7,
		FirstName: "Jane",
		Email:     "jane@example.com",
		Items: []models.OrderItem{
			{ProductName: "Shirt <XL>", Price: decimal.NewFromInt(10), Quantity: 2},
			{ProductName: "Socks", Price: decimal.NewFromInt(5), Quantity: 1},
		},
	}

	msg, err := OrderConfirmationEmail(order)
	require.NoError(t, err)
	assert.Equal(t, "Order Confirmation - Order #7", msg.Subject)
	assert.Contains(t, msg.HTML, "Shirt &lt;XL&gt;")
	assert.Contains(t, msg.HTML, "25.00")
	assert.Contains(t, msg.Text, "25.00")
	assert.Equal(t, []string{"jane@example.com"}, msg.To)

	order.User = models.User{Email: "account@example.com"}
	msg, err = OrderConfirmationEmail(order)
	require.NoError(t, err)
	assert.Equal(t, []string{"account@example.com"}, msg.To)
}

func TestBuildRawMultipart(t *testing.T) {
	raw := string(buildRaw("shop@example.com", Message{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Hello",
		Text:    "plain",
		HTML:    "<p>html</p>",
	}))

	assert.Contains(t, raw, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "plain\r\n")
	assert.Contains(t, raw, "<p>html</p>")
}

func TestSMTPMailerRequiresRecipients(t *testing.T) {
	m := &SMTPMailer{cfg: config.EmailConfig{Host: "localhost", Port: 25}}
	assert.Error(t, m.Send(context.Background(), Message{Subject: "x"}))
}

// plainSMTP is a single-connection SMTP server without STARTTLS. It records
// the DATA payload.
type plainSMTP struct {
	ln   net.Listener
	mu   sync.Mutex
	data string
	done chan struct{}
}

func startPlainSMTP(t *testing.T) *plainSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &plainSMTP{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })

	go func() {
		defer close(s.done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

		reply("220 test ESMTP")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				reply("250-test")
				reply("250 SIZE 1000000")
			case strings.HasPrefix(cmd, "DATA"):
				reply("354 go ahead")
				var body strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				s.mu.Lock()
				s.data = body.String()
				s.mu.Unlock()
				reply("250 queued")
			case strings.HasPrefix(cmd, "QUIT"):
				reply("221 bye")
				return
			default:
				reply("250 ok")
			}
		}
	}()
	return s
}

func (s *plainSMTP) port(t *testing.T) int {
	_, p, err := net.SplitHostPort(s.ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return port
}

func (s *plainSMTP) received() string {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func TestSMTPMailerRequiresStartTLSWhenConfigured(t *testing.T) {
	srv := startPlainSMTP(t)
	m := New(config.EmailConfig{Host: "127.0.0.1", Port: srv.port(t), UseTLS: true, From: "shop@example.com"}, logger.Discard())

	err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hi", Text: "body"})
	assert.ErrorIs(t, err, ErrStartTLSRequired)
	assert.Empty(t, srv.received())
}

func TestSMTPMailerSendsPlainWhenTLSDisabled(t *testing.T) {
	srv := startPlainSMTP(t)
	m := New(config.EmailConfig{Host: "127.0.0.1", Port: srv.port(t), From: "shop@example.com"}, logger.Discard())

	err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hi", Text: "body"})
	require.NoError(t, err)
	got := srv.received()
	assert.Contains(t, got, "Subject: Hi\r\n")
	assert.Contains(t, got, "body")
}
