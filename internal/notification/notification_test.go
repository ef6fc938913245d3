package notification

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchesByChannel(t *testing.T) {
	var got []Message
	capture := NotifierFunc(func(_ context.Context, m Message) error {
		got = append(got, m)
		return nil
	})

	router := NewRouter(nil).Register(ChannelEmail, capture)
	require.True(t, router.Supports(ChannelEmail))
	require.False(t, router.Supports(ChannelSMS))

	err := router.Send(context.Background(), Message{Kind: KindAccountVerification, Channel: ChannelEmail, Destination: "a@example.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	err = router.Send(context.Background(), Message{Channel: ChannelSMS, Destination: "+15550001111"})
	require.ErrorIs(t, err, ErrChannelUnavailable)
}

func TestRouterWrapsSenderError(t *testing.T) {
	boom := errors.New("relay down")
	router := NewRouter(nil).Register(ChannelEmail, NotifierFunc(func(context.Context, Message) error { return boom }))

	err := router.Send(context.Background(), Message{Channel: ChannelEmail, Destination: "a@example.com"})
	require.ErrorIs(t, err, boom)
}

func TestSMSChainFallsBackToNextProvider(t *testing.T) {
	var twilioHits, gatewayHits int32
	twilio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&twilioHits, 1)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"unavailable"}`))
	}))
	defer twilio.Close()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&gatewayHits, 1)
		assert.Equal(t, "key-1", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	chain := NewSMSChain(
		NewTwilioProvider("AC123", "token", "+15550000000").WithBaseURL(twilio.URL),
		NewGatewayProvider(gateway.URL, "key-1", "SALON"),
	)
	require.Equal(t, 2, chain.Len())

	err := chain.Send(context.Background(), Message{Channel: ChannelSMS, Destination: "+15551234567", Body: "hi"})
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&twilioHits))
	require.EqualValues(t, 1, atomic.LoadInt32(&gatewayHits))
}

func TestSMSChainJoinsErrorsWhenAllFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	chain := NewSMSChain(nil, NewGatewayProvider(failing.URL, "", "SALON"))
	err := chain.Send(context.Background(), Message{Destination: "+1555", Body: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "gateway")

	require.ErrorIs(t, NewSMSChain().Send(context.Background(), Message{}), ErrChannelUnavailable)
}

func TestProvidersRequireCredentials(t *testing.T) {
	require.Nil(t, NewTwilioProvider("", "token", "+1"))
	require.Nil(t, NewGatewayProvider("", "key", "S"))
}

func TestVerificationEmailRendersCode(t *testing.T) {
	subject, body, err := VerificationEmail("Glamour", "jane doe", "042017", 10*time.Minute)
	require.NoError(t, err)
	require.Contains(t, subject, "Glamour")
	require.Contains(t, body, "Jane Doe")
	require.Contains(t, body, "042017")
	require.Contains(t, body, "10 minutes")
}

func TestVerificationEmailEscapesName(t *testing.T) {
	_, body, err := VerificationEmail("Glamour", "<script>", "123456", time.Minute)
	require.NoError(t, err)
	require.False(t, strings.Contains(body, "<script>"))
}

func TestLoggerNotifierIgnoresNil(t *testing.T) {
	var n *LoggerNotifier
	require.NoError(t, n.Send(context.Background(), Message{}))
}

func TestEmailSenderTimesOutOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	// Accept and hold connections without ever sending the 220 greeting.
	held := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		held <- conn
	}()
	t.Cleanup(func() {
		select {
		case conn := <-held:
			conn.Close()
		default:
		}
	})

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	sender := NewEmailSender(host, port, "", "", "salon@example.com")
	sender.timeout = 100 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- sender.Send(context.Background(), Message{Channel: ChannelEmail, Destination: "jane@example.com", Subject: "hi", Body: "<p>hi</p>"})
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		var netErr net.Error
		require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "want timeout, got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Send blocked on a server that never greets")
	}
}

func TestEmailSenderUsesDefaultConversationTimeout(t *testing.T) {
	require.Equal(t, smtpTimeout, NewEmailSender("smtp.example.com", "587", "", "", "a@example.com").timeout)
}
