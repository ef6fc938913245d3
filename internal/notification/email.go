package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	smtpDialTimeout = 10 * time.Second
	// smtpTimeout bounds the whole conversation when the caller set no deadline.
	smtpTimeout = 3 * smtpDialTimeout
)

// EmailSender delivers HTML mail through an SMTP relay. Port 465 uses implicit
// TLS; any other port upgrades with STARTTLS when the server offers it.
type EmailSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	timeout  time.Duration
}

// NewEmailSender configures an SMTP sender.
func NewEmailSender(host, port, user, pass, from string) *EmailSender {
	if from == "" {
		from = user
	}
	return &EmailSender{host: host, port: port, username: user, password: pass, from: from, timeout: smtpTimeout}
}

// Send implements Notifier.
func (e *EmailSender) Send(ctx context.Context, message Message) error {
	msg := buildMIME(e.from, message.Destination, message.Subject, message.Body)
	addr := net.JoinHostPort(e.host, e.port)

	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	var (
		conn net.Conn
		err  error
	)
	if e.port == "465" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: e.host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	deadline := time.Now().Add(e.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, e.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if e.port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: e.host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if e.username != "" {
		if err := client.Auth(smtp.PlainAuth("", e.username, e.password, e.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(message.Destination); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}

func buildMIME(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Welcome to {{.AppName}}, {{.Name}}!</h2>
  <p>Use the code below to verify your email address:</p>
  <p style="font-size: 32px; font-weight: bold; letter-spacing: 8px;">{{.Code}}</p>
  <p>This code expires in {{.Minutes}} minutes.</p>
  <p>If you did not create an account, you can ignore this email.</p>
</body>
</html>`))

// VerificationEmail renders the subject and HTML body of an account
// verification message.
func VerificationEmail(appName, name, code string, ttl time.Duration) (subject, body string, err error) {
	title := cases.Title(language.English)
	data := struct {
		AppName string
		Name    string
		Code    string
		Minutes int
	}{
		AppName: appName,
		Name:    title.String(strings.TrimSpace(name)),
		Code:    code,
		Minutes: int(ttl.Minutes()),
	}

	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render verification email: %w", err)
	}
	return fmt.Sprintf("Verify your %s account", appName), buf.String(), nil
}

// VerificationSMS renders the short text variant of the verification message.
func VerificationSMS(appName, code string, ttl time.Duration) string {
	return fmt.Sprintf("%s verification code: %s. It expires in %d minutes.", appName, code, int(ttl.Minutes()))
}
