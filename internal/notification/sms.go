package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const smsHTTPTimeout = 10 * time.Second

// SMSProvider sends a text message to a phone number.
type SMSProvider interface {
	Name() string
	SendSMS(ctx context.Context, to, body string) error
}

// SMSChain tries each provider in order until one accepts the message.
type SMSChain struct {
	providers []SMSProvider
}

// NewSMSChain builds a fallback chain. Nil providers are skipped.
func NewSMSChain(providers ...SMSProvider) *SMSChain {
	chain := &SMSChain{}
	for _, p := range providers {
		if p != nil {
			chain.providers = append(chain.providers, p)
		}
	}
	return chain
}

// Len returns the number of configured providers.
func (c *SMSChain) Len() int { return len(c.providers) }

// Send implements Notifier.
func (c *SMSChain) Send(ctx context.Context, message Message) error {
	if len(c.providers) == 0 {
		return ErrChannelUnavailable
	}
	var errs []error
	for _, p := range c.providers {
		err := p.SendSMS(ctx, message.Destination, message.Body)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

// TwilioProvider sends through the Twilio Messages REST API.
type TwilioProvider struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

// NewTwilioProvider returns nil when credentials are incomplete.
func NewTwilioProvider(accountSID, authToken, from string) *TwilioProvider {
	if accountSID == "" || authToken == "" || from == "" {
		return nil
	}
	return &TwilioProvider{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com",
		client:     &http.Client{Timeout: smsHTTPTimeout},
	}
}

// WithBaseURL points the provider at another host, used in tests.
func (p *TwilioProvider) WithBaseURL(baseURL string) *TwilioProvider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) SendSMS(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", p.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.baseURL, url.PathEscape(p.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.accountSID, p.authToken)

	return doSMSRequest(p.client, req)
}

// GatewayProvider posts JSON to a generic HTTP SMS gateway authenticated with
// an API key header.
type GatewayProvider struct {
	url    string
	apiKey string
	sender string
	client *http.Client
}

// NewGatewayProvider returns nil when the gateway URL is not set.
func NewGatewayProvider(gatewayURL, apiKey, sender string) *GatewayProvider {
	if gatewayURL == "" {
		return nil
	}
	return &GatewayProvider{
		url:    gatewayURL,
		apiKey: apiKey,
		sender: sender,
		client: &http.Client{Timeout: smsHTTPTimeout},
	}
}

func (p *GatewayProvider) Name() string { return "gateway" }

func (p *GatewayProvider) SendSMS(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(map[string]string{
		"from": p.sender,
		"to":   to,
		"text": body,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}

	return doSMSRequest(p.client, req)
}

func doSMSRequest(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
