package payfast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/nkosi-dev/sekolo-pay-api/pkg/config"
)

const (
	liveHost    = "https://www.payfast.co.za"
	sandboxHost = "https://sandbox.payfast.co.za"
)

// CheckoutRequest carries everything needed to build a hosted checkout URL.
type CheckoutRequest struct {
	MPaymentID   string
	Amount       string
	ItemName     string
	NameFirst    string
	EmailAddress string
}

// Client talks to the PayFast hosted checkout and server-side validation
// endpoints. BaseURL is resolved from the sandbox flag and may be overridden
// in tests.
type Client struct {
	BaseURL string

	merchantID  string
	merchantKey string
	passphrase  string
	returnURL   string
	cancelURL   string
	notifyURL   string
	httpClient  *http.Client
}

// New constructs a Client from configuration. The validate call carries a
// bounded timeout so a stalled processor can never hold the notify handler
// open.
func New(cfg config.PayFastConfig) *Client {
	base := liveHost
	if cfg.Sandbox {
		base = sandboxHost
	}
	return &Client{
		BaseURL:     base,
		merchantID:  cfg.MerchantID,
		merchantKey: cfg.MerchantKey,
		passphrase:  cfg.Passphrase,
		returnURL:   cfg.ReturnURL,
		cancelURL:   cfg.CancelURL,
		notifyURL:   cfg.NotifyURL,
		httpClient:  &http.Client{Timeout: cfg.ValidateTimeout},
	}
}

// Passphrase exposes the shared secret for notification verification.
func (c *Client) Passphrase() string {
	return c.passphrase
}

// CheckoutURL builds the signed redirect target at the hosted checkout.
func (c *Client) CheckoutURL(req CheckoutRequest) string {
	fields := map[string]string{
		"merchant_id":   c.merchantID,
		"merchant_key":  c.merchantKey,
		"return_url":    c.returnURL,
		"cancel_url":    c.cancelURL,
		"notify_url":    c.notifyURL,
		"m_payment_id":  req.MPaymentID,
		"amount":        req.Amount,
		"item_name":     req.ItemName,
		"name_first":    req.NameFirst,
		"email_address": req.EmailAddress,
	}
	fields["signature"] = Sign(fields, c.passphrase)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := make(url.Values, len(fields))
	for _, k := range keys {
		query.Set(k, fields[k])
	}

	return fmt.Sprintf("%s/eng/process?%s", c.BaseURL, query.Encode())
}

// Validate re-posts the verbatim notification body to the processor's
// validate endpoint and reports whether the processor still attests to it.
// Network failures and timeouts are returned as errors; the caller treats
// both the same as a rejection.
func (c *Client) Validate(ctx context.Context, rawBody string) (bool, error) {
	endpoint := c.BaseURL + "/eng/query/validate"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(rawBody))
	if err != nil {
		return false, fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("validate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return false, fmt.Errorf("read validate response: %w", err)
	}

	return strings.Contains(strings.ToUpper(string(body)), "VALID") &&
		!strings.Contains(strings.ToUpper(string(body)), "INVALID"), nil
}
