package payfast

import (
	"fmt"
	"net/url"
)

// Payment statuses reported by the processor in ITN callbacks.
const (
	StatusComplete  = "COMPLETE"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// UnknownPaymentID is the sentinel used when a notification carries no
// pf_payment_id, so the event upsert always has a stable key.
const UnknownPaymentID = "unknown"

// Notification is the typed view of one ITN callback body. Raw preserves
// every received field verbatim for signature recomputation and audit
// storage; RawBody is the original form-encoded payload.
type Notification struct {
	MPaymentID    string
	PFPaymentID   string
	PaymentStatus string
	AmountGross   string
	EmailAddress  string
	NameFirst     string

	Raw     map[string]string
	RawBody string
}

// ProcessorPaymentID returns the processor's payment id, falling back to
// the sentinel when the notification carried none.
func (n *Notification) ProcessorPaymentID() string {
	if n.PFPaymentID == "" {
		return UnknownPaymentID
	}
	return n.PFPaymentID
}

// ParseNotification decodes a form-encoded ITN body into a Notification.
// Only structural problems fail here; field-level gates (correlation id,
// signature) are enforced by the caller so rejections map to distinct
// reasons.
func ParseNotification(rawBody string) (*Notification, error) {
	values, err := url.ParseQuery(rawBody)
	if err != nil {
		return nil, fmt.Errorf("parse notification body: %w", err)
	}

	raw := make(map[string]string, len(values))
	for k := range values {
		raw[k] = values.Get(k)
	}

	return &Notification{
		MPaymentID:    raw["m_payment_id"],
		PFPaymentID:   raw["pf_payment_id"],
		PaymentStatus: raw["payment_status"],
		AmountGross:   raw["amount_gross"],
		EmailAddress:  raw["email_address"],
		NameFirst:     raw["name_first"],
		Raw:           raw,
		RawBody:       rawBody,
	}, nil
}
