package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ReceiptLinkSigner creates and validates time-limited receipt download
// tokens, so parents can fetch their PDF receipt from a shared link without a
// staff login.
type ReceiptLinkSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewReceiptLinkSigner constructs a signer with the provided secret and TTL.
func NewReceiptLinkSigner(secret string, ttl time.Duration) *ReceiptLinkSigner {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &ReceiptLinkSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a signed token referencing the registration.
func (s *ReceiptLinkSigner) Generate(registrationID string) (string, time.Time, error) {
	if registrationID == "" {
		return "", time.Time{}, fmt.Errorf("registration id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	payload := fmt.Sprintf("%s|%d", registrationID, expiresAt.Unix())
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	token := strings.Join([]string{registrationID, fmt.Sprintf("%d", expiresAt.Unix()), signature}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded registration id.
func (s *ReceiptLinkSigner) Parse(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid token format")
	}
	registrationID := parts[0]
	ts := parts[1]
	signature := parts[2]

	expUnix, err := parseUnix(ts)
	if err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%s|%s", registrationID, ts)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", fmt.Errorf("invalid token signature")
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return "", fmt.Errorf("token expired")
	}
	return registrationID, nil
}

func parseUnix(raw string) (int64, error) {
	var ts int64
	_, err := fmt.Sscanf(raw, "%d", &ts)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp")
	}
	return ts, nil
}
