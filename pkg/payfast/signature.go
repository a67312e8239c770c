package payfast

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Sign computes the checkout/notification signature over the provided
// fields: every field except "signature" sorted by name, url-encoded, with
// the shared passphrase appended when configured.
func Sign(fields map[string]string, passphrase string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(fields[k]))
	}
	if passphrase != "" {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString("passphrase=")
		sb.WriteString(url.QueryEscape(passphrase))
	}

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the signature for the received fields and
// compares it in constant time against the supplied one. Fields lacking a
// signature never verify.
func VerifySignature(fields map[string]string, passphrase string) bool {
	supplied, ok := fields["signature"]
	if !ok || supplied == "" {
		return false
	}
	expected := Sign(fields, passphrase)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(supplied)))
}
