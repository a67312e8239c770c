package payfast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleFields() map[string]string {
	return map[string]string{
		"m_payment_id":   "reg_1",
		"pf_payment_id":  "1089250",
		"payment_status": "COMPLETE",
		"amount_gross":   "500.00",
		"email_address":  "parent@example.com",
	}
}

func TestSignDeterministic(t *testing.T) {
	fields := sampleFields()
	first := Sign(fields, "secret")
	second := Sign(fields, "secret")
	require.Equal(t, first, second)
	require.Len(t, first, 32)
}

func TestSignExcludesSignatureField(t *testing.T) {
	fields := sampleFields()
	base := Sign(fields, "secret")
	fields["signature"] = "ffffffffffffffffffffffffffffffff"
	require.Equal(t, base, Sign(fields, "secret"))
}

func TestSignPassphraseChangesSignature(t *testing.T) {
	fields := sampleFields()
	require.NotEqual(t, Sign(fields, ""), Sign(fields, "secret"))
	require.NotEqual(t, Sign(fields, "secret"), Sign(fields, "other"))
}

func TestVerifySignature(t *testing.T) {
	fields := sampleFields()
	fields["signature"] = Sign(fields, "secret")
	require.True(t, VerifySignature(fields, "secret"))
}

func TestVerifySignatureRejectsTamperedAmount(t *testing.T) {
	fields := sampleFields()
	fields["signature"] = Sign(fields, "secret")
	fields["amount_gross"] = "450.00"
	require.False(t, VerifySignature(fields, "secret"))
}

func TestVerifySignatureRejectsWrongPassphrase(t *testing.T) {
	fields := sampleFields()
	fields["signature"] = Sign(fields, "secret")
	require.False(t, VerifySignature(fields, "different"))
}

func TestVerifySignatureRejectsMissingSignature(t *testing.T) {
	require.False(t, VerifySignature(sampleFields(), "secret"))
}
