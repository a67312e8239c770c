package payfast

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	values := url.Values{}
	values.Set("m_payment_id", "reg_1")
	values.Set("pf_payment_id", "1089250")
	values.Set("payment_status", "COMPLETE")
	values.Set("amount_gross", "500.00")
	values.Set("email_address", "parent@example.com")
	body := values.Encode()

	notif, err := ParseNotification(body)
	require.NoError(t, err)
	require.Equal(t, "reg_1", notif.MPaymentID)
	require.Equal(t, "1089250", notif.PFPaymentID)
	require.Equal(t, StatusComplete, notif.PaymentStatus)
	require.Equal(t, "500.00", notif.AmountGross)
	require.Equal(t, body, notif.RawBody)
	require.Equal(t, "1089250", notif.ProcessorPaymentID())
}

func TestParseNotificationMalformed(t *testing.T) {
	_, err := ParseNotification("%zz=broken")
	require.Error(t, err)
}

func TestProcessorPaymentIDSentinel(t *testing.T) {
	notif, err := ParseNotification("m_payment_id=reg_1&payment_status=FAILED")
	require.NoError(t, err)
	require.Equal(t, UnknownPaymentID, notif.ProcessorPaymentID())
}
