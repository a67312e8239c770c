package models

import "time"

// PaymentEvent is the append-only log entry for one received payment
// notification. Events are keyed by (registration_id, processor_payment_id)
// so redelivery of the same processor payment id overwrites the same row
// instead of duplicating it.
type PaymentEvent struct {
	ID                 string    `db:"id" json:"id"`
	RegistrationID     string    `db:"registration_id" json:"registration_id"`
	ProcessorPaymentID string    `db:"processor_payment_id" json:"processor_payment_id"`
	Amount             string    `db:"amount" json:"amount"`
	PaymentStatus      string    `db:"payment_status" json:"payment_status"`
	RawPayload         string    `db:"raw_payload" json:"-"`
	Verified           bool      `db:"verified" json:"verified"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}
