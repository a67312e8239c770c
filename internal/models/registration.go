package models

import "time"

// RegistrationStatus represents the lifecycle of a registration.
type RegistrationStatus string

// Registration lifecycle states. Only the payment notifier moves a record
// into awaiting_approval or payment_failed; retry resets to payment_pending
// and admin approval moves awaiting_approval to submitted.
const (
	StatusPending          RegistrationStatus = "pending"
	StatusPaymentPending   RegistrationStatus = "payment_pending"
	StatusAwaitingApproval RegistrationStatus = "awaiting_approval"
	StatusPaymentFailed    RegistrationStatus = "payment_failed"
	StatusSubmitted        RegistrationStatus = "submitted"
)

// PaymentPurpose selects the expected amount and item description for a
// checkout.
type PaymentPurpose string

const (
	PurposeRegistration PaymentPurpose = "registration"
	PurposeFees         PaymentPurpose = "fees"
	PurposeDonation     PaymentPurpose = "donation"
	PurposeEvent        PaymentPurpose = "event"
	PurposeOther        PaymentPurpose = "other"
)

// FixedAmount reports whether client-supplied amounts are ignored for this
// purpose. Fixed purposes always price from the server-side table to prevent
// client-side amount tampering.
func (p PaymentPurpose) FixedAmount() bool {
	return p == PurposeRegistration || p == PurposeFees
}

// Registration represents one enrollment/payment intent.
type Registration struct {
	ID                 string             `db:"id" json:"id"`
	ParentFirstName    string             `db:"parent_first_name" json:"parent_first_name"`
	ParentLastName     string             `db:"parent_last_name" json:"parent_last_name"`
	ParentEmail        string             `db:"parent_email" json:"parent_email"`
	LearnerFirstName   string             `db:"learner_first_name" json:"learner_first_name"`
	LearnerLastName    string             `db:"learner_last_name" json:"learner_last_name"`
	LearnerGrade       string             `db:"learner_grade" json:"learner_grade"`
	Purpose            PaymentPurpose     `db:"purpose" json:"purpose"`
	ExpectedAmount     *string            `db:"expected_amount" json:"expected_amount,omitempty"`
	Status             RegistrationStatus `db:"status" json:"status"`
	PaymentReceived    bool               `db:"payment_received" json:"payment_received"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
	PaymentConfirmedAt *time.Time         `db:"payment_confirmed_at" json:"payment_confirmed_at,omitempty"`
	PaymentFailedAt    *time.Time         `db:"payment_failed_at" json:"payment_failed_at,omitempty"`
}

// RegistrationDetail enriches a Registration with its payment events.
type RegistrationDetail struct {
	Registration
	Events []PaymentEvent `json:"events"`
}

// RegistrationStatusView is the read model served to the polling client.
type RegistrationStatusView struct {
	ID                 string             `json:"id"`
	Status             RegistrationStatus `json:"status"`
	PaymentReceived    bool               `json:"payment_received"`
	PaymentConfirmedAt *time.Time         `json:"payment_confirmed_at,omitempty"`
	PaymentFailedAt    *time.Time         `json:"payment_failed_at,omitempty"`
}

// RegistrationFilter captures filtering criteria for listing registrations.
type RegistrationFilter struct {
	Status    RegistrationStatus
	Purpose   PaymentPurpose
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
