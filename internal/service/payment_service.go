package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
	appErrors "github.com/nkosi-dev/sekolo-pay-api/pkg/errors"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/payfast"
)

// amountTolerance is the absolute tolerance, in currency units, when
// comparing the processor-reported gross amount to the stored expectation.
const amountTolerance = 0.01

type registrationStore interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
}

type paymentStore interface {
	ApplyOutcome(ctx context.Context, event *models.PaymentEvent, status models.RegistrationStatus, received bool) error
}

type processorGateway interface {
	CheckoutURL(req payfast.CheckoutRequest) string
	Validate(ctx context.Context, rawBody string) (bool, error)
	Passphrase() string
}

type statusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// priceEntry pairs the checkout amount with its item description.
type priceEntry struct {
	Amount   string
	ItemName string
}

// priceTable fixes server-side amounts per purpose. Fixed purposes ignore
// client-supplied amounts entirely.
var priceTable = map[models.PaymentPurpose]priceEntry{
	models.PurposeRegistration: {Amount: "500.00", ItemName: "Registration Fee"},
	models.PurposeFees:         {Amount: "1500.00", ItemName: "School Fees"},
	models.PurposeDonation:     {Amount: "100.00", ItemName: "Donation"},
	models.PurposeEvent:        {Amount: "150.00", ItemName: "School Event"},
	models.PurposeOther:        {Amount: "100.00", ItemName: "School Payment"},
}

var defaultPrice = priceEntry{Amount: "100.00", ItemName: "School Payment"}

// InitiatePaymentRequest is the checkout initiation payload.
type InitiatePaymentRequest struct {
	RegID    string `json:"reg_id" validate:"required"`
	Purpose  string `json:"purpose,omitempty"`
	Amount   string `json:"amount,omitempty"`
	ItemName string `json:"item_name,omitempty"`
}

// InitiatePaymentResponse carries the hosted checkout redirect.
type InitiatePaymentResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// PaymentService implements checkout initiation, the ITN webhook pipeline,
// and the client-facing status/retry surface.
type PaymentService struct {
	registrations registrationStore
	payments      paymentStore
	gateway       processorGateway
	cache         statusCache
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	statusTTL     time.Duration
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(registrations registrationStore, payments paymentStore, gateway processorGateway, cache statusCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, statusTTL time.Duration) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if statusTTL <= 0 {
		statusTTL = 5 * time.Second
	}
	return &PaymentService{
		registrations: registrations,
		payments:      payments,
		gateway:       gateway,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		statusTTL:     statusTTL,
	}
}

// Initiate builds the hosted checkout redirect for a registration. The
// record must already exist; initiation never writes to the store.
func (s *PaymentService) Initiate(ctx context.Context, req InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "reg_id is required")
	}

	reg, err := s.registrations.FindByID(ctx, req.RegID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRegistrationUnknown, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if reg.ParentEmail == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration has no parent email")
	}

	purpose := reg.Purpose
	if req.Purpose != "" {
		purpose = models.PaymentPurpose(strings.ToLower(req.Purpose))
	}
	amount, itemName := resolvePrice(purpose, req.Amount, req.ItemName)

	redirect := s.gateway.CheckoutURL(payfast.CheckoutRequest{
		MPaymentID:   reg.ID,
		Amount:       amount,
		ItemName:     itemName,
		NameFirst:    reg.ParentFirstName,
		EmailAddress: reg.ParentEmail,
	})

	s.logger.Info("payment initiated",
		zap.String("registration_id", reg.ID),
		zap.String("purpose", string(purpose)),
		zap.String("amount", amount),
	)

	return &InitiatePaymentResponse{RedirectURL: redirect}, nil
}

// resolvePrice applies the amount resolution policy: fixed purposes always
// price from the table; flexible ones accept a positive client amount.
// Unknown purposes fall back to the default row, never an error.
func resolvePrice(purpose models.PaymentPurpose, clientAmount, clientItem string) (string, string) {
	entry, known := priceTable[purpose]
	if !known {
		entry = defaultPrice
	}
	if known && purpose.FixedAmount() {
		return entry.Amount, entry.ItemName
	}

	amount := entry.Amount
	if v, err := strconv.ParseFloat(clientAmount, 64); err == nil && v > 0 {
		amount = fmt.Sprintf("%.2f", v)
	}
	item := entry.ItemName
	if clientItem != "" {
		item = clientItem
	}
	return amount, item
}

// HandleNotification runs the ITN pipeline: parse, correlation gate,
// signature check, processor-side validation, record existence, identity and
// amount cross-checks, then one transactional write. Every gate fails before
// any persistence.
func (s *PaymentService) HandleNotification(ctx context.Context, rawBody string) error {
	notif, err := payfast.ParseNotification(rawBody)
	if err != nil {
		s.reject(appErrors.ErrValidation.Code)
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed notification body")
	}

	if notif.MPaymentID == "" {
		s.reject(appErrors.ErrMissingCorrelation.Code)
		return appErrors.Clone(appErrors.ErrMissingCorrelation, "")
	}

	if !payfast.VerifySignature(notif.Raw, s.gateway.Passphrase()) {
		// Signature mismatches are potential forgeries and logged at a
		// higher severity than ordinary rejections.
		s.logger.Warn("notification signature mismatch",
			zap.String("registration_id", notif.MPaymentID),
			zap.String("pf_payment_id", notif.ProcessorPaymentID()),
		)
		s.reject(appErrors.ErrSignatureMismatch.Code)
		return appErrors.Clone(appErrors.ErrSignatureMismatch, "")
	}

	start := time.Now()
	valid, err := s.gateway.Validate(ctx, rawBody)
	s.metrics.ObserveValidateCall(time.Since(start))
	if err != nil || !valid {
		if err != nil {
			s.logger.Warn("processor validation call failed", zap.Error(err))
		}
		s.reject(appErrors.ErrValidationRejected.Code)
		return appErrors.Clone(appErrors.ErrValidationRejected, "")
	}

	reg, err := s.registrations.FindByID(ctx, notif.MPaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.reject(appErrors.ErrRegistrationUnknown.Code)
			return appErrors.Clone(appErrors.ErrRegistrationUnknown, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	if err := crossCheck(reg, notif); err != nil {
		s.reject(appErrors.FromError(err).Code)
		return err
	}

	received := notif.PaymentStatus == payfast.StatusComplete
	status := models.StatusPaymentFailed
	if received {
		status = models.StatusAwaitingApproval
	}

	event := &models.PaymentEvent{
		RegistrationID:     reg.ID,
		ProcessorPaymentID: notif.ProcessorPaymentID(),
		Amount:             notif.AmountGross,
		PaymentStatus:      notif.PaymentStatus,
		RawPayload:         notif.RawBody,
		Verified:           true,
	}

	if err := s.payments.ApplyOutcome(ctx, event, status, received); err != nil {
		s.logger.Error("failed to persist payment outcome",
			zap.String("registration_id", reg.ID),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist payment outcome")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, statusCacheKey(reg.ID)); err != nil {
			s.logger.Warn("failed to invalidate status cache", zap.Error(err))
		}
	}

	s.metrics.RecordNotification(notif.PaymentStatus)
	s.logger.Info("payment notification processed",
		zap.String("registration_id", reg.ID),
		zap.String("pf_payment_id", event.ProcessorPaymentID),
		zap.String("payment_status", notif.PaymentStatus),
		zap.Bool("payment_received", received),
	)

	return nil
}

// crossCheck compares the stored expectation against the processor-reported
// identity and amount.
func crossCheck(reg *models.Registration, notif *payfast.Notification) error {
	if reg.ExpectedAmount != nil && *reg.ExpectedAmount != "" {
		expected, err := strconv.ParseFloat(*reg.ExpectedAmount, 64)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored expected amount is not a decimal")
		}
		reported, err := strconv.ParseFloat(notif.AmountGross, 64)
		if err != nil {
			return appErrors.Clone(appErrors.ErrAmountMismatch, "amount_gross is not a decimal")
		}
		if math.Abs(expected-reported) > amountTolerance {
			return appErrors.Clone(appErrors.ErrAmountMismatch, "")
		}
	}

	if reg.ParentEmail != "" && notif.EmailAddress != "" &&
		!strings.EqualFold(reg.ParentEmail, notif.EmailAddress) {
		return appErrors.Clone(appErrors.ErrIdentityMismatch, "")
	}

	return nil
}

// Status returns the polling view of a registration, served from the
// short-TTL cache when possible.
func (s *PaymentService) Status(ctx context.Context, id string) (*models.RegistrationStatusView, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration id is required")
	}

	key := statusCacheKey(id)
	if s.cache != nil {
		var cached models.RegistrationStatusView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	reg, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRegistrationUnknown, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	view := &models.RegistrationStatusView{
		ID:                 reg.ID,
		Status:             reg.Status,
		PaymentReceived:    reg.PaymentReceived,
		PaymentConfirmedAt: reg.PaymentConfirmedAt,
		PaymentFailedAt:    reg.PaymentFailedAt,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, view, s.statusTTL); err != nil {
			s.logger.Warn("failed to cache status view", zap.Error(err))
		}
	}

	return view, nil
}

// Retry resets a failed registration to payment_pending and issues a fresh
// checkout redirect. Retrying from payment_pending is an idempotent no-op
// reset; any other state is rejected.
func (s *PaymentService) Retry(ctx context.Context, id string) (*InitiatePaymentResponse, error) {
	reg, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRegistrationUnknown, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	if reg.Status != models.StatusPaymentFailed && reg.Status != models.StatusPaymentPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "registration is not awaiting payment")
	}

	if reg.Status == models.StatusPaymentFailed {
		if err := s.registrations.UpdateStatus(ctx, id, models.StatusPaymentPending); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset registration")
		}
		if s.cache != nil {
			if err := s.cache.Delete(ctx, statusCacheKey(id)); err != nil {
				s.logger.Warn("failed to invalidate status cache", zap.Error(err))
			}
		}
	}

	return s.Initiate(ctx, InitiatePaymentRequest{RegID: id})
}

func (s *PaymentService) reject(reason string) {
	s.metrics.RecordRejection(reason)
}

func statusCacheKey(id string) string {
	return "registration:status:" + id
}
