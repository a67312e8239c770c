package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
	appErrors "github.com/nkosi-dev/sekolo-pay-api/pkg/errors"
)

type registrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
}

type paymentEventReader interface {
	ListByRegistration(ctx context.Context, registrationID string) ([]models.PaymentEvent, error)
}

// CreateRegistrationRequest is the parent-facing submission payload.
type CreateRegistrationRequest struct {
	ParentFirstName  string `json:"parent_first_name" validate:"required"`
	ParentLastName   string `json:"parent_last_name" validate:"required"`
	ParentEmail      string `json:"parent_email" validate:"required,email"`
	LearnerFirstName string `json:"learner_first_name" validate:"required"`
	LearnerLastName  string `json:"learner_last_name" validate:"required"`
	LearnerGrade     string `json:"learner_grade" validate:"required"`
	Purpose          string `json:"purpose,omitempty"`
}

// RegistrationService orchestrates registration lifecycle workflows outside
// the payment notifier.
type RegistrationService struct {
	repo      registrationRepository
	events    paymentEventReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(repo registrationRepository, events paymentEventReader, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{repo: repo, events: events, validator: validate, logger: logger}
}

// Create records a new registration awaiting payment. The expected amount is
// pinned from the server-side price table so the notifier can cross-check
// the processor-reported gross later.
func (s *RegistrationService) Create(ctx context.Context, req CreateRegistrationRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	purpose := models.PaymentPurpose(req.Purpose)
	if purpose == "" {
		purpose = models.PurposeRegistration
	}

	reg := &models.Registration{
		ParentFirstName:  req.ParentFirstName,
		ParentLastName:   req.ParentLastName,
		ParentEmail:      req.ParentEmail,
		LearnerFirstName: req.LearnerFirstName,
		LearnerLastName:  req.LearnerLastName,
		LearnerGrade:     req.LearnerGrade,
		Purpose:          purpose,
		Status:           models.StatusPaymentPending,
	}
	if purpose.FixedAmount() {
		if entry, ok := priceTable[purpose]; ok {
			amount := entry.Amount
			reg.ExpectedAmount = &amount
		}
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}

	s.logger.Info("registration created",
		zap.String("registration_id", reg.ID),
		zap.String("purpose", string(reg.Purpose)),
	)

	return reg, nil
}

// List returns registrations with pagination metadata.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	regs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return regs, pagination, nil
}

// Get returns a registration with its payment events.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRegistrationUnknown, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	events, err := s.events.ListByRegistration(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment events")
	}

	return &models.RegistrationDetail{Registration: *reg, Events: events}, nil
}

// Approve moves a paid registration from awaiting_approval to submitted.
func (s *RegistrationService) Approve(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRegistrationUnknown, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	if reg.Status != models.StatusAwaitingApproval {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			"registration is not awaiting approval (status "+strconv.Quote(string(reg.Status))+")")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.StatusSubmitted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve registration")
	}

	reg.Status = models.StatusSubmitted
	return reg, nil
}
