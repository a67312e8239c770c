package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
	"github.com/nkosi-dev/sekolo-pay-api/internal/service"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/token"
)

type regRepoStub struct {
	regs    map[string]*models.Registration
	listOut []models.Registration
}

func (s *regRepoStub) Create(ctx context.Context, reg *models.Registration) error {
	reg.ID = "reg_new"
	if s.regs == nil {
		s.regs = make(map[string]*models.Registration)
	}
	s.regs[reg.ID] = reg
	return nil
}

func (s *regRepoStub) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if reg, ok := s.regs[id]; ok {
		copied := *reg
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *regRepoStub) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	return s.listOut, len(s.listOut), nil
}

func (s *regRepoStub) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	if reg, ok := s.regs[id]; ok {
		reg.Status = status
	}
	return nil
}

type eventReaderStub struct {
	events []models.PaymentEvent
}

func (s *eventReaderStub) ListByRegistration(ctx context.Context, registrationID string) ([]models.PaymentEvent, error) {
	return s.events, nil
}

func newRegistrationTestServer(repo *regRepoStub, events *eventReaderStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	regSvc := service.NewRegistrationService(repo, events, nil, nil)
	expSvc := service.NewExportService(repo, events, "Sekolo Primary", nil)
	links := token.NewReceiptLinkSigner("test-secret", time.Hour)
	h := NewRegistrationHandler(regSvc, expSvc, links)

	r := gin.New()
	r.POST("/api/v1/registrations", h.Create)
	r.GET("/api/v1/registrations", h.List)
	r.GET("/api/v1/registrations/export", h.ExportCSV)
	r.GET("/api/v1/registrations/:id", h.Get)
	r.POST("/api/v1/registrations/:id/approve", h.Approve)
	r.GET("/api/v1/registrations/:id/receipt", h.Receipt)
	r.POST("/api/v1/registrations/:id/receipt-link", h.ReceiptLink)
	r.GET("/api/v1/receipts/:token", h.ReceiptByToken)
	return r
}

func TestRegistrationCreate(t *testing.T) {
	repo := &regRepoStub{}
	r := newRegistrationTestServer(repo, &eventReaderStub{})

	payload := `{"parent_first_name":"Thabo","parent_last_name":"Nkosi","parent_email":"parent@example.com",
		"learner_first_name":"Lwazi","learner_last_name":"Nkosi","learner_grade":"8"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "reg_new", envelope.Data.ID)
	require.Equal(t, models.StatusPaymentPending, envelope.Data.Status)
}

func TestRegistrationCreateInvalidPayload(t *testing.T) {
	r := newRegistrationTestServer(&regRepoStub{}, &eventReaderStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", strings.NewReader(`{"parent_first_name":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationGetUnknown(t *testing.T) {
	r := newRegistrationTestServer(&regRepoStub{}, &eventReaderStub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "REGISTRATION_UNKNOWN", envelope.Error.Code)
}

func TestRegistrationApproveRequiresPayment(t *testing.T) {
	repo := &regRepoStub{regs: map[string]*models.Registration{
		"reg_1": {ID: "reg_1", Status: models.StatusPaymentPending},
	}}
	r := newRegistrationTestServer(repo, &eventReaderStub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/registrations/reg_1/approve", nil))
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestRegistrationApprove(t *testing.T) {
	repo := &regRepoStub{regs: map[string]*models.Registration{
		"reg_1": {ID: "reg_1", Status: models.StatusAwaitingApproval, PaymentReceived: true},
	}}
	r := newRegistrationTestServer(repo, &eventReaderStub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/registrations/reg_1/approve", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.StatusSubmitted, repo.regs["reg_1"].Status)
}

func TestRegistrationReceiptDownload(t *testing.T) {
	expected := "500.00"
	repo := &regRepoStub{regs: map[string]*models.Registration{
		"reg_1": {
			ID:              "reg_1",
			ParentFirstName: "Thabo",
			ParentLastName:  "Nkosi",
			Purpose:         models.PurposeRegistration,
			ExpectedAmount:  &expected,
			Status:          models.StatusAwaitingApproval,
			PaymentReceived: true,
		},
	}}
	r := newRegistrationTestServer(repo, &eventReaderStub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/reg_1/receipt", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "receipt-reg_1.pdf")
	require.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestRegistrationReceiptLinkFlow(t *testing.T) {
	expected := "500.00"
	repo := &regRepoStub{regs: map[string]*models.Registration{
		"reg_1": {
			ID:              "reg_1",
			ParentFirstName: "Thabo",
			ParentLastName:  "Nkosi",
			Purpose:         models.PurposeRegistration,
			ExpectedAmount:  &expected,
			Status:          models.StatusAwaitingApproval,
			PaymentReceived: true,
		},
	}}
	r := newRegistrationTestServer(repo, &eventReaderStub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/registrations/reg_1/receipt-link", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, strings.HasPrefix(envelope.Data.URL, "/api/v1/receipts/"))

	// The signed link downloads the PDF without staff auth.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, envelope.Data.URL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestRegistrationReceiptLinkRejectsUnpaid(t *testing.T) {
	repo := &regRepoStub{regs: map[string]*models.Registration{
		"reg_1": {ID: "reg_1", Status: models.StatusPaymentPending},
	}}
	r := newRegistrationTestServer(repo, &eventReaderStub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/registrations/reg_1/receipt-link", nil))
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestReceiptByTokenRejectsForged(t *testing.T) {
	r := newRegistrationTestServer(&regRepoStub{}, &eventReaderStub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/receipts/reg_1.9999999999.deadbeef", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegistrationExportCSV(t *testing.T) {
	repo := &regRepoStub{listOut: []models.Registration{
		{ID: "reg_1", ParentEmail: "parent@example.com", Status: models.StatusSubmitted},
	}}
	r := newRegistrationTestServer(repo, &eventReaderStub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/registrations/export?status=submitted", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "parent@example.com")
}
