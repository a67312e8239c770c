package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
	"github.com/nkosi-dev/sekolo-pay-api/internal/service"
	appErrors "github.com/nkosi-dev/sekolo-pay-api/pkg/errors"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/response"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/token"
)

// RegistrationHandler exposes registration endpoints.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	exports       *service.ExportService
	receiptLinks  *token.ReceiptLinkSigner
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations *service.RegistrationService, exports *service.ExportService, receiptLinks *token.ReceiptLinkSigner) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, exports: exports, receiptLinks: receiptLinks}
}

// Create godoc
// @Summary Submit a new registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.CreateRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req service.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.registrations.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// List godoc
// @Summary List registrations
// @Tags Registrations
// @Produce json
// @Param status query string false "Filter by status"
// @Param purpose query string false "Filter by purpose"
// @Param search query string false "Search parent email or learner surname"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	filter := parseRegistrationFilter(c)
	regs, pagination, err := h.registrations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regs, pagination)
}

// Get godoc
// @Summary Get a registration with its payment events
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	detail, err := h.registrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Approve godoc
// @Summary Approve a paid registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/approve [post]
func (h *RegistrationHandler) Approve(c *gin.Context) {
	reg, err := h.registrations.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Receipt godoc
// @Summary Download the PDF receipt of a paid registration
// @Tags Registrations
// @Produce application/pdf
// @Param id path string true "Registration ID"
// @Success 200 {file} binary
// @Router /registrations/{id}/receipt [get]
func (h *RegistrationHandler) Receipt(c *gin.Context) {
	pdf, err := h.exports.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipt-`+c.Param("id")+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ReceiptLink godoc
// @Summary Create a shareable receipt download link for a paid registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/receipt-link [post]
func (h *RegistrationHandler) ReceiptLink(c *gin.Context) {
	detail, err := h.registrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !detail.PaymentReceived {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "payment not received for registration"))
		return
	}

	link, expiresAt, err := h.receiptLinks.Generate(detail.ID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        "/api/v1/receipts/" + link,
		"expires_at": expiresAt,
	}, nil)
}

// ReceiptByToken godoc
// @Summary Download a PDF receipt via a signed link
// @Tags Registrations
// @Produce application/pdf
// @Param token path string true "Signed receipt token"
// @Success 200 {file} binary
// @Router /receipts/{token} [get]
func (h *RegistrationHandler) ReceiptByToken(c *gin.Context) {
	id, err := h.receiptLinks.Parse(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired receipt link"))
		return
	}
	pdf, err := h.exports.Receipt(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipt-`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ExportCSV godoc
// @Summary Export the filtered registration list as CSV
// @Tags Registrations
// @Produce text/csv
// @Success 200 {file} binary
// @Router /registrations/export [get]
func (h *RegistrationHandler) ExportCSV(c *gin.Context) {
	filter := parseRegistrationFilter(c)
	data, err := h.exports.RegistrationsCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="registrations.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

func parseRegistrationFilter(c *gin.Context) models.RegistrationFilter {
	var filter models.RegistrationFilter
	filter.Status = models.RegistrationStatus(strings.ToLower(c.Query("status")))
	filter.Purpose = models.PaymentPurpose(strings.ToLower(c.Query("purpose")))
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
