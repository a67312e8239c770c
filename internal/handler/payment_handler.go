package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nkosi-dev/sekolo-pay-api/internal/service"
	appErrors "github.com/nkosi-dev/sekolo-pay-api/pkg/errors"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/response"
)

// notifyBodyLimit caps the size of an accepted ITN payload.
const notifyBodyLimit = 64 * 1024

// PaymentHandler exposes the checkout initiation and ITN webhook endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Initiate godoc
// @Summary Build a hosted checkout redirect for a registration
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.InitiatePaymentRequest true "Initiation payload"
// @Success 200 {object} response.Envelope
// @Router /payments/initiate [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req service.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.payments.Initiate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Notify godoc
// @Summary Receive an ITN callback from the payment processor
// @Tags Payments
// @Accept x-www-form-urlencoded
// @Produce plain
// @Success 200 {string} string "Payment verified and logged"
// @Router /payments/notify [post]
func (h *PaymentHandler) Notify(c *gin.Context) {
	// The processor speaks plain text server-to-server; the JSON envelope
	// is not used on this endpoint.
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, notifyBodyLimit))
	if err != nil {
		c.String(http.StatusBadRequest, appErrors.ErrValidation.Code)
		return
	}

	if err := h.payments.HandleNotification(c.Request.Context(), string(body)); err != nil {
		appErr := appErrors.FromError(err)
		c.String(appErr.Status, appErr.Code)
		return
	}

	c.String(http.StatusOK, "Payment verified and logged")
}

// Status godoc
// @Summary Poll the payment status of a registration
// @Tags Payments
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/status [get]
func (h *PaymentHandler) Status(c *gin.Context) {
	view, err := h.payments.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Retry godoc
// @Summary Retry payment for a failed registration
// @Tags Payments
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/retry [post]
func (h *PaymentHandler) Retry(c *gin.Context) {
	result, err := h.payments.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
