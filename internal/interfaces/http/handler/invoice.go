package handler

import (
	"errors"
	"net/http"

	appbilling "github.com/autoshop/billing/internal/application/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/autoshop/billing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceHandler serves the read surface over invoices and payments, plus
// manual payment initiation
type InvoiceHandler struct {
	queries  *appbilling.InvoiceQueryService
	payments *appbilling.PaymentService
	logger   *zap.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(
	queries *appbilling.InvoiceQueryService,
	payments *appbilling.PaymentService,
	logger *zap.Logger,
) *InvoiceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceHandler{
		queries:  queries,
		payments: payments,
		logger:   logger,
	}
}

// GetInvoice handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := h.parseUUID(c, c.Param("id"))
	if !ok {
		return
	}

	invoice, err := h.queries.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.domainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(invoice))
}

// ListInvoices handles GET /api/v1/invoices
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	req := dto.ListRequest{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", err.Error()))
		return
	}

	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}

	page, err := h.queries.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.domainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(page.Items, page.Total, page.Page, page.PageSize))
}

// GetProjectInvoice handles GET /api/v1/projects/:projectId/invoice
func (h *InvoiceHandler) GetProjectInvoice(c *gin.Context) {
	projectID, ok := h.parseUUID(c, c.Param("projectId"))
	if !ok {
		return
	}

	invoice, err := h.queries.GetInvoiceByProject(c.Request.Context(), projectID)
	if err != nil {
		h.domainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(invoice))
}

// ListPayments handles GET /api/v1/invoices/:id/payments
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	id, ok := h.parseUUID(c, c.Param("id"))
	if !ok {
		return
	}

	payments, err := h.queries.ListPayments(c.Request.Context(), id)
	if err != nil {
		h.domainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(payments))
}

// CreatePayment handles POST /api/v1/invoices/:id/payments
func (h *InvoiceHandler) CreatePayment(c *gin.Context) {
	id, ok := h.parseUUID(c, c.Param("id"))
	if !ok {
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", err.Error()))
		return
	}

	payment, err := h.payments.RecordAttempt(c.Request.Context(), id, req.Provider)
	if err != nil {
		h.domainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(gin.H{
		"id":         payment.ID,
		"invoice_id": payment.InvoiceID,
		"status":     payment.Status,
		"provider":   payment.Provider,
	}))
}

func (h *InvoiceHandler) parseUUID(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", "invalid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// domainError maps domain errors to HTTP responses
func (h *InvoiceHandler) domainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusUnprocessableEntity
		switch domainErr.Code {
		case "NOT_FOUND":
			status = http.StatusNotFound
		case "INVALID_INPUT":
			status = http.StatusBadRequest
		case "CONCURRENCY_CONFLICT", "ALREADY_EXISTS":
			status = http.StatusConflict
		}
		c.JSON(status, dto.NewErrorResponse(domainErr.Code, domainErr.Message))
		return
	}

	h.logger.Error("unhandled error in invoice handler", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL", "internal server error"))
}
