package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/app/service"
	apperrors "github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/internal/export"
	"github.com/storefront/commerce-backend/internal/middleware"
)

type InvoiceController struct {
	invoiceService service.InvoiceService
}

func NewInvoiceController(invoiceService service.InvoiceService) *InvoiceController {
	return &InvoiceController{invoiceService: invoiceService}
}

// InvoiceLineRequest may override the catalog rate and GST per line
type InvoiceLineRequest struct {
	ItemID     uint             `json:"item_id" binding:"required"`
	Quantity   int              `json:"quantity" binding:"required,gt=0"`
	Rate       *decimal.Decimal `json:"rate"`
	GSTPercent *decimal.Decimal `json:"gst_percent"`
}

type CreateInvoiceRequest struct {
	CustomerID      uint                 `json:"customer_id" binding:"required"`
	Items           []InvoiceLineRequest `json:"items" binding:"required,min=1,dive"`
	DiscountPercent decimal.Decimal      `json:"discount_percent"`
	PaymentMode     string               `json:"payment_mode"`
	Status          string               `json:"status" binding:"omitempty,oneof=Paid Unpaid"`
	Note            string               `json:"note"`
}

type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Paid Unpaid"`
}

// Create bills a customer and decrements stock
// POST /api/v1/invoices
func (ctrl *InvoiceController) Create(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	if staff.BusinessID == 0 {
		apperrors.BadRequest(c, apperrors.AuthzTenantMissing, "Select a business first")
		return
	}

	var req CreateInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	lines := make([]service.InvoiceLineInput, 0, len(req.Items))
	for _, line := range req.Items {
		lines = append(lines, service.InvoiceLineInput{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			Rate:       line.Rate,
			GSTPercent: line.GSTPercent,
		})
	}

	invoice, err := ctrl.invoiceService.Create(staff, service.InvoiceInput{
		CustomerID:      req.CustomerID,
		Lines:           lines,
		DiscountPercent: req.DiscountPercent,
		PaymentMode:     req.PaymentMode,
		Status:          model.InvoiceStatus(req.Status),
		Note:            req.Note,
	})
	if err != nil {
		respondServiceError(c, err, "create invoice")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Invoice created", map[string]interface{}{
		"invoice_number": invoice.InvoiceNumber,
		"net_payable":    invoice.NetPayable.String(),
	})

	c.JSON(http.StatusCreated, gin.H{"invoice": invoice})
}

// List returns invoices, filtered by ?status=, ?customer_id= and ?search=
// GET /api/v1/invoices
func (ctrl *InvoiceController) List(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	page, pageSize, offset := pagination(c)
	filter := repository.InvoiceFilter{
		Status: model.InvoiceStatus(strings.TrimSpace(c.Query("status"))),
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  pageSize,
		Offset: offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		apperrors.BadRequest(c, apperrors.ValidationInvalidStatus, "status must be Paid or Unpaid")
		return
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "customer_id must be a positive integer")
			return
		}
		filter.CustomerID = uint(id)
	}

	invoices, total, err := ctrl.invoiceService.List(businessID, filter)
	if err != nil {
		respondServiceError(c, err, "list invoices")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices":  invoices,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get returns one invoice with its lines
// GET /api/v1/invoices/:number
func (ctrl *InvoiceController) Get(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	invoice, err := ctrl.invoiceService.Get(businessID, c.Param("number"))
	if err != nil {
		respondServiceError(c, err, "get invoice")
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

// UpdateStatus marks an invoice paid or unpaid
// PUT /api/v1/invoices/:number/status
func (ctrl *InvoiceController) UpdateStatus(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	var req UpdateInvoiceStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := ctrl.invoiceService.UpdateStatus(businessID, c.Param("number"), model.InvoiceStatus(req.Status))
	if err != nil {
		respondServiceError(c, err, "update invoice status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

// Export downloads one invoice as xlsx
// GET /api/v1/invoices/:number/export
func (ctrl *InvoiceController) Export(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	invoice, err := ctrl.invoiceService.Get(businessID, c.Param("number"))
	if err != nil {
		respondServiceError(c, err, "export invoice")
		return
	}

	f, err := export.InvoiceWorkbook(invoice)
	if err != nil {
		respondServiceError(c, err, "export invoice")
		return
	}
	defer f.Close()

	writeWorkbook(c, f, invoice.InvoiceNumber+".xlsx")
}
