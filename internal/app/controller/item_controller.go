package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/app/service"
	apperrors "github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/internal/export"
	"github.com/storefront/commerce-backend/internal/middleware"
)

// maxImportBytes caps an uploaded catalog sheet.
const maxImportBytes = 10 << 20

type ItemController struct {
	itemService service.ItemService
}

func NewItemController(itemService service.ItemService) *ItemController {
	return &ItemController{itemService: itemService}
}

type CreateItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"`
	Quantity    int             `json:"quantity" binding:"gte=0"`
	MinStock    int             `json:"min_stock" binding:"gte=0"`
	Price       decimal.Decimal `json:"price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	GSTPercent  decimal.Decimal `json:"gst_percent"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	Hidden      bool            `json:"hidden"`
}

// UpdateItemRequest leaves quantity out: stock moves only through
// AdjustStock, checkout and cancellation.
type UpdateItemRequest struct {
	Name        *string          `json:"name"`
	Category    *string          `json:"category"`
	Unit        *string          `json:"unit"`
	MinStock    *int             `json:"min_stock" binding:"omitempty,gte=0"`
	Price       *decimal.Decimal `json:"price"`
	CostPrice   *decimal.Decimal `json:"cost_price"`
	GSTPercent  *decimal.Decimal `json:"gst_percent"`
	ImageURL    *string          `json:"image_url"`
	Description *string          `json:"description"`
	Hidden      *bool            `json:"hidden"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func itemFilter(c *gin.Context) (repository.ItemFilter, int, int) {
	page, pageSize, offset := pagination(c)
	filter := repository.ItemFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: strings.TrimSpace(c.Query("category")),
		Limit:    pageSize,
		Offset:   offset,
	}
	return filter, page, pageSize
}

// List returns the catalog including hidden items
// GET /api/v1/items
func (ctrl *ItemController) List(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	filter, page, pageSize := itemFilter(c)
	filter.LowStock, _ = strconv.ParseBool(c.Query("low_stock"))

	items, total, err := ctrl.itemService.List(businessID, filter)
	if err != nil {
		respondServiceError(c, err, "list items")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Create adds an item
// POST /api/v1/items
func (ctrl *ItemController) Create(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	var req CreateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := ctrl.itemService.Create(businessID, service.ItemInput{
		Name:        req.Name,
		Category:    req.Category,
		Unit:        req.Unit,
		Quantity:    req.Quantity,
		MinStock:    req.MinStock,
		Price:       req.Price,
		CostPrice:   req.CostPrice,
		GSTPercent:  req.GSTPercent,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Hidden:      req.Hidden,
	})
	if err != nil {
		respondServiceError(c, err, "create item")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// Get returns one item
// GET /api/v1/items/:id
func (ctrl *ItemController) Get(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	item, err := ctrl.itemService.Get(businessID, id)
	if err != nil {
		respondServiceError(c, err, "get item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// Update changes item details
// PUT /api/v1/items/:id
func (ctrl *ItemController) Update(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := ctrl.itemService.Update(businessID, id, service.UpdateItemInput{
		Name:        req.Name,
		Category:    req.Category,
		Unit:        req.Unit,
		MinStock:    req.MinStock,
		Price:       req.Price,
		CostPrice:   req.CostPrice,
		GSTPercent:  req.GSTPercent,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Hidden:      req.Hidden,
	})
	if err != nil {
		respondServiceError(c, err, "update item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// Delete soft-deletes an item
// DELETE /api/v1/items/:id
func (ctrl *ItemController) Delete(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.itemService.Delete(businessID, id); err != nil {
		respondServiceError(c, err, "delete item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

// AdjustStock applies a manual stock correction
// POST /api/v1/items/:id/stock
func (ctrl *ItemController) AdjustStock(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req AdjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := ctrl.itemService.AdjustStock(businessID, id, req.Delta)
	if err != nil {
		respondServiceError(c, err, "adjust stock")
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// LowStock lists items at or below their minimum
// GET /api/v1/items/low-stock
func (ctrl *ItemController) LowStock(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	items, err := ctrl.itemService.LowStock(businessID)
	if err != nil {
		respondServiceError(c, err, "list low stock items")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// Import bulk-creates items from an xlsx sheet (multipart field "file")
// POST /api/v1/items/import
func (ctrl *ItemController) Import(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "file is required")
		return
	}
	if header.Size > maxImportBytes {
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "Sheet exceeds the maximum allowed size")
		return
	}

	file, err := header.Open()
	if err != nil {
		log.Error("Failed to open uploaded sheet", err, nil)
		apperrors.InternalError(c, "")
		return
	}
	defer file.Close()

	items, rowErrors, err := export.ReadItems(file, businessID)
	if err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, err.Error())
		return
	}

	skipped := make([]string, 0, len(rowErrors))
	for _, re := range rowErrors {
		skipped = append(skipped, re.Error())
	}

	count, err := ctrl.itemService.Import(businessID, items)
	if err != nil {
		respondServiceError(c, err, "import items")
		return
	}

	log.Info("Catalog sheet imported", map[string]interface{}{
		"business_id": businessID,
		"imported":    count,
		"skipped":     len(skipped),
	})

	c.JSON(http.StatusCreated, gin.H{
		"imported": count,
		"skipped":  skipped,
	})
}

// ImportTemplate downloads an empty catalog sheet
// GET /api/v1/items/import/template
func (ctrl *ItemController) ImportTemplate(c *gin.Context) {
	f, err := export.ItemsTemplate()
	if err != nil {
		respondServiceError(c, err, "build import template")
		return
	}
	defer f.Close()

	writeWorkbook(c, f, "items-template.xlsx")
}

// ListPublic is the storefront catalog: visible items of the store only
// GET /api/v1/store/:slug/items
func (ctrl *ItemController) ListPublic(c *gin.Context) {
	businessID, ok := storefrontID(c)
	if !ok {
		return
	}

	filter, page, pageSize := itemFilter(c)
	items, total, err := ctrl.itemService.ListPublic(businessID, filter)
	if err != nil {
		respondServiceError(c, err, "list catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetPublic returns one visible item
// GET /api/v1/store/:slug/items/:id
func (ctrl *ItemController) GetPublic(c *gin.Context) {
	businessID, ok := storefrontID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	item, err := ctrl.itemService.GetPublic(businessID, id)
	if err != nil {
		respondServiceError(c, err, "get catalog item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}
