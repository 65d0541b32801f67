package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/app/service"
	"github.com/storefront/commerce-backend/internal/middleware"
)

type BusinessController struct {
	businessService service.BusinessService
}

func NewBusinessController(businessService service.BusinessService) *BusinessController {
	return &BusinessController{businessService: businessService}
}

type BusinessSetupRequest struct {
	BusinessName   string `json:"business_name" binding:"required"`
	BusinessType   string `json:"business_type"`
	Description    string `json:"description"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Email          string `json:"email" binding:"omitempty,email"`
	GSTIN          string `json:"gstin"`
	ImageURL       string `json:"image_url"`
	KYCDocumentURL string `json:"kyc_document_url"`
}

// UpdateBusinessRequest uses pointers so absent fields stay untouched
type UpdateBusinessRequest struct {
	BusinessName   *string `json:"business_name"`
	BusinessType   *string `json:"business_type"`
	Description    *string `json:"description"`
	Address        *string `json:"address"`
	Phone          *string `json:"phone"`
	Email          *string `json:"email" binding:"omitempty,email"`
	ImageURL       *string `json:"image_url"`
	GSTIN          *string `json:"gstin"`
	KYCStatus      *string `json:"kyc_status"`
	KYCDocumentURL *string `json:"kyc_document_url"`
}

type SwitchBusinessRequest struct {
	BusinessID uint `json:"business_id" binding:"required"`
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// GetSetup returns the caller's businesses and current default
// GET /api/v1/business/setup
func (ctrl *BusinessController) GetSetup(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}

	view, err := ctrl.businessService.GetSetup(staff.UserID())
	if err != nil {
		respondServiceError(c, err, "get business setup")
		return
	}

	c.JSON(http.StatusOK, view)
}

// Setup creates a business owned by the caller
// POST /api/v1/business/setup
func (ctrl *BusinessController) Setup(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}

	var req BusinessSetupRequest
	if !bindJSON(c, &req) {
		return
	}

	business, err := ctrl.businessService.Setup(staff.UserID(), service.BusinessSetupInput{
		Name:           req.BusinessName,
		BusinessType:   req.BusinessType,
		Description:    req.Description,
		Address:        req.Address,
		Phone:          req.Phone,
		Email:          req.Email,
		GSTIN:          req.GSTIN,
		ImageURL:       req.ImageURL,
		KYCDocumentURL: req.KYCDocumentURL,
	})
	if err != nil {
		respondServiceError(c, err, "create business")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Business set up", map[string]interface{}{
		"business_id": business.ID,
		"slug":        business.Slug,
	})

	c.JSON(http.StatusCreated, gin.H{"business": business})
}

// Get returns the business bound to this request
// GET /api/v1/business
func (ctrl *BusinessController) Get(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	business, err := ctrl.businessService.Get(businessID)
	if err != nil {
		respondServiceError(c, err, "get business")
		return
	}

	c.JSON(http.StatusOK, gin.H{"business": business})
}

// Update changes business details
// PUT /api/v1/business
func (ctrl *BusinessController) Update(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	var req UpdateBusinessRequest
	if !bindJSON(c, &req) {
		return
	}

	business, err := ctrl.businessService.Update(businessID, service.UpdateBusinessInput{
		Name:           req.BusinessName,
		BusinessType:   req.BusinessType,
		Description:    req.Description,
		Address:        req.Address,
		Phone:          req.Phone,
		Email:          req.Email,
		ImageURL:       req.ImageURL,
		GSTIN:          req.GSTIN,
		KYCStatus:      req.KYCStatus,
		KYCDocumentURL: req.KYCDocumentURL,
	})
	if err != nil {
		respondServiceError(c, err, "update business")
		return
	}

	c.JSON(http.StatusOK, gin.H{"business": business})
}

// Switch changes the caller's default business
// POST /api/v1/business/switch
func (ctrl *BusinessController) Switch(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}

	var req SwitchBusinessRequest
	if !bindJSON(c, &req) {
		return
	}

	business, err := ctrl.businessService.Switch(staff.UserID(), req.BusinessID)
	if err != nil {
		respondServiceError(c, err, "switch business")
		return
	}

	c.JSON(http.StatusOK, gin.H{"business": business})
}

// AddMember grants an existing staff user access to this business
// POST /api/v1/business/members
func (ctrl *BusinessController) AddMember(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := ctrl.businessService.AddMember(businessID, req.Email)
	if err != nil {
		respondServiceError(c, err, "add business member")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// Storefront returns the public profile of a store
// GET /api/v1/store/:slug
func (ctrl *BusinessController) Storefront(c *gin.Context) {
	business, ok := middleware.GetStorefront(c)
	if !ok {
		respondServiceError(c, service.ErrBusinessNotFound, "get storefront")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"business": gin.H{
			"id":            business.ID,
			"name":          business.Name,
			"slug":          business.Slug,
			"business_type": business.BusinessType,
			"description":   business.Description,
			"address":       business.Address,
			"phone":         business.Phone,
			"email":         business.Email,
			"image_url":     business.ImageURL,
		},
	})
}
