package service

import (
	"errors"
	"strings"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/pkg/logger"
	"gorm.io/gorm"
)

// maxSlugAttempts bounds insert retries when two businesses race for a slug.
const maxSlugAttempts = 5

type BusinessSetupInput struct {
	Name           string
	BusinessType   string
	Description    string
	Address        string
	Phone          string
	Email          string
	GSTIN          string
	ImageURL       string
	KYCDocumentURL string
}

// UpdateBusinessInput carries only the fields being changed.
type UpdateBusinessInput struct {
	Name           *string
	BusinessType   *string
	Description    *string
	Address        *string
	Phone          *string
	Email          *string
	ImageURL       *string
	GSTIN          *string
	KYCStatus      *string
	KYCDocumentURL *string
}

type SetupView struct {
	User           *model.User            `json:"user"`
	Businesses     []model.BusinessEntity `json:"businesses"`
	ActiveBusiness *model.BusinessEntity  `json:"active_business"`
}

type BusinessService interface {
	Setup(userID uint, input BusinessSetupInput) (*model.BusinessEntity, error)
	GetSetup(userID uint) (*SetupView, error)
	Get(businessID uint) (*model.BusinessEntity, error)
	Update(businessID uint, input UpdateBusinessInput) (*model.BusinessEntity, error)
	Switch(userID, businessID uint) (*model.BusinessEntity, error)
	ResolveTenant(user *model.User, requestedID uint) (uint, error)
	ResolveSlug(slug string) (*model.BusinessEntity, error)
	AddMember(businessID uint, email string) (*model.BusinessMember, error)
	ListActive() ([]model.BusinessEntity, error)
}

type businessService struct {
	businessRepo repository.BusinessRepository
	userRepo     repository.UserRepository
	db           *gorm.DB
}

func NewBusinessService(businessRepo repository.BusinessRepository, userRepo repository.UserRepository, db *gorm.DB) BusinessService {
	return &businessService{
		businessRepo: businessRepo,
		userRepo:     userRepo,
		db:           db,
	}
}

// Setup creates a business owned by userID. The first business becomes
// the user's default.
func (s *businessService) Setup(userID uint, input BusinessSetupInput) (*model.BusinessEntity, error) {
	name := strings.TrimSpace(input.Name)
	logger.Info("Setting up business", map[string]interface{}{
		"user_id": userID,
		"name":    name,
	})

	if name == "" {
		return nil, NewValidationError("business_name", "business_name is required")
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var business *model.BusinessEntity
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		business = &model.BusinessEntity{
			OwnerID:        userID,
			Name:           name,
			BusinessType:   input.BusinessType,
			Description:    input.Description,
			Address:        input.Address,
			Phone:          input.Phone,
			Email:          input.Email,
			GSTIN:          input.GSTIN,
			ImageURL:       input.ImageURL,
			KYCDocumentURL: input.KYCDocumentURL,
			Status:         model.BusinessActive,
		}
		if input.KYCDocumentURL != "" {
			business.KYCStatus = model.KYCPending
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.businessRepo.WithTx(tx).Create(business); err != nil {
				return err
			}
			member := &model.BusinessMember{UserID: userID, BusinessID: business.ID, Role: model.MemberOwner}
			if err := s.businessRepo.WithTx(tx).AddMember(member); err != nil {
				return err
			}
			if user.ActiveBusinessID == nil {
				return s.userRepo.WithTx(tx).SetActiveBusiness(userID, business.ID)
			}
			return nil
		})
		if err == nil {
			break
		}
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		logger.Warn("Slug collision on business insert, retrying", map[string]interface{}{
			"attempt": attempt,
			"name":    name,
		})
	}
	if err != nil {
		return nil, ErrConflict
	}

	logger.Info("Business created", map[string]interface{}{
		"business_id": business.ID,
		"slug":        business.Slug,
		"user_id":     userID,
	})
	return business, nil
}

func (s *businessService) GetSetup(userID uint) (*SetupView, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	businesses, err := s.businessRepo.ListForUser(userID)
	if err != nil {
		return nil, err
	}

	view := &SetupView{User: user, Businesses: businesses}
	if user.ActiveBusinessID != nil {
		for i := range businesses {
			if businesses[i].ID == *user.ActiveBusinessID {
				view.ActiveBusiness = &businesses[i]
				break
			}
		}
	}
	return view, nil
}

func (s *businessService) Get(businessID uint) (*model.BusinessEntity, error) {
	business, err := s.businessRepo.FindByID(businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	return business, nil
}

// Update applies the given fields. KYC fields cannot change once set, staff
// may only submit a pending kyc_status, and a rename regenerates the slug.
func (s *businessService) Update(businessID uint, input UpdateBusinessInput) (*model.BusinessEntity, error) {
	business, err := s.Get(businessID)
	if err != nil {
		return nil, err
	}

	if err := setOnce("gstin", &business.GSTIN, input.GSTIN); err != nil {
		return nil, err
	}
	if err := setOnce("kyc_document_url", &business.KYCDocumentURL, input.KYCDocumentURL); err != nil {
		return nil, err
	}
	if input.KYCStatus != nil {
		// verified and rejected are review outcomes, not something staff submit
		status := model.KYCStatus(*input.KYCStatus)
		if status != model.KYCPending {
			return nil, NewValidationError("kyc_status", "kyc_status can only be submitted as pending")
		}
		if business.KYCStatus != "" && business.KYCStatus != status {
			return nil, NewValidationError("kyc_status", "kyc_status cannot be changed once set")
		}
		business.KYCStatus = status
	}
	if business.KYCDocumentURL != "" && business.KYCStatus == "" {
		business.KYCStatus = model.KYCPending
	}

	renamed := false
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, NewValidationError("business_name", "business_name cannot be empty")
		}
		renamed = name != business.Name
		business.Name = name
	}
	assign(&business.BusinessType, input.BusinessType)
	assign(&business.Description, input.Description)
	assign(&business.Address, input.Address)
	assign(&business.Phone, input.Phone)
	assign(&business.Email, input.Email)
	assign(&business.ImageURL, input.ImageURL)

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if renamed {
				if err := business.RegenerateSlug(tx); err != nil {
					return err
				}
			}
			return s.businessRepo.WithTx(tx).Update(business)
		})
		if err == nil || !renamed || !repository.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	logger.Info("Business updated", map[string]interface{}{
		"business_id": business.ID,
		"slug":        business.Slug,
	})
	return business, nil
}

// Switch changes the persisted default business of a staff user.
func (s *businessService) Switch(userID, businessID uint) (*model.BusinessEntity, error) {
	if _, err := s.businessRepo.FindMember(userID, businessID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}

	if err := s.userRepo.SetActiveBusiness(userID, businessID); err != nil {
		return nil, err
	}

	logger.Info("Default business switched", map[string]interface{}{
		"user_id":     userID,
		"business_id": businessID,
	})
	return s.Get(businessID)
}

// ResolveTenant picks the business a staff request acts on: the requested
// one when given, otherwise the persisted default. Membership is checked
// either way.
func (s *businessService) ResolveTenant(user *model.User, requestedID uint) (uint, error) {
	businessID := requestedID
	if businessID == 0 {
		if user.ActiveBusinessID == nil {
			return 0, ErrNoActiveBusiness
		}
		businessID = *user.ActiveBusinessID
	}

	if _, err := s.businessRepo.FindMember(user.ID, businessID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Tenant resolution failed: not a member", map[string]interface{}{
				"user_id":     user.ID,
				"business_id": businessID,
			})
			return 0, ErrNotMember
		}
		return 0, err
	}
	return businessID, nil
}

// ResolveSlug resolves a public storefront. An unknown or inactive slug is
// NotFound; there is no fallback business.
func (s *businessService) ResolveSlug(slug string) (*model.BusinessEntity, error) {
	business, err := s.businessRepo.FindBySlug(strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	if business.Status == model.BusinessInactive {
		return nil, ErrBusinessNotFound
	}
	return business, nil
}

func (s *businessService) AddMember(businessID uint, email string) (*model.BusinessMember, error) {
	user, err := s.userRepo.FindByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	member := &model.BusinessMember{UserID: user.ID, BusinessID: businessID, Role: model.MemberAdmin}
	if err := s.businessRepo.AddMember(member); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	if user.ActiveBusinessID == nil {
		if err := s.userRepo.SetActiveBusiness(user.ID, businessID); err != nil {
			return nil, err
		}
	}

	logger.Info("Business member added", map[string]interface{}{
		"business_id": businessID,
		"user_id":     user.ID,
	})
	return member, nil
}

func (s *businessService) ListActive() ([]model.BusinessEntity, error) {
	return s.businessRepo.ListAll()
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// setOnce writes src into dst only while dst is empty.
func setOnce(field string, dst *string, src *string) error {
	if src == nil {
		return nil
	}
	value := strings.TrimSpace(*src)
	if *dst != "" && *dst != value {
		return NewValidationError(field, field+" cannot be changed once set")
	}
	*dst = value
	return nil
}
