package service

import (
	"errors"
	"strings"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/pkg/logger"
	"github.com/storefront/commerce-backend/pkg/util"
	"gorm.io/gorm"
)

type CustomerInput struct {
	Name     string
	Email    string
	Phone    string
	Password string // optional; customers created by staff may log in by code
	Address  string
	City     string
	State    string
	Pincode  string
}

type UpdateCustomerInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	City    *string
	State   *string
	Pincode *string
}

type AddressInput struct {
	Address string
	City    string
	State   string
	Pincode string
}

// CustomerService manages a business's customer book. Every call is
// scoped by the tenant passed in.
type CustomerService interface {
	Create(businessID uint, input CustomerInput) (*model.Customer, error)
	List(businessID uint, filter repository.CustomerFilter) ([]model.Customer, int64, error)
	Get(businessID, customerID uint) (*model.Customer, error)
	Update(businessID, customerID uint, input UpdateCustomerInput) (*model.Customer, error)
	Delete(businessID, customerID uint) error
	UpdateAddress(principal model.CustomerPrincipal, input AddressInput) (*model.Customer, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	cartRepo     repository.CartRepository
	db           *gorm.DB
}

func NewCustomerService(customerRepo repository.CustomerRepository, cartRepo repository.CartRepository, db *gorm.DB) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		cartRepo:     cartRepo,
		db:           db,
	}
}

func (s *customerService) Create(businessID uint, input CustomerInput) (*model.Customer, error) {
	customer := &model.Customer{
		BusinessID: businessID,
		Name:       strings.TrimSpace(input.Name),
		Email:      normalizeEmail(input.Email),
		Phone:      strings.TrimSpace(input.Phone),
		Address:    input.Address,
		City:       input.City,
		State:      input.State,
		Pincode:    input.Pincode,
	}
	if err := validateCustomerContact(customer); err != nil {
		return nil, err
	}

	if input.Password != "" {
		hash, err := util.HashPassword(input.Password)
		if err != nil {
			if errors.Is(err, util.ErrPasswordTooShort) {
				return nil, NewValidationError("password", err.Error())
			}
			return nil, err
		}
		customer.PasswordHash = hash
	}

	if err := ensureContactFree(s.customerRepo, customer, 0); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Create(customer); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	logger.Info("Customer created by staff", map[string]interface{}{
		"business_id": businessID,
		"customer_id": customer.ID,
	})
	return customer, nil
}

func (s *customerService) List(businessID uint, filter repository.CustomerFilter) ([]model.Customer, int64, error) {
	return s.customerRepo.List(businessID, filter)
}

func (s *customerService) Get(businessID, customerID uint) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByIDAndBusiness(customerID, businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

func (s *customerService) Update(businessID, customerID uint, input UpdateCustomerInput) (*model.Customer, error) {
	customer, err := s.Get(businessID, customerID)
	if err != nil {
		return nil, err
	}

	assign(&customer.Name, input.Name)
	assign(&customer.Phone, input.Phone)
	if input.Email != nil {
		customer.Email = normalizeEmail(*input.Email)
	}
	assign(&customer.Address, input.Address)
	assign(&customer.City, input.City)
	assign(&customer.State, input.State)
	assign(&customer.Pincode, input.Pincode)

	if err := validateCustomerContact(customer); err != nil {
		return nil, err
	}
	if err := ensureContactFree(s.customerRepo, customer, customer.ID); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Update(customer); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}
	return customer, nil
}

// Delete removes the customer and their cart. Orders and invoices keep
// their copied contact fields.
func (s *customerService) Delete(businessID, customerID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.cartRepo.WithTx(tx).DeleteForCustomer(customerID, businessID); err != nil {
			return err
		}
		return s.customerRepo.WithTx(tx).Delete(customerID, businessID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCustomerNotFound
		}
		return err
	}

	logger.Info("Customer deleted", map[string]interface{}{
		"business_id": businessID,
		"customer_id": customerID,
	})
	return nil
}

func (s *customerService) UpdateAddress(principal model.CustomerPrincipal, input AddressInput) (*model.Customer, error) {
	customer, err := s.Get(principal.BusinessID, principal.CustomerID)
	if err != nil {
		return nil, err
	}

	customer.Address = strings.TrimSpace(input.Address)
	customer.City = strings.TrimSpace(input.City)
	customer.State = strings.TrimSpace(input.State)
	customer.Pincode = strings.TrimSpace(input.Pincode)

	if err := s.customerRepo.Update(customer); err != nil {
		return nil, err
	}
	return customer, nil
}
