package service

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/storefront/commerce-backend/internal/app/repository"
)

type DashboardStats struct {
	Customers          int64                       `json:"customers"`
	Items              int64                       `json:"items"`
	LowStockItems      int64                       `json:"low_stock_items"`
	Orders             int64                       `json:"orders"`
	OrdersByStatus     map[model.OrderStatus]int64 `json:"orders_by_status"`
	Invoices           int64                       `json:"invoices"`
	OrderRevenue       decimal.Decimal             `json:"order_revenue"`
	InvoiceRevenue     decimal.Decimal             `json:"invoice_revenue"`
	OutstandingInvoice decimal.Decimal             `json:"outstanding_invoice_amount"`
	TotalRevenue       decimal.Decimal             `json:"total_revenue"`
	RevenueLast30Days  decimal.Decimal             `json:"order_revenue_last_30_days"`
}

type DashboardService interface {
	Stats(businessID uint) (*DashboardStats, error)
}

type dashboardService struct {
	customerRepo repository.CustomerRepository
	itemRepo     repository.ItemRepository
	orderRepo    repository.OrderRepository
	invoiceRepo  repository.InvoiceRepository
	now          func() time.Time
}

func NewDashboardService(
	customerRepo repository.CustomerRepository,
	itemRepo repository.ItemRepository,
	orderRepo repository.OrderRepository,
	invoiceRepo repository.InvoiceRepository,
) DashboardService {
	return &dashboardService{
		customerRepo: customerRepo,
		itemRepo:     itemRepo,
		orderRepo:    orderRepo,
		invoiceRepo:  invoiceRepo,
		now:          time.Now,
	}
}

// Stats counts only rows of businessID. Revenue covers orders that were not
// cancelled plus paid invoices.
func (s *dashboardService) Stats(businessID uint) (*DashboardStats, error) {
	stats := &DashboardStats{}

	var err error
	if stats.Customers, err = s.customerRepo.CountByBusiness(businessID); err != nil {
		return nil, err
	}
	if stats.Items, err = s.itemRepo.CountByBusiness(businessID); err != nil {
		return nil, err
	}
	if stats.LowStockItems, err = s.itemRepo.CountLowStock(businessID); err != nil {
		return nil, err
	}
	if stats.OrdersByStatus, err = s.orderRepo.CountByStatus(businessID); err != nil {
		return nil, err
	}
	for _, n := range stats.OrdersByStatus {
		stats.Orders += n
	}
	if _, stats.Invoices, err = s.invoiceRepo.List(businessID, repository.InvoiceFilter{Limit: 1}); err != nil {
		return nil, err
	}

	if stats.OrderRevenue, err = s.orderRepo.Revenue(businessID, nil); err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -30)
	if stats.RevenueLast30Days, err = s.orderRepo.Revenue(businessID, &since); err != nil {
		return nil, err
	}
	if stats.InvoiceRevenue, err = s.invoiceRepo.SumNetPayable(businessID, model.InvoicePaid); err != nil {
		return nil, err
	}
	if stats.OutstandingInvoice, err = s.invoiceRepo.SumNetPayable(businessID, model.InvoiceUnpaid); err != nil {
		return nil, err
	}
	stats.TotalRevenue = stats.OrderRevenue.Add(stats.InvoiceRevenue)
	return stats, nil
}
