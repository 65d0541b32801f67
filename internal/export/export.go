// Package export renders invoices and order lists as xlsx workbooks and
// reads catalog sheets for bulk item import.
package export

import (
	"fmt"

	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

const (
	invoiceSheet = "Invoice"
	ordersSheet  = "Orders"
	dateLayout   = "2006-01-02 15:04"
)

// ContentType is the MIME type of every workbook produced here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InvoiceWorkbook lays out one invoice: a header block, the line table and
// the totals underneath.
func InvoiceWorkbook(invoice *model.Invoice) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), invoiceSheet); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	header := [][]interface{}{
		{"Invoice", invoice.InvoiceNumber},
		{"Date", invoice.CreatedAt.Format(dateLayout)},
		{"Customer", invoice.CustomerName},
		{"Phone", invoice.CustomerPhone},
		{"Payment mode", invoice.PaymentMode},
		{"Status", string(invoice.Status)},
	}
	row := 1
	for _, values := range header {
		if err := setRow(f, invoiceSheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	row++
	tableHeader := row
	if err := setRow(f, invoiceSheet, row, []interface{}{"Item", "Qty", "Rate", "GST %", "Value", "GST"}); err != nil {
		f.Close()
		return nil, err
	}
	for _, it := range invoice.Items {
		row++
		err := setRow(f, invoiceSheet, row, []interface{}{
			it.ItemName,
			it.Quantity,
			it.Rate.InexactFloat64(),
			it.GSTPercent.InexactFloat64(),
			it.TotalValue.InexactFloat64(),
			it.GSTAmount.InexactFloat64(),
		})
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	row += 2
	totals := [][]interface{}{
		{"Total value", invoice.TotalValue.InexactFloat64()},
		{"Total GST", invoice.TotalGST.InexactFloat64()},
		{fmt.Sprintf("Discount (%s%%)", invoice.DiscountPercent.String()), invoice.DiscountAmount.InexactFloat64()},
		{"Gross", invoice.GrossAmount.InexactFloat64()},
		{"Round off", invoice.RoundOff.InexactFloat64()},
		{"Net payable", invoice.NetPayable.InexactFloat64()},
	}
	for _, values := range totals {
		if err := setRow(f, invoiceSheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	if err := boldRow(f, invoiceSheet, tableHeader, 6, bold); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(invoiceSheet, "A", "A", 28); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// OrdersWorkbook writes one row per order, newest first as given.
func OrdersWorkbook(orders []model.Order) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ordersSheet); err != nil {
		f.Close()
		return nil, err
	}

	columns := []interface{}{"Order", "Date", "Customer", "Phone", "Status", "Payment", "Mode", "Items", "Total"}
	if err := setRow(f, ordersSheet, 1, columns); err != nil {
		f.Close()
		return nil, err
	}

	for i, o := range orders {
		units := 0
		for _, oi := range o.OrderItems {
			units += oi.Quantity
		}
		err := setRow(f, ordersSheet, i+2, []interface{}{
			o.OrderNumber,
			o.CreatedAt.Format(dateLayout),
			o.CustomerName,
			o.CustomerPhone,
			string(o.Status),
			string(o.PaymentStatus),
			string(o.PaymentMode),
			units,
			o.TotalAmount.InexactFloat64(),
		})
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := boldRow(f, ordersSheet, 1, len(columns), bold); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetPanes(ordersSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func boldRow(f *excelize.File, sheet string, row, width, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(width, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}
