package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/commerce-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

// ItemColumns is the header row expected on a catalog sheet. Columns are
// matched by name, case-insensitively, so their order is free.
var ItemColumns = []string{"name", "category", "unit", "quantity", "min_stock", "price", "cost_price", "gst_percent", "description"}

// RowError reports a sheet row that was skipped.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ReadItems parses the first sheet of a catalog workbook into items for
// businessID. Invalid rows are skipped and reported; duplicate names keep
// the first occurrence.
func ReadItems(r io.Reader, businessID uint) ([]model.Item, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("no sheets found in workbook")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, nil, fmt.Errorf("header row has no name column")
	}
	if _, ok := index["price"]; !ok {
		return nil, nil, fmt.Errorf("header row has no price column")
	}

	var (
		items   []model.Item
		skipped []RowError
		seen    = make(map[string]bool)
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		get := func(col string) string {
			idx, ok := index[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		name := get("name")
		if name == "" {
			if strings.TrimSpace(strings.Join(row, "")) != "" {
				skipped = append(skipped, RowError{Row: rowNum, Reason: "missing name"})
			}
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			skipped = append(skipped, RowError{Row: rowNum, Reason: fmt.Sprintf("duplicate item %q", name)})
			continue
		}

		item := model.Item{
			BusinessID:  businessID,
			Name:        name,
			Category:    get("category"),
			Unit:        get("unit"),
			Description: get("description"),
		}

		var rowErr string
		if item.Quantity, rowErr = parseCount(get("quantity"), "quantity"); rowErr == "" {
			item.MinStock, rowErr = parseCount(get("min_stock"), "min_stock")
		}
		if rowErr == "" {
			item.Price, rowErr = parseMoney(get("price"), "price", true)
		}
		if rowErr == "" {
			item.CostPrice, rowErr = parseMoney(get("cost_price"), "cost_price", false)
		}
		if rowErr == "" {
			item.GSTPercent, rowErr = parseMoney(get("gst_percent"), "gst_percent", false)
			if rowErr == "" && item.GSTPercent.GreaterThan(decimal.NewFromInt(100)) {
				rowErr = "gst_percent must be between 0 and 100"
			}
		}
		if rowErr != "" {
			skipped = append(skipped, RowError{Row: rowNum, Reason: rowErr})
			continue
		}

		seen[key] = true
		items = append(items, item)
	}
	return items, skipped, nil
}

// ItemsTemplate returns an empty catalog sheet with the expected header.
func ItemsTemplate() (*excelize.File, error) {
	f := excelize.NewFile()
	header := make([]interface{}, len(ItemColumns))
	for i, c := range ItemColumns {
		header[i] = c
	}
	if err := setRow(f, f.GetSheetName(0), 1, header); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func parseCount(s, field string) (int, string) {
	if s == "" {
		return 0, ""
	}
	// spreadsheets often store whole numbers as "12.0"
	if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
		s = d.String()
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, field + " must be a whole number"
	}
	if n < 0 {
		return 0, field + " cannot be negative"
	}
	return n, ""
}

func parseMoney(s, field string, required bool) (decimal.Decimal, string) {
	if s == "" {
		if required {
			return decimal.Zero, field + " is required"
		}
		return decimal.Zero, ""
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, field + " must be a number"
	}
	if d.IsNegative() {
		return decimal.Zero, field + " cannot be negative"
	}
	return d.Round(2), ""
}
