package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pricelens/backend/internal/domain"
)

type column int

const (
	colName column = iota
	colPrice
	colBrand
	colCategory
	colSize
	colStoreID
	colStoreName
	colCurrency
	colURL
	colImage
	columnCount
)

// headerAliases maps normalized header text to the column it names.
var headerAliases = map[string]column{
	"name":         colName,
	"product":      colName,
	"product_name": colName,
	"item":         colName,
	"description":  colName,
	"price":        colPrice,
	"unit_price":   colPrice,
	"cost":         colPrice,
	"amount":       colPrice,
	"brand":        colBrand,
	"manufacturer": colBrand,
	"category":     colCategory,
	"department":   colCategory,
	"size":         colSize,
	"pack_size":    colSize,
	"weight":       colSize,
	"volume":       colSize,
	"store_id":     colStoreID,
	"store":        colStoreID,
	"location_id":  colStoreID,
	"store_name":   colStoreName,
	"location":     colStoreName,
	"currency":     colCurrency,
	"url":          colURL,
	"link":         colURL,
	"image_url":    colImage,
	"image":        colImage,
}

// headerRowsScanned bounds how far down a sheet the header row may start.
const headerRowsScanned = 3

type layout [columnCount]int

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

// inferLayout returns the column positions named by row, and whether the row
// looks like a header at all.
func inferLayout(row []string) (layout, bool) {
	var l layout
	for i := range l {
		l[i] = -1
	}
	found := false
	for i, cell := range row {
		c, ok := headerAliases[normalizeHeader(cell)]
		if !ok || l[c] >= 0 {
			continue
		}
		l[c] = i
		found = true
	}
	return l, found && l[colName] >= 0
}

func positionalLayout() layout {
	l, _ := inferLayout(nil)
	l[colName], l[colPrice] = 0, 1
	return l
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (l layout) entry(row []string) domain.ManualEntry {
	return domain.ManualEntry{
		Name:      cell(row, l[colName]),
		Price:     parsePrice(cell(row, l[colPrice])),
		Brand:     cell(row, l[colBrand]),
		Category:  cell(row, l[colCategory]),
		SizeHint:  cell(row, l[colSize]),
		StoreID:   cell(row, l[colStoreID]),
		StoreName: cell(row, l[colStoreName]),
		Currency:  cell(row, l[colCurrency]),
		URL:       cell(row, l[colURL]),
		ImageURL:  cell(row, l[colImage]),
	}
}

// ReadXLSX reads one listing per row from every sheet of a workbook. Each sheet's
// header row is looked for in its first rows; without one, the first two columns
// are taken as name and price.
func ReadXLSX(r io.Reader, d Defaults) ([]domain.ManualEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var entries []domain.ManualEntry
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		start := 0
		l := positionalLayout()
		for i := 0; i < len(rows) && i < headerRowsScanned; i++ {
			if inferred, ok := inferLayout(rows[i]); ok {
				l, start = inferred, i+1
				break
			}
		}

		for _, row := range rows[start:] {
			e := l.entry(row)
			if e.Name == "" {
				continue
			}
			d.apply(&e)
			entries = append(entries, e)
		}
	}

	if len(entries) == 0 {
		return nil, ErrNoListings
	}
	return entries, nil
}
