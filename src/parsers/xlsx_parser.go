package parsers

import (
	"fmt"
	"io"
	"time"

	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
	"github.com/xuri/excelize/v2"
)

// builtinCurrencyFormats are the built-in number-format IDs that render a
// currency symbol. They all carry the generic dollar signature.
var builtinCurrencyFormats = map[int]string{
	5: "USD", 6: "USD", 7: "USD", 8: "USD",
	37: "USD", 38: "USD", 39: "USD", 40: "USD",
	41: "USD", 42: "USD", 43: "USD", 44: "USD",
}

// XLSXParser materializes modern workbook exports. Only the first sheet is
// read. For shares and price cells the typed numeric value is preferred over
// the rendered string, and the cell's number format contributes a currency
// when no explicit currency column is present.
type XLSXParser struct {
	strict bool
}

func NewXLSXParser(strict bool) *XLSXParser {
	return &XLSXParser{strict: strict}
}

func (p *XLSXParser) Parse(file io.Reader) (*models.Batch, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	headerIdx := -1
	for i, row := range rows {
		if !recordEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrNoColumns
	}

	cm := MapColumns(rows[headerIdx])
	if !cm.Valid() {
		return nil, ErrNoColumns
	}

	now := time.Now()
	batch := &models.Batch{}
	for i := headerIdx + 1; i < len(rows); i++ {
		if recordEmpty(rows[i]) {
			continue
		}
		cells := make([]string, len(rows[i]))
		copy(cells, rows[i])

		// Prefer the typed numeric value for quantity cells; the rendered
		// string may carry display-only formatting.
		for _, col := range []int{cm.Shares, cm.Price} {
			if col < 0 || col >= len(cells) {
				continue
			}
			ref, refErr := excelize.CoordinatesToCellName(col+1, i+1)
			if refErr != nil {
				continue
			}
			rawVal, valErr := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
			if valErr == nil && rawVal != "" {
				cells[col] = rawVal
			}
		}

		formatCurrency := p.priceCellCurrency(f, sheet, cm.Price, i)
		if row := buildRow(cells, cm, formatCurrency, now, p.strict); row != nil {
			batch.Rows = append(batch.Rows, row)
		}
	}

	logger.L.Info("Workbook materialized", "sheet", sheet, "rows", len(batch.Rows), "strict", p.strict)
	return batch, nil
}

// priceCellCurrency derives a currency from the number format of the price
// cell at the given row index, or "" when the format carries no signature.
func (p *XLSXParser) priceCellCurrency(f *excelize.File, sheet string, priceCol, rowIdx int) string {
	if priceCol < 0 {
		return ""
	}
	ref, err := excelize.CoordinatesToCellName(priceCol+1, rowIdx+1)
	if err != nil {
		return ""
	}
	styleID, err := f.GetCellStyle(sheet, ref)
	if err != nil {
		return ""
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return ""
	}
	if style.CustomNumFmt != nil {
		return CurrencyFromNumberFormat(*style.CustomNumFmt)
	}
	if code, ok := builtinCurrencyFormats[style.NumFmt]; ok {
		return code
	}
	return ""
}
