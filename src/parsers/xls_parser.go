package parsers

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shakinm/xlsReader/xls"
	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
)

// XLSParser materializes legacy binary workbook exports. Only the first
// sheet is read; cells arrive as rendered strings, so currency markers are
// detected from the price text like in delimited files.
type XLSParser struct {
	strict bool
}

func NewXLSParser(strict bool) *XLSParser {
	return &XLSParser{strict: strict}
}

func (p *XLSParser) Parse(file io.Reader) (*models.Batch, error) {
	// The legacy reader works with file paths, so stage the upload in a
	// temp file first.
	tmp, err := os.CreateTemp("", "holdings-*.xls")
	if err != nil {
		return nil, fmt.Errorf("failed to stage legacy workbook: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to stage legacy workbook: %w", err)
	}
	tmp.Close()

	wb, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy workbook: %w", err)
	}
	sheet, err := wb.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, ErrNoColumns
	}

	var grid [][]string
	for _, xlsRow := range sheet.GetRows() {
		var cells []string
		for _, col := range xlsRow.GetCols() {
			cells = append(cells, col.GetString())
		}
		grid = append(grid, cells)
	}

	headerIdx := -1
	for i, row := range grid {
		if !recordEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrNoColumns
	}

	cm := MapColumns(grid[headerIdx])
	if !cm.Valid() {
		return nil, ErrNoColumns
	}

	now := time.Now()
	batch := &models.Batch{}
	for _, row := range grid[headerIdx+1:] {
		if recordEmpty(row) {
			continue
		}
		if parsed := buildRow(row, cm, "", now, p.strict); parsed != nil {
			batch.Rows = append(batch.Rows, parsed)
		}
	}

	logger.L.Info("Legacy workbook materialized", "rows", len(batch.Rows), "strict", p.strict)
	return batch, nil
}
