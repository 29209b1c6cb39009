package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
)

// DelimitedParser materializes CSV and TSV exports. The field separator is
// detected from the first non-empty line (tab > semicolon > comma) and the
// first non-empty row is always treated as the header row.
type DelimitedParser struct {
	strict bool
}

func NewDelimitedParser(strict bool) *DelimitedParser {
	return &DelimitedParser{strict: strict}
}

func (p *DelimitedParser) Parse(file io.Reader) (*models.Batch, error) {
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	firstLine := ""
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			firstLine = line
			break
		}
	}
	if firstLine == "" {
		return nil, ErrNoColumns
	}
	sep := DetectSeparator(firstLine)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read delimited records: %w", err)
	}

	var header []string
	dataStart := 0
	for i, record := range records {
		if !recordEmpty(record) {
			header = record
			dataStart = i + 1
			break
		}
	}
	if header == nil {
		return nil, ErrNoColumns
	}

	cm := MapColumns(header)
	if !cm.Valid() {
		return nil, ErrNoColumns
	}

	now := time.Now()
	batch := &models.Batch{}
	for _, record := range records[dataStart:] {
		if recordEmpty(record) {
			continue
		}
		if row := buildRow(record, cm, "", now, p.strict); row != nil {
			batch.Rows = append(batch.Rows, row)
		}
	}

	logger.L.Info("Delimited file materialized",
		"separator", string(sep), "rows", len(batch.Rows), "strict", p.strict)
	return batch, nil
}

func recordEmpty(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
