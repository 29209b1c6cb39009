package parsers

import (
	"errors"
	"strings"
	"sync"
)

// ErrUnsupportedFile is returned for file extensions the pipeline does not
// accept.
var ErrUnsupportedFile = errors.New("unsupported file type")

// The workbook materializers are heavier than the delimited one, so they are
// acquired lazily and memoized per parsing mode for the life of the process.
var (
	workbookMu  sync.Mutex
	xlsxParsers = map[bool]*XLSXParser{}
	xlsParsers  = map[bool]*XLSParser{}
)

// GetParser returns the materializer for a file extension (".csv", ".tsv",
// ".xls", ".xlsx").
func GetParser(ext string, strict bool) (Parser, error) {
	switch strings.ToLower(ext) {
	case ".csv", ".tsv":
		return NewDelimitedParser(strict), nil
	case ".xlsx":
		workbookMu.Lock()
		defer workbookMu.Unlock()
		p, ok := xlsxParsers[strict]
		if !ok {
			p = NewXLSXParser(strict)
			xlsxParsers[strict] = p
		}
		return p, nil
	case ".xls":
		workbookMu.Lock()
		defer workbookMu.Unlock()
		p, ok := xlsParsers[strict]
		if !ok {
			p = NewXLSParser(strict)
			xlsParsers[strict] = p
		}
		return p, nil
	default:
		return nil, ErrUnsupportedFile
	}
}
