package parsers

import (
	"strings"
)

// ColumnMap holds the index of each canonical field in the header row.
// A value of -1 means the field was not found.
type ColumnMap struct {
	Ticker   int
	Shares   int
	Price    int
	Currency int
	Date     int
}

func newColumnMap() ColumnMap {
	return ColumnMap{Ticker: -1, Shares: -1, Price: -1, Currency: -1, Date: -1}
}

// Valid reports whether the mapping is usable. Ticker and price are hard
// preconditions; without them the caller must produce an empty batch rather
// than guess.
func (c ColumnMap) Valid() bool {
	return c.Ticker >= 0 && c.Price >= 0
}

// HasCurrency reports whether an explicit currency column was identified.
func (c ColumnMap) HasCurrency() bool { return c.Currency >= 0 }

// DetectSeparator picks the field separator from the first non-empty line.
// Priority: tab, then semicolon, then comma.
func DetectSeparator(line string) rune {
	switch {
	case strings.ContainsRune(line, '\t'):
		return '\t'
	case strings.ContainsRune(line, ';'):
		return ';'
	default:
		return ','
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// MapColumns maps loosely-named headers to canonical fields. Matching is
// case-insensitive and first-match-wins per canonical field.
func MapColumns(header []string) ColumnMap {
	cm := newColumnMap()
	for i, raw := range header {
		h := strings.ToLower(strings.TrimSpace(raw))
		if h == "" {
			continue
		}
		switch {
		case cm.Ticker < 0 && containsAny(h, "ticker", "symbol", "code"):
			cm.Ticker = i
		case cm.Shares < 0 && containsAny(h, "shares", "quantity", "qty", "units"):
			cm.Shares = i
		case cm.Price < 0 && (containsAny(h, "price", "cost") ||
			(containsAny(h, "purchase", "entry") && !strings.Contains(h, "date"))):
			cm.Price = i
		case cm.Currency < 0 && (h == "currency" || h == "ccy"):
			cm.Currency = i
		case cm.Date < 0 && strings.Contains(h, "date"):
			cm.Date = i
		}
	}
	return cm
}
