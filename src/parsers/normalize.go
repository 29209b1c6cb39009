package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/folioimport/src/logger"
)

const DefaultCurrency = "USD"

// currencySymbols maps leading symbols to ISO codes, checked in this order.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

// currencyCodes are trailing ISO/locale codes recognized in price text.
var currencyCodes = []string{"CHF", "SEK", "NOK", "DKK", "GBP", "EUR", "USD"}

// DetectCurrency inspects a price-cell string for a leading currency symbol or
// a trailing ISO code, in that priority order. It returns the detected code
// (DefaultCurrency when nothing matches) and whether a marker was found.
func DetectCurrency(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	for _, cs := range currencySymbols {
		if strings.HasPrefix(s, cs.symbol) {
			return cs.code, true
		}
	}
	upper := strings.ToUpper(s)
	for _, code := range currencyCodes {
		if strings.HasSuffix(upper, code) {
			return code, true
		}
	}
	return DefaultCurrency, false
}

// ParseAmount normalizes a locale-ambiguous number string (shares or price)
// to a float64. Unparseable input yields 0, never an error; callers must
// treat zero-valued rows as invalid downstream.
func ParseAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	// Strip whitespace, currency symbols and any trailing currency code.
	s = strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '\t' || r == ' ':
			return -1
		case r == '$' || r == '€' || r == '£' || r == '¥':
			return -1
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			return -1
		}
		return r
	}, s)

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		// The rightmost separator is the decimal separator; the other is a
		// thousands separator and is stripped entirely.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		// A single comma followed by exactly three digits is a thousands
		// separator; anything else is a decimal separator.
		idx := strings.LastIndex(s, ",")
		if strings.Count(s, ",") == 1 && len(s)-idx-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		if logger.L != nil {
			logger.L.Debug("Unparseable amount, defaulting to 0", "raw", raw)
		}
		return 0
	}
	f, _ := d.Float64()
	return f
}

var dateSeparatorRe = regexp.MustCompile(`[/.\-]`)

// ParseEntryDate normalizes a locale-ambiguous date string to YYYY-MM-DD.
// Already-ISO input passes through. D/M/Y-shaped strings are disambiguated by
// magnitude with a day-first tie-break. Unparseable input defaults to "today"
// (now), which only affects historical-price lookups downstream.
func ParseEntryDate(raw string, now time.Time) string {
	s := strings.TrimSpace(raw)
	today := now.Format("2006-01-02")
	if s == "" {
		return today
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s
	}

	parts := dateSeparatorRe.Split(s, -1)
	if len(parts) != 3 {
		return parseDateFallback(raw, today)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return parseDateFallback(raw, today)
		}
		nums[i] = n
	}

	// Year-first input (e.g. 2024/01/15) keeps its field order.
	if len(parts[0]) == 4 {
		return formatDate(nums[0], nums[1], nums[2], raw, today)
	}

	year := nums[2]
	if len(parts[2]) <= 2 {
		if year > 50 {
			year += 1900
		} else {
			year += 2000
		}
	}

	// Day-first unless the first component can only be a month.
	day, month := nums[0], nums[1]
	if nums[0] <= 12 && nums[1] > 12 {
		day, month = nums[1], nums[0]
	}

	return formatDate(year, month, day, raw, today)
}

func formatDate(year, month, day int, raw, today string) string {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 || year > 2200 {
		return parseDateFallback(raw, today)
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func parseDateFallback(raw, today string) string {
	if logger.L != nil {
		logger.L.Debug("Unparseable date, defaulting to today", "raw", raw, "today", today)
	}
	return today
}

// krLocaleCurrencies disambiguates "kr" number formats by the embedded
// Windows locale identifier.
var krLocaleCurrencies = []struct {
	localeID string
	code     string
}{
	{"-414", "NOK"},
	{"-814", "NOK"},
	{"-41d", "SEK"},
	{"-406", "DKK"},
}

// CurrencyFromNumberFormat derives an ISO currency code from a spreadsheet
// cell number-format string. Returns "" when the format carries no currency
// signature.
func CurrencyFromNumberFormat(numFmt string) string {
	if numFmt == "" {
		return ""
	}
	lower := strings.ToLower(numFmt)
	switch {
	case strings.Contains(numFmt, "€"):
		return "EUR"
	case strings.Contains(numFmt, "£"):
		return "GBP"
	case strings.Contains(numFmt, "¥"):
		return "JPY"
	}
	if strings.Contains(lower, "kr") {
		for _, kl := range krLocaleCurrencies {
			if strings.Contains(lower, kl.localeID) {
				return kl.code
			}
		}
		return "SEK"
	}
	upper := strings.ToUpper(numFmt)
	for _, code := range currencyCodes {
		if strings.Contains(upper, code) {
			return code
		}
	}
	if strings.Contains(numFmt, "$") {
		return "USD"
	}
	return ""
}
