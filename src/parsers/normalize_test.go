package parsers

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/username/folioimport/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"european thousands and decimal", "1.234,56", 1234.56},
		{"us thousands and decimal", "1,234.56", 1234.56},
		{"single comma thousands", "1,000", 1000},
		{"single comma decimal", "3,5", 3.5},
		{"comma decimal two digits", "150,25", 150.25},
		{"plain dot decimal", "350.00", 350},
		{"integer", "42", 42},
		{"leading dollar symbol", "$150.25", 150.25},
		{"leading euro symbol", "€99", 99},
		{"trailing currency code", "150,25 CHF", 150.25},
		{"embedded spaces", "1 234,56", 1234.56},
		{"negative", "-12.5", -12.5},
		{"empty", "", 0},
		{"garbage", "n/a", 0},
		{"double comma", "1,23,4", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseAmount(tt.raw), 1e-9)
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	tests := []struct {
		raw       string
		wantCode  string
		wantFound bool
	}{
		{"$150.25", "USD", true},
		{"€99", "EUR", true},
		{"£12.30", "GBP", true},
		{"¥2000", "JPY", true},
		{"150,25 CHF", "CHF", true},
		{"99 eur", "EUR", true},
		{"45 SEK", "SEK", true},
		{"150.25", "USD", false},
		{"", "USD", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			code, found := DetectCurrency(tt.raw)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestParseEntryDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"iso passthrough", "2024-01-15", "2024-01-15"},
		{"first field over 12 is day", "15/01/2024", "2024-01-15"},
		{"second field over 12 is day", "01/15/2024", "2024-01-15"},
		{"ambiguous assumes day first", "03/04/2024", "2024-04-03"},
		{"dot separators", "15.01.2024", "2024-01-15"},
		{"dash separators", "15-01-2024", "2024-01-15"},
		{"two digit year 1900s", "15/01/99", "1999-01-15"},
		{"two digit year 2000s", "15/01/24", "2024-01-15"},
		{"year first", "2024/01/15", "2024-01-15"},
		{"unparseable defaults to today", "soon", "2024-06-01"},
		{"empty defaults to today", "", "2024-06-01"},
		{"invalid month defaults to today", "40/40/2024", "2024-06-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEntryDate(tt.raw, now))
		})
	}
}

func TestCurrencyFromNumberFormat(t *testing.T) {
	tests := []struct {
		name   string
		numFmt string
		want   string
	}{
		{"euro literal", "#,##0.00 €", "EUR"},
		{"pound literal", "£#,##0.00", "GBP"},
		{"yen literal", "¥#,##0", "JPY"},
		{"norwegian krone locale", "[$kr-414] #,##0.00", "NOK"},
		{"swedish krona locale", "[$kr-41D] #,##0.00", "SEK"},
		{"danish krone locale", "#,##0.00 [$kr-406]", "DKK"},
		{"bare kr defaults to sek", "#,##0.00 \"kr\"", "SEK"},
		{"iso code", "[$CHF] #,##0.00", "CHF"},
		{"dollar generic", "[$$-409]#,##0.00", "USD"},
		{"plain number", "#,##0.00", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrencyFromNumberFormat(tt.numFmt))
		})
	}
}
