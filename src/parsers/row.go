package parsers

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/models"
)

// ErrNoColumns is returned when no ticker or no price column could be
// identified in the header row. The caller must report "no rows parsed"
// rather than guess a schema.
var ErrNoColumns = errors.New("no ticker or price column found in header")

// buildRow turns one spreadsheet row into a ParsedRow. It returns nil when
// the row must be dropped: empty ticker always; unparseable shares/price when
// strict is set. formatCurrency, when non-empty, is a currency derived from
// the cell's number format and is used unless an explicit currency column
// overrides it.
func buildRow(cells []string, cm ColumnMap, formatCurrency string, now time.Time, strict bool) *models.ParsedRow {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	ticker := cell(cm.Ticker)
	if ticker == "" {
		return nil
	}

	priceRaw := cell(cm.Price)
	sharesRaw := cell(cm.Shares)

	currency := ""
	explicit := cm.HasCurrency()
	if code := cell(cm.Currency); code != "" {
		currency = strings.ToUpper(code)
	} else if formatCurrency != "" {
		currency = formatCurrency
		explicit = true
	} else {
		detected, found := DetectCurrency(priceRaw)
		currency = detected
		explicit = explicit || found || detected != DefaultCurrency
	}

	shares := ParseAmount(sharesRaw)
	price := ParseAmount(priceRaw)
	if strict && (shares == 0 || price == 0) {
		if logger.L != nil {
			logger.L.Warn("Dropping row in strict mode", "ticker", ticker, "shares", sharesRaw, "price", priceRaw)
		}
		return nil
	}

	return &models.ParsedRow{
		ID:                  uuid.New().String(),
		OriginalTicker:      ticker,
		Shares:              shares,
		PurchasePrice:       price,
		Currency:            currency,
		CurrencyWasExplicit: explicit,
		EntryDate:           ParseEntryDate(cell(cm.Date), now),
		Status:              models.StatusPending,
	}
}
