package parsers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, build func(f *excelize.File, sheet string)) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f, f.GetSheetName(0))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func setRow(t *testing.T, f *excelize.File, sheet, cell string, values []interface{}) {
	t.Helper()
	require.NoError(t, f.SetSheetRow(sheet, cell, &values))
}

func TestXLSXParserPrefersTypedValuesAndFormatCurrency(t *testing.T) {
	numFmt := "€#,##0.0"
	wb := workbookBytes(t, func(f *excelize.File, sheet string) {
		setRow(t, f, sheet, "A1", []interface{}{"Ticker", "Shares", "Price"})
		setRow(t, f, sheet, "A2", []interface{}{"RACE", 10, 350.256})
		styleID, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(sheet, "C2", "C2", styleID))
	})

	batch, err := NewXLSXParser(false).Parse(wb)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)

	row := batch.Rows[0]
	assert.Equal(t, "RACE", row.OriginalTicker)
	assert.InDelta(t, 10, row.Shares, 1e-9)
	// The cell renders as a rounded "€350.3"; the typed value must win.
	assert.InDelta(t, 350.256, row.PurchasePrice, 1e-9)
	assert.Equal(t, "EUR", row.Currency)
	assert.True(t, row.CurrencyWasExplicit)
}

func TestXLSXParserExplicitCurrencyColumnOverridesCellFormat(t *testing.T) {
	numFmt := "€#,##0.00"
	wb := workbookBytes(t, func(f *excelize.File, sheet string) {
		setRow(t, f, sheet, "A1", []interface{}{"Ticker", "Shares", "Price", "Currency"})
		setRow(t, f, sheet, "A2", []interface{}{"NESN", 3, 95.2, "CHF"})
		styleID, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle(sheet, "C2", "C2", styleID))
	})

	batch, err := NewXLSXParser(false).Parse(wb)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)

	row := batch.Rows[0]
	assert.Equal(t, "CHF", row.Currency)
	assert.True(t, row.CurrencyWasExplicit)
	assert.InDelta(t, 95.2, row.PurchasePrice, 1e-9)
}

func TestXLSXParserReadsFirstSheetOnly(t *testing.T) {
	wb := workbookBytes(t, func(f *excelize.File, sheet string) {
		setRow(t, f, sheet, "A1", []interface{}{"Ticker", "Shares", "Price"})
		setRow(t, f, sheet, "A2", []interface{}{"RACE", 10, 350.0})

		_, err := f.NewSheet("Extra")
		require.NoError(t, err)
		setRow(t, f, "Extra", "A1", []interface{}{"Ticker", "Shares", "Price"})
		setRow(t, f, "Extra", "A2", []interface{}{"AAPL", 5, 180.5})
		setRow(t, f, "Extra", "A3", []interface{}{"MSFT", 2, 410.0})
	})

	batch, err := NewXLSXParser(false).Parse(wb)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "RACE", batch.Rows[0].OriginalTicker)
}

func TestXLSXParserSkipsLeadingEmptyRows(t *testing.T) {
	wb := workbookBytes(t, func(f *excelize.File, sheet string) {
		setRow(t, f, sheet, "A3", []interface{}{"Ticker", "Shares", "Price"})
		setRow(t, f, sheet, "A4", []interface{}{"RACE", 10, 350.0})
	})

	batch, err := NewXLSXParser(false).Parse(wb)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.InDelta(t, 350.0, batch.Rows[0].PurchasePrice, 1e-9)
}

func TestXLSXParserFailsClosedWithoutColumns(t *testing.T) {
	t.Run("no ticker column", func(t *testing.T) {
		wb := workbookBytes(t, func(f *excelize.File, sheet string) {
			setRow(t, f, sheet, "A1", []interface{}{"Name", "Amount"})
			setRow(t, f, sheet, "A2", []interface{}{"Ferrari", 10})
		})
		_, err := NewXLSXParser(false).Parse(wb)
		assert.ErrorIs(t, err, ErrNoColumns)
	})
	t.Run("empty workbook", func(t *testing.T) {
		wb := workbookBytes(t, func(f *excelize.File, sheet string) {})
		_, err := NewXLSXParser(false).Parse(wb)
		assert.ErrorIs(t, err, ErrNoColumns)
	})
	t.Run("not a workbook", func(t *testing.T) {
		_, err := NewXLSXParser(false).Parse(strings.NewReader("Ticker,Shares,Price\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open workbook")
	})
}

func TestXLSParserRejectsUnreadableFile(t *testing.T) {
	_, err := NewXLSParser(false).Parse(strings.NewReader("not a legacy workbook"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "legacy workbook")
}
