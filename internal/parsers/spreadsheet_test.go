package parsers

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lutivix/financeiro/internal/domain"
)

// writeWorkbook builds an xlsx with the given rows in columns A-D.
func writeWorkbook(t *testing.T, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cellName, v))
		}
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestCardSpreadsheetParser_CanHandle(t *testing.T) {
	p := NewCardSpreadsheetParser(domain.BankItau, zerolog.Nop())

	assert.True(t, p.CanHandle("/data/202510_Itau.xlsx"))
	assert.True(t, p.CanHandle("202510_Itau.xls"))
	assert.False(t, p.CanHandle("202510_Personnalite.xlsx"))
	assert.False(t, p.CanHandle("202510_Itau.txt"))
}

func TestCardSpreadsheetParser_FinalBlocks(t *testing.T) {
	path := writeWorkbook(t, "202510_Personnalite.xlsx", [][]interface{}{
		{"FINAL **** 6259", nil, nil, nil},
		{"10/10/2025", "LOJA A", nil, "50.00"},
		{"FINAL **** 1603", nil, nil, nil},
		{"11/10/2025", "SPOTIFY", nil, "21.90"},
	})

	result, err := NewCardSpreadsheetParser(domain.BankPersonnalite, zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, domain.SourceVisaFisico, result.Transactions[0].Source)
	assert.Equal(t, domain.SourceVisaRecorrente, result.Transactions[1].Source)
	assert.Equal(t, domain.OriginSpreadsheet, result.Transactions[0].Origin)
}

func TestCardSpreadsheetParser_UnknownFinalFallsBack(t *testing.T) {
	path := writeWorkbook(t, "202510_Itau.xlsx", [][]interface{}{
		{"FINAL **** 9999", nil, nil, nil},
		{"10/10/2025", "LOJA B", nil, "75.00"},
	})

	result, err := NewCardSpreadsheetParser(domain.BankItau, zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, domain.SourceMasterVirtual, result.Transactions[0].Source)
}

func TestCardSpreadsheetParser_ConversionPair(t *testing.T) {
	path := writeWorkbook(t, "202510_Personnalite.xlsx", [][]interface{}{
		{"FINAL **** 6259", nil, nil, nil},
		{"10/10/2025", "AMAZON US", nil, "50.00"},
		{"10/10/2025", "dólar de conversão", nil, nil},
		{nil, "VALOR CONVERTIDO", nil, "265.30"},
	})

	result, err := NewCardSpreadsheetParser(domain.BankPersonnalite, zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1, "dollar row and marker collapse into one converted transaction")

	tx := result.Transactions[0]
	assert.Equal(t, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC), tx.Date, "reuses the marker's date")
	assert.Equal(t, "VALOR CONVERTIDO", tx.Description)
	assert.Equal(t, 265.30, tx.Amount)
	assert.Equal(t, domain.SourceVisaFisico, tx.Source)
}

func TestCardSpreadsheetParser_ForeignRowsSkipped(t *testing.T) {
	path := writeWorkbook(t, "202510_Itau.xlsx", [][]interface{}{
		{"FINAL **** 3339", nil, nil, nil},
		{"10/10/2025", "HOTEL CHF ZURICH", nil, "300.00"},
		{"10/10/2025", "CAFE EURO PARIS", nil, "12.00"},
		{"10/10/2025", "SUSHI BAR", nil, "90.00"},
	})

	result, err := NewCardSpreadsheetParser(domain.BankItau, zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1, "token match must not catch SUSHI")
	assert.Equal(t, "SUSHI BAR", result.Transactions[0].Description)
	assert.Len(t, result.Warnings, 2)
}

func TestCardSpreadsheetParser_DatelessRowWithoutMarker(t *testing.T) {
	path := writeWorkbook(t, "202510_Itau.xlsx", [][]interface{}{
		{"FINAL **** 3339", nil, nil, nil},
		{nil, "ORPHAN ROW", nil, "10.00"},
	})

	result, err := NewCardSpreadsheetParser(domain.BankItau, zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
	assert.Len(t, result.Warnings, 1)
}

func TestCardSpreadsheetParser_SettlementRowsSkipped(t *testing.T) {
	path := writeWorkbook(t, "202510_Itau.xlsx", [][]interface{}{
		{"FINAL **** 3339", nil, nil, nil},
		{"10/10/2025", "PAGAMENTO EFETUADO", nil, "1500.00"},
		{"10/10/2025", "ITAU BLACK ANUIDADE", nil, "80.00"},
		{"10/10/2025", "MERCADO Y", nil, "80.00"},
	})

	result, err := NewCardSpreadsheetParser(domain.BankItau, zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "MERCADO Y", result.Transactions[0].Description)
}

func TestCardSpreadsheetParser_MissingFile(t *testing.T) {
	_, err := NewCardSpreadsheetParser(domain.BankItau, zerolog.Nop()).Parse("/nonexistent/202510_Itau.xlsx")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParse)
}
