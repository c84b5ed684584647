package parsers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutivix/financeiro/internal/domain"
)

func writePixFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPixParser_CanHandle(t *testing.T) {
	p := NewPixParser(zerolog.Nop())

	assert.True(t, p.CanHandle("/data/202509_Extrato.txt"))
	assert.True(t, p.CanHandle("202509_extrato.TXT"))
	assert.False(t, p.CanHandle("202509_Itau.xlsx"))
	assert.False(t, p.CanHandle("notes.txt"))
}

func TestPixParser_Parse(t *testing.T) {
	content := "15/09/2025;SISPAG PIX EMPRESA X;5000,00\n" +
		"16/09/2025;PIX MERCADO X 16/09;120,00\n"
	path := writePixFile(t, "202509_Extrato.txt", content)

	result, err := NewPixParser(zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Empty(t, result.Warnings)

	salary := result.Transactions[0]
	assert.Equal(t, time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), salary.Date)
	assert.Equal(t, "SISPAG PIX EMPRESA X", salary.Description)
	assert.Equal(t, -5000.00, salary.Amount, "extract values are negated")
	assert.Equal(t, domain.SourcePix, salary.Source)
	assert.Equal(t, domain.OriginPixText, salary.Origin)
}

func TestPixParser_DiscardsCardSettlementRows(t *testing.T) {
	content := "10/09/2025;PAGAMENTO EFETUADO;1200,00\n" +
		"11/09/2025;PGTO FATURA ITAU VISA;900,00\n" +
		"12/09/2025;pagamento cartao final 6259;450,00\n" +
		"13/09/2025;PIX PADARIA;20,00\n"
	path := writePixFile(t, "202509_Extrato.txt", content)

	result, err := NewPixParser(zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "PIX PADARIA", result.Transactions[0].Description)
	assert.Empty(t, result.Warnings, "settlement rows are discarded, not warned")
}

func TestPixParser_WarnsOnBadRows(t *testing.T) {
	content := "garbage line\n" +
		"32/13/2025;BAD DATE;10,00\n" +
		"15/09/2025;ZERO ROW;0,00\n" +
		"15/09/2025;BAD AMOUNT;abc\n" +
		"\n" +
		"15/09/2025;GOOD;10,00\n"
	path := writePixFile(t, "202509_Extrato.txt", content)

	result, err := NewPixParser(zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
	assert.Len(t, result.Warnings, 4)
}

func TestPixParser_SemicolonInDescription(t *testing.T) {
	path := writePixFile(t, "202509_Extrato.txt", "15/09/2025;PIX LOJA;FILIAL 2;10,00\n")

	result, err := NewPixParser(zerolog.Nop()).Parse(path)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "PIX LOJA;FILIAL 2", result.Transactions[0].Description)
	assert.Equal(t, -10.00, result.Transactions[0].Amount)
}

func TestPixParser_MissingFile(t *testing.T) {
	_, err := NewPixParser(zerolog.Nop()).Parse("/nonexistent/202509_Extrato.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParse)
}
