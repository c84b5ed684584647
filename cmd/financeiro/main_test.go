package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutivix/financeiro/internal/normalize"
)

// currentBillingYM returns the YYYYMM the file discovery expects for a run
// started now.
func currentBillingYM() string {
	year, month := normalize.BillingMonth(time.Now())
	return fmt.Sprintf("%04d%02d", year, int(month))
}

func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FINANCEIRO_DATA_DIR", dir)
	return dir
}

func TestRunExitsNoInputsOnEmptyWindow(t *testing.T) {
	setupDataDir(t)

	code := run([]string{"run", "--skip-open-finance", "--no-excel"})
	assert.Equal(t, exitNoInputs, code)
}

func TestRunExitsCleanWithInputs(t *testing.T) {
	dir := setupDataDir(t)
	pix := filepath.Join(dir, currentBillingYM()+"_Extrato.txt")
	require.NoError(t, os.WriteFile(pix,
		[]byte("05/10/2025;PIX QRS PADARIA DOCE 05/10;15.50\n"), 0644))

	code := run([]string{"run", "--skip-open-finance", "--no-excel"})
	assert.Equal(t, exitOK, code)
}

func TestRunExitsPartialWhenAFileFails(t *testing.T) {
	dir := setupDataDir(t)
	ym := currentBillingYM()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ym+"_Extrato.txt"),
		[]byte("05/10/2025;PIX QRS PADARIA DOCE 05/10;15.50\n"), 0644))
	// Not a workbook. The extract still persists, so the run is partial.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ym+"_Itau.xlsx"),
		[]byte("not a spreadsheet"), 0644))

	code := run([]string{"run", "--skip-open-finance", "--no-excel"})
	assert.Equal(t, exitPartial, code)
}

func TestRunExitsFatalOnBadConfig(t *testing.T) {
	setupDataDir(t)
	t.Setenv("FINANCEIRO_MONTHS_BACK", "0")

	code := run([]string{"run"})
	assert.Equal(t, exitFatal, code)
}

func TestRunExitsFatalOnUnknownCommand(t *testing.T) {
	setupDataDir(t)

	code := run([]string{"frobnicate"})
	assert.Equal(t, exitFatal, code)
}
