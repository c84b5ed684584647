package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/normalize"
)

// InputFile is one discovered statement file.
type InputFile struct {
	Path    string
	Month   string              // YYYYMM the file covers
	Profile *domain.BankProfile // nil for PIX text extracts
}

// DiscoverFiles walks the expected file names for the current billing month
// and the monthsBack-1 months before it. Input files follow a fixed naming
// scheme: {YYYYMM}_Extrato.txt for account extracts and
// {YYYYMM}_{BankName}.xls or .xlsx for card statements. Missing files are
// normal, a month with no files contributes nothing.
func DiscoverFiles(dataDir string, monthsBack int, profiles []*domain.BankProfile, now time.Time) []InputFile {
	var files []InputFile

	year, month := normalize.BillingMonth(now)
	cursor := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < monthsBack; i++ {
		ym := cursor.Format("200601")

		pix := filepath.Join(dataDir, fmt.Sprintf("%s_Extrato.txt", ym))
		if fileExists(pix) {
			files = append(files, InputFile{Path: pix, Month: ym})
		}

		for _, profile := range profiles {
			for _, ext := range []string{".xls", ".xlsx"} {
				path := filepath.Join(dataDir, fmt.Sprintf("%s_%s%s", ym, profile.Name, ext))
				if fileExists(path) {
					files = append(files, InputFile{Path: path, Month: ym, Profile: profile})
				}
			}
		}

		cursor = cursor.AddDate(0, -1, 0)
	}
	return files
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
