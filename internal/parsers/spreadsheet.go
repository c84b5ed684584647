package parsers

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/utils"
)

// finalDigits extracts the card final-four from a "FINAL **** 6259" row.
var finalDigits = regexp.MustCompile(`(\d{4})\s*$`)

// CardSpreadsheetResult is the output of one card workbook.
type CardSpreadsheetResult struct {
	Transactions []*domain.Transaction
	Warnings     []Warning
}

// CardSpreadsheetParser reads the bank's card statement workbooks. The
// sheet is row-oriented with columns [date, description, (ignored), amount];
// "FINAL xxxx" rows open a per-card block that maps to a Source through the
// bank profile's static table.
type CardSpreadsheetParser struct {
	profile *domain.BankProfile
	log     zerolog.Logger
}

// NewCardSpreadsheetParser creates a spreadsheet parser for one bank profile.
func NewCardSpreadsheetParser(profile *domain.BankProfile, log zerolog.Logger) *CardSpreadsheetParser {
	return &CardSpreadsheetParser{
		profile: profile,
		log:     log.With().Str("parser", "spreadsheet").Str("bank", profile.Name).Logger(),
	}
}

// CanHandle matches {YYYYMM}_{BankName}.xls(x) files for this parser's bank.
func (p *CardSpreadsheetParser) CanHandle(path string) bool {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".xls" && ext != ".xlsx" {
		return false
	}
	return strings.Contains(base, "_"+p.profile.Name)
}

// Parse walks the first sheet row by row. Foreign-currency rows are split in
// two by the bank: the original-currency row is skipped and the converted
// companion row (null date) reuses the date of the preceding conversion
// marker. An unreadable workbook fails with a ParseError.
func (p *CardSpreadsheetParser) Parse(path string) (*CardSpreadsheetResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &domain.ParseError{File: path, Reason: fmt.Sprintf("cannot open workbook: %v", err), Err: domain.ErrParse}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.ParseError{File: path, Reason: "workbook has no sheets", Err: domain.ErrParse}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &domain.ParseError{File: path, Reason: fmt.Sprintf("cannot read rows: %v", err), Err: domain.ErrParse}
	}

	result := &CardSpreadsheetResult{}
	currentSource := p.profile.Fallback
	var conversionDate *time.Time

	for i, row := range rows {
		line := i + 1
		dateCell := cell(row, 0)
		descCell := cell(row, 1)
		amountCell := cell(row, 3)

		if dateCell == "" && descCell == "" && amountCell == "" {
			continue
		}

		// A FINAL row opens the next card block.
		if strings.Contains(strings.ToUpper(dateCell), "FINAL") {
			if m := finalDigits.FindStringSubmatch(dateCell); m != nil {
				currentSource = p.profile.ResolveCardFinal(m[1])
			} else {
				currentSource = p.profile.Fallback
				result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: "FINAL row without digits, using fallback card"})
			}
			conversionDate = nil
			continue
		}

		upper := strings.ToUpper(descCell)
		if isCardPaymentMarker(upper) {
			continue
		}
		if isConversionMarker(upper) {
			if d, err := utils.ParseDayFirstDate(dateCell); err == nil {
				conversionDate = &d
			}
			continue
		}
		if isForeignCurrencyRow(upper) {
			result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: "foreign currency row skipped, converted companion carries the amount"})
			continue
		}

		if amountCell == "" {
			continue
		}
		amount, err := utils.ParseAmount(amountCell)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: fmt.Sprintf("bad amount: %v", err)})
			continue
		}
		if amount == 0 {
			result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: "zero amount row skipped"})
			continue
		}

		var date time.Time
		if dateCell == "" {
			if conversionDate == nil {
				result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: "dateless row without conversion marker skipped"})
				continue
			}
			date = *conversionDate
			conversionDate = nil
		} else {
			d, err := utils.ParseDayFirstDate(dateCell)
			if err != nil {
				result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: fmt.Sprintf("bad date: %v", err)})
				continue
			}
			date = d
		}

		tx, err := domain.NewTransaction(date, descCell, amount, currentSource, domain.OriginSpreadsheet)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: err.Error()})
			continue
		}
		tx.RawData["file"] = path
		tx.RawData["line"] = fmt.Sprintf("%d", line)
		tx.RawData["bank"] = p.profile.Name

		result.Transactions = append(result.Transactions, tx)
	}

	p.log.Debug().Int("rows", len(result.Transactions)).Int("warnings", len(result.Warnings)).Str("file", path).Msg("Parsed card spreadsheet")
	return result, nil
}

// cell returns a trimmed cell value, tolerating short rows.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
