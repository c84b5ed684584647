package parsers

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/utils"
)

// PixResult is the output of one PIX extract file.
type PixResult struct {
	Transactions []*domain.Transaction
	Warnings     []Warning
}

// PixParser reads the bank's semicolon-separated PIX text extracts
// (date;description;amount, day-first dates, no header). The extract stores
// amounts unsigned but they represent outflows, so every value is negated.
type PixParser struct {
	log zerolog.Logger
}

// NewPixParser creates a PIX text parser.
func NewPixParser(log zerolog.Logger) *PixParser {
	return &PixParser{log: log.With().Str("parser", "pix").Logger()}
}

// CanHandle matches the {YYYYMM}_Extrato.txt naming pattern.
func (p *PixParser) CanHandle(path string) bool {
	return strings.HasSuffix(strings.ToLower(filepath.Base(path)), "_extrato.txt")
}

// Parse reads the extract line by line. Card invoice settlement rows are
// discarded, malformed or zero-amount rows become warnings, and an
// unreadable file fails with a ParseError.
func (p *PixParser) Parse(path string) (*PixResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ParseError{File: path, Reason: fmt.Sprintf("cannot open: %v", err), Err: domain.ErrParse}
	}
	defer f.Close()

	result := &PixResult{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		parts := strings.Split(raw, ";")
		if len(parts) < 3 {
			result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: "malformed row, expected date;description;amount"})
			continue
		}

		date, err := utils.ParseDayFirstDate(strings.TrimSpace(parts[0]))
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: fmt.Sprintf("bad date: %v", err)})
			continue
		}

		// Descriptions may legally contain semicolons; the amount is
		// always the last field.
		description := strings.TrimSpace(strings.Join(parts[1:len(parts)-1], ";"))
		if isCardPaymentMarker(strings.ToUpper(description)) {
			p.log.Debug().Int("line", line).Msg("Discarding card invoice settlement row")
			continue
		}

		amount, err := utils.ParseAmount(parts[len(parts)-1])
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: fmt.Sprintf("bad amount: %v", err)})
			continue
		}
		if amount == 0 {
			result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: "zero amount row skipped"})
			continue
		}

		// The extract stores outflows unsigned.
		tx, err := domain.NewTransaction(date, description, -amount, domain.SourcePix, domain.OriginPixText)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{File: path, Line: line, Message: err.Error()})
			continue
		}
		tx.RawData["file"] = path
		tx.RawData["line"] = fmt.Sprintf("%d", line)

		result.Transactions = append(result.Transactions, tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, &domain.ParseError{File: path, Line: line, Reason: fmt.Sprintf("read failed: %v", err), Err: domain.ErrParse}
	}

	p.log.Debug().Int("rows", len(result.Transactions)).Int("warnings", len(result.Warnings)).Str("file", path).Msg("Parsed PIX extract")
	return result, nil
}
