// Package report renders the monthly spending workbook. One sheet per
// billing month with the raw transactions, plus a summary sheet with per
// category totals and their mean and spread across months.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/lutivix/financeiro/internal/domain"
)

const summarySheet = "Resumo"

// transactionReader is the slice of the store the report needs.
type transactionReader interface {
	MonthRefs() []string
	QueryMonth(monthRef string) []*domain.Transaction
	CategoryTotals(monthRef string) map[domain.Category]float64
}

// Generator writes spending workbooks from stored transactions.
type Generator struct {
	repo transactionReader
	dir  string
	log  zerolog.Logger
}

// New creates a generator writing into dir (created on demand).
func New(repo transactionReader, dir string, log zerolog.Logger) *Generator {
	return &Generator{
		repo: repo,
		dir:  dir,
		log:  log.With().Str("component", "report").Logger(),
	}
}

// Generate writes the workbook and returns its path. An empty store still
// produces a workbook with just the summary sheet.
func (g *Generator) Generate() (string, error) {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	months := g.repo.MonthRefs()
	for _, month := range months {
		if err := g.writeMonthSheet(f, month); err != nil {
			return "", err
		}
	}
	if err := g.writeSummarySheet(f, months); err != nil {
		return "", err
	}

	// Drop the default sheet and make the summary the landing sheet.
	idx, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return "", fmt.Errorf("locating summary sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("removing default sheet: %w", err)
	}

	path := filepath.Join(g.dir, fmt.Sprintf("financeiro_%s.xlsx", time.Now().Format("20060102")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving report: %w", err)
	}
	g.log.Info().Str("path", path).Int("months", len(months)).Msg("Report written")
	return path, nil
}

func (g *Generator) writeMonthSheet(f *excelize.File, month string) error {
	if _, err := f.NewSheet(month); err != nil {
		return fmt.Errorf("creating sheet %q: %w", month, err)
	}

	headers := []interface{}{"Data", "Descrição", "Valor", "Origem", "Categoria"}
	if err := f.SetSheetRow(month, "A1", &headers); err != nil {
		return err
	}

	for i, tx := range g.repo.QueryMonth(month) {
		row := []interface{}{
			tx.DateString(),
			tx.Description,
			tx.Amount,
			string(tx.Source),
			string(tx.Category),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(month, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// writeSummarySheet lays out one row per category with the monthly totals
// side by side, then their mean and standard deviation. Income categories
// are excluded, the sheet reads as a spending budget.
func (g *Generator) writeSummarySheet(f *excelize.File, months []string) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	headers := []interface{}{"Categoria"}
	for _, m := range months {
		headers = append(headers, m)
	}
	headers = append(headers, "Média", "Desvio")
	if err := f.SetSheetRow(summarySheet, "A1", &headers); err != nil {
		return err
	}

	totals := make([]map[domain.Category]float64, len(months))
	for i, m := range months {
		totals[i] = g.repo.CategoryTotals(m)
	}

	rowIdx := 2
	for _, cat := range domain.AllCategories {
		if cat.IsSpecial() {
			continue
		}
		values := make([]float64, len(months))
		seen := false
		for i := range months {
			values[i] = totals[i][cat]
			if values[i] != 0 {
				seen = true
			}
		}
		if !seen {
			continue
		}

		row := []interface{}{string(cat)}
		for _, v := range values {
			row = append(row, v)
		}
		mean := stat.Mean(values, nil)
		row = append(row, mean)
		if len(values) > 1 {
			row = append(row, stat.StdDev(values, nil))
		} else {
			row = append(row, 0.0)
		}

		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		rowIdx++
	}
	return nil
}
