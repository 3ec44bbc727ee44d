package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"agencypulse/pkg/contracts/domain"
)

// WriteWorkbook writes one worksheet per table to w, in order. Headers are
// bold, numbers stay numeric and missing values are blank cells.
func WriteWorkbook(w io.Writer, tables []domain.Table) error {
	f, err := buildWorkbook(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes the workbook to path.
func SaveWorkbook(path string, tables []domain.Table) error {
	f, err := buildWorkbook(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(tables []domain.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	first := f.GetSheetName(0)
	used := make(map[string]bool, len(tables))
	for i, t := range tables {
		name := sheetName(t.Title, used)
		if i == 0 {
			err = f.SetSheetName(first, name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, t, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, t domain.Table, headerStyle int) error {
	if len(t.Headers) > 0 {
		header := make([]interface{}, len(t.Headers))
		for i, h := range t.Headers {
			header[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet, err)
		}
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet, err)
		}
		lastCol, _, _ := excelize.SplitCellName(last)
		if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet, err)
		}
	}

	for i, row := range t.Rows {
		values := make([]interface{}, len(row))
		for j, c := range row {
			values[j] = cellValue(c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func cellValue(c domain.Cell) interface{} {
	if !c.IsNumber() {
		return c.Text
	}
	if !c.Number.Defined() {
		return nil
	}
	return float64(*c.Number)
}
