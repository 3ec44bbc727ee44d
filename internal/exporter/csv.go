package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"agencypulse/internal/config"
	"agencypulse/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize UTF-8 CSV files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes headers and records to w.
func WriteCSV(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTable writes t as a BOM-prefixed CSV. Missing numbers are empty
// cells.
func WriteTable(w io.Writer, t domain.Table) error {
	return WriteCSV(w, WriteOptions{
		Headers:   t.Headers,
		Records:   tableRecords(t),
		BOMPrefix: true,
	})
}

// CSVWriter writes tables to files under the exports directory.
type CSVWriter struct {
	exportsDir string
}

// NewCSVWriter creates a writer rooted at paths.ExportsDir.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{exportsDir: paths.ExportsDir}
}

// WriteFile writes t to filePath and returns the resolved location.
func (w *CSVWriter) WriteFile(filePath string, t domain.Table) (string, error) {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(t.Rows)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := WriteTable(file, t); err != nil {
		file.Close()
		return "", err
	}
	return fullPath, file.Close()
}

// WriteTables writes one CSV per table into dir, named after the titles.
func (w *CSVWriter) WriteTables(dir string, tables []domain.Table) ([]string, error) {
	used := make(map[string]bool, len(tables))
	written := make([]string, 0, len(tables))
	for _, t := range tables {
		path, err := w.WriteFile(filepath.Join(dir, fileName(t.Title, used)+".csv"), t)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// resolvePath keeps absolute paths and roots relative ones in the
// exports directory.
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.exportsDir == "" {
		return filePath
	}
	return filepath.Join(w.exportsDir, filePath)
}

func tableRecords(t domain.Table) [][]string {
	records := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		record := make([]string, len(row))
		for j, c := range row {
			record[j] = formatCell(c)
		}
		records[i] = record
	}
	return records
}
