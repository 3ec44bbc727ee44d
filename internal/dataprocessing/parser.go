package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"agencypulse/pkg/contracts/domain"
)

// LoadError reports a dataset that cannot be used at all: the source is
// unreadable or mandatory columns are absent. It is fatal to a session.
type LoadError struct {
	Source  string
	Missing []string
	Err     error
}

func (e *LoadError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("load %s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrUnsupportedFormat is wrapped in a LoadError for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// requiredColumns is every column of the record, all mandatory.
var requiredColumns = func() []string {
	cols := make([]string, 0, len(domain.Dimensions)+len(domain.MeasureFields))
	for _, d := range domain.Dimensions {
		cols = append(cols, string(d))
	}
	for _, f := range domain.MeasureFields {
		cols = append(cols, string(f))
	}
	return cols
}()

// missingTokens are cell values read as a missing number.
var missingTokens = map[string]bool{
	"": true, "nan": true, "na": true, "n/a": true, "null": true, "none": true, "-": true,
}

// LoadFile reads a dataset from a .csv or .xlsx file.
func LoadFile(path string) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, &LoadError{Source: path, Err: openErr}
		}
		defer f.Close()
		ds, err = loadCSV(path, f)
	case ".xlsx", ".xlsm":
		ds, err = loadWorkbook(path)
	default:
		return nil, &LoadError{Source: path, Err: fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))}
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Dataset loaded",
		slog.String("source", path),
		slog.Int("records", ds.Len()))
	return ds, nil
}

// Load parses CSV data with a header row into a dataset.
func Load(r io.Reader) (*Dataset, error) {
	return loadCSV("reader", r)
}

func loadCSV(source string, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("read CSV: %w", err)}
	}
	return parseRows(source, rows)
}

func loadWorkbook(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	// First sheet whose header carries every required column wins.
	var lastErr error
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			lastErr = &LoadError{Source: path, Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
			continue
		}
		ds, err := parseRows(fmt.Sprintf("%s#%s", path, sheet), rows)
		if err == nil {
			return ds, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &LoadError{Source: path, Err: errors.New("workbook has no sheets")}
	}
	return nil, lastErr
}

// parseRows maps a header row plus data rows onto records.
func parseRows(source string, rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, &LoadError{Source: source, Err: errors.New("empty input: no header row")}
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		name := normalizeHeader(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Source: source, Missing: missing}
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	number := func(row []string, f domain.Field) float64 {
		return ParseNumber(cell(row, string(f)))
	}

	records := make([]domain.AgencyRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		records = append(records, domain.AgencyRecord{
			AgencyID:              cell(row, string(domain.DimensionAgencyID)),
			AgencyAppointmentYear: parseYear(cell(row, string(domain.DimensionAgencyAppointmentYear))),
			ProdLine:              cell(row, string(domain.DimensionProdLine)),
			ProdAbbr:              cell(row, string(domain.DimensionProdAbbr)),
			RetentionRatio:        number(row, domain.FieldRetentionRatio),
			LossRatio:             number(row, domain.FieldLossRatio),
			GrowthRate3Yr:         number(row, domain.FieldGrowthRate3Yr),
			ActiveProducers:       number(row, domain.FieldActiveProducers),
			PolyInforceQty:        number(row, domain.FieldPolyInforceQty),
			PrevPolyInforceQty:    number(row, domain.FieldPrevPolyInforceQty),
			WrtnPremAmt:           number(row, domain.FieldWrtnPremAmt),
			NBWrtnPremAmt:         number(row, domain.FieldNBWrtnPremAmt),
		})
	}

	return &Dataset{source: source, records: records}, nil
}

// normalizeHeader lowercases a header cell and strips a UTF-8 BOM,
// surrounding whitespace and inner spaces or hyphens.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(strings.ToLower(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

// ParseNumber reads a numeric cell. Thousands separators, a leading
// currency sign and accounting parentheses are accepted; anything else
// that does not parse is missing (NaN).
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if missingTokens[strings.ToLower(s)] {
		return math.NaN()
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Replace(s, "$", "", 1)

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	if negative {
		v = -v
	}
	return v
}

// parseYear accepts "1998" and the "1998.0" form spreadsheets emit.
func parseYear(s string) int {
	v := ParseNumber(s)
	if math.IsNaN(v) || v != math.Trunc(v) {
		return 0
	}
	return int(v)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
