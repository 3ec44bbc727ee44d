package validation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencypulse/internal/shared/testutil"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("AGENCY_ID\nA1\n"), 0o644))
	return path
}

func TestFileValidator_ValidateDataset(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name:      "csv",
			setupFunc: func(t *testing.T) string { return writeFile(t, t.TempDir(), "agencies.csv") },
		},
		{
			name:      "upper case workbook extension",
			setupFunc: func(t *testing.T) string { return writeFile(t, t.TempDir(), "agencies.XLSX") },
		},
		{
			name:          "non-existent file",
			setupFunc:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.csv") },
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name:          "directory",
			setupFunc:     func(t *testing.T) string { return t.TempDir() },
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name:          "unsupported extension",
			setupFunc:     func(t *testing.T) string { return writeFile(t, t.TempDir(), "agencies.json") },
			wantErr:       true,
			errorContains: `".json"`,
		},
		{
			name:          "excel lock file",
			setupFunc:     func(t *testing.T) string { return writeFile(t, t.TempDir(), "~$agencies.xlsx") },
			wantErr:       true,
			errorContains: "temporary Excel file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			validator := NewFileValidator(logger)

			err := validator.ValidateDataset(tt.setupFunc(t))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ValidateLayoutsFile(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	validator := NewFileValidator(logger)
	dir := t.TempDir()

	assert.NoError(t, validator.ValidateLayoutsFile(writeFile(t, dir, "layouts.yaml")))
	assert.NoError(t, validator.ValidateLayoutsFile(writeFile(t, dir, "layouts.yml")))

	err := validator.ValidateLayoutsFile(writeFile(t, dir, "layouts.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedExtension))
	assert.True(t, handler.ContainsMessage("Unsupported file type"))
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	validator := NewFileValidator(nil)

	dir := filepath.Join(t.TempDir(), "nested", "exports")
	require.NoError(t, validator.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	_, err = os.Stat(filepath.Join(dir, ".write_test"))
	assert.True(t, os.IsNotExist(err))

	blocker := writeFile(t, t.TempDir(), "file")
	err = validator.ValidateOutputDirectory(filepath.Join(blocker, "sub"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	validator := NewFileValidator(nil)
	dir := t.TempDir()

	assert.NoError(t, validator.ValidateOutputFile(filepath.Join(dir, "reports", "dashboard.xlsx")))

	err := validator.ValidateOutputFile(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}
