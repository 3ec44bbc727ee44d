// Package shared groups helpers used by more than one layer.
//
// The testutil subpackage holds test-only utilities: a capturing slog
// handler with assertion helpers, and agency dataset fixtures written to
// a temporary directory.
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteDataset(t, t.TempDir(), testutil.AgencyCSV)
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "Dataset loaded")
//	}
package shared
