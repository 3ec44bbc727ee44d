package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"agencypulse/internal/dataprocessing"
)

// AgencyCSV is a six-agency extract covering both product lines, two
// appointment years, every retention level and a few missing values.
const AgencyCSV = `AGENCY_ID,AGENCY_APPOINTMENT_YEAR,PROD_LINE,PROD_ABBR,RETENTION_RATIO,LOSS_RATIO,GROWTH_RATE_3YR,ACTIVE_PRODUCERS,POLY_INFORCE_QTY,PREV_POLY_INFORCE_QTY,WRTN_PREM_AMT,NB_WRTN_PREM_AMT
A1,1998,CL,BOP,0.91,0.40,0.10,5,120,110,12500,1000
A2,1998,PL,HO,0.62,0.75,-0.05,3,80,90,8000,500
A3,2005,CL,WC,0.35,1.20,0.30,2,40,60,4000,
A4,2005,PL,PA,,0.55,0.00,4,100,95,9500,700
A5,2005,CL,BOP,0.85,0.30,0.20,6,150,140,15000,1500
A6,1998,PL,HO,0.55,0.90,-0.10,1,30,35,2500,200
`

// AgencyRecordCount is the number of records in AgencyCSV.
const AgencyRecordCount = 6

// WriteDataset writes content to dir/agencies.csv and returns the path.
func WriteDataset(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "agencies.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dataset fixture: %v", err)
	}
	return path
}

// LoadDataset parses AgencyCSV through the production loader.
func LoadDataset(t *testing.T) *dataprocessing.Dataset {
	t.Helper()

	ds, err := dataprocessing.LoadFile(WriteDataset(t, t.TempDir(), AgencyCSV))
	if err != nil {
		t.Fatalf("load dataset fixture: %v", err)
	}
	return ds
}
