// Command agency-report prints Agency Pulse analytics for a dataset file
// and exports dashboards to workbooks or CSV files.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
