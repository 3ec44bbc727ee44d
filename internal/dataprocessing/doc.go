// Package dataprocessing is the analytics pipeline behind every agency
// dashboard. It loads the agency performance dataset once and derives all
// views from it with pure functions.
//
// # Architecture
//
// The package is organized into four stages:
//
// 1. Loader: reads CSV or XLSX into an immutable Dataset
// 2. Filter: narrows a Dataset by exact dimension values
// 3. Aggregation: Summarize, GroupMean, GroupSum, Histogram, BinnedMean
// 4. Derivation: retention segmentation and the correlation matrix
//
// # Usage
//
//	ds, err := dataprocessing.LoadFile("finalapi.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	view := dataprocessing.Filter(ds, dataprocessing.FilterSpec{
//	    domain.DimensionProdLine: "CL",
//	})
//	kpis := dataprocessing.Summarize(view)
//	byYear := dataprocessing.GroupMean(view,
//	    dataprocessing.ByDimension(domain.DimensionAgencyAppointmentYear),
//	    []domain.Field{domain.FieldRetentionRatio})
//
// # Missing Values
//
// Missing numeric cells are NaN from load onwards. Means and correlations
// skip them, sums count them as 0, and retention segmentation puts them in
// the Low tier. A *LoadError is the only fatal condition.
//
// # Concurrency
//
// A Dataset is never mutated after load. Every function here may run
// concurrently against the same Dataset.
package dataprocessing
