// Package exporter writes dashboard tables as CSV (UTF-8 BOM prefixed for
// Excel) and as xlsx workbooks with one worksheet per table.
package exporter
