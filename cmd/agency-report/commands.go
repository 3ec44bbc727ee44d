package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"agencypulse/internal/access"
	"agencypulse/internal/config"
	"agencypulse/internal/dashboard"
	"agencypulse/internal/exporter"
	"agencypulse/pkg/contracts/domain"
)

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the headline KPIs of the filtered dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			m, err := s.service.Summary(cmd.Context(), s.access, s.filters)
			if err != nil {
				return err
			}
			renderTable(cmd.OutOrStdout(), m.Table())
			return nil
		},
	}
}

func newSegmentsCmd(opts *options) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Average measures per retention level (High, Medium, Low)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseFields(fields)
			if err != nil {
				return err
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			view, err := s.service.Segments(cmd.Context(), s.access, s.filters, parsed)
			if err != nil {
				return err
			}
			renderTable(cmd.OutOrStdout(), titled(view.Table(), "Retention segments"))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&fields, "fields", "f", nil, "Measures to average (default all)")
	return cmd
}

func newCorrelationCmd(opts *options) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "correlation",
		Short: "Print the Pearson correlation matrix of the measures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseFields(fields)
			if err != nil {
				return err
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			m, err := s.service.Correlation(cmd.Context(), s.access, s.filters, parsed)
			if err != nil {
				return err
			}
			renderTable(cmd.OutOrStdout(), titled(m.Table(), "Correlation"))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&fields, "fields", "f", nil, "Measures in the matrix (default all)")
	return cmd
}

func newGroupMeanCmd(opts *options) *cobra.Command {
	var (
		by     string
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "group-mean",
		Short: "Average measures per value of a dimension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dim := domain.Dimension(by)
			if !dim.Valid() {
				return fmt.Errorf("unknown dimension %q", by)
			}
			parsed, err := parseFields(fields)
			if err != nil {
				return err
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			view, err := s.service.GroupMean(cmd.Context(), s.access, s.filters, dim, parsed)
			if err != nil {
				return err
			}
			renderTable(cmd.OutOrStdout(), titled(view.Table(), "Averages by "+by))
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", string(domain.DimensionAgencyAppointmentYear), "Dimension to group by")
	cmd.Flags().StringSliceVarP(&fields, "fields", "f", nil, "Measures to average (default all)")
	return cmd
}

func newHistogramCmd(opts *options) *cobra.Command {
	var (
		field string
		bins  int
		rng   string
	)
	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Count the values of one measure into equal-width bins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseFields([]string{field})
			if err != nil {
				return err
			}
			if bins < 1 {
				return fmt.Errorf("bins must be at least 1, got %d", bins)
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			view, err := s.service.Histogram(cmd.Context(), s.access, s.filters, parsed[0], bins, rng)
			if err != nil {
				return err
			}
			renderTable(cmd.OutOrStdout(), titled(view.Table(), "Distribution of "+field))
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", string(domain.FieldRetentionRatio), "Measure to bin")
	cmd.Flags().IntVar(&bins, "bins", 20, "Number of bins")
	cmd.Flags().StringVar(&rng, "range", dashboard.RangeFiltered, "Bin over the filtered rows or the full dataset (filtered|full)")
	return cmd
}

func newDashboardCmd(opts *options) *cobra.Command {
	var (
		layout string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Compute a whole dashboard layout",
		Long: `Compute every panel of a layout. Without --out the panels are printed.
An --out path ending in .xlsx receives a workbook with one sheet per panel;
any other path is a directory that receives one CSV per panel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			d, err := s.service.Build(cmd.Context(), s.access, layout, s.filters)
			if err != nil {
				return err
			}

			panels := d.Panels()
			tables := make([]domain.Table, 0, len(panels))
			for _, p := range panels {
				tables = append(tables, p.Table())
			}

			w := cmd.OutOrStdout()
			switch {
			case out == "":
				renderHeading(w, fmt.Sprintf("%s (%d records)", d.Title, d.Records))
				for _, t := range tables {
					renderTable(w, t)
				}
				return nil

			case strings.EqualFold(filepath.Ext(out), ".xlsx"):
				if err := s.files.ValidateOutputFile(out); err != nil {
					return err
				}
				if err := exporter.SaveWorkbook(out, tables); err != nil {
					return err
				}
				fmt.Fprintf(w, "Wrote %d sheets to %s\n", len(tables), out)
				return nil

			default:
				paths, err := config.GetPaths()
				if err != nil {
					return err
				}
				csv := exporter.NewCSVWriter(paths)
				if filepath.IsAbs(out) {
					if err := s.files.ValidateOutputDirectory(out); err != nil {
						return err
					}
				}
				written, err := csv.WriteTables(out, tables)
				if err != nil {
					return err
				}
				for _, path := range written {
					fmt.Fprintln(w, path)
				}
				return nil
			}
		},
	}
	cmd.Flags().StringVarP(&layout, "layout", "l", "retention", "Layout name")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Workbook (.xlsx) or CSV directory to write")
	return cmd
}

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to configure as security.access.token_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := access.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
