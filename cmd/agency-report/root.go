package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"agencypulse/internal/access"
	"agencypulse/internal/config"
	"agencypulse/internal/dashboard"
	"agencypulse/internal/dataprocessing"
	"agencypulse/internal/infrastructure"
	"agencypulse/internal/services"
	"agencypulse/internal/validation"
	"agencypulse/pkg/contracts"
	"agencypulse/pkg/contracts/domain"
)

// options are the flags shared by every analytics command.
type options struct {
	data        string
	layoutsFile string
	year        string
	prodLine    string
	high        float64
	medium      float64
	verbose     bool
}

// session is what a command needs once the dataset is loaded.
type session struct {
	service *services.DashboardService
	files   *validation.FileValidator
	filters dataprocessing.FilterSpec
	access  access.Context
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "agency-report",
		Short:        "Agency performance analytics from the command line",
		Version:      contracts.FullVersion(),
		SilenceUsage: true,
		Long: `Load an agency performance dataset and print the same analytics the
dashboard server computes:

  summary       headline KPIs
  segments      measure averages per retention level
  correlation   Pearson matrix of the measures
  group-mean    measure averages per dimension value
  histogram     distribution of one measure
  dashboard     a whole layout, printed or exported`,
	}

	root.SetVersionTemplate("{{.Version}}\n")

	defaults := config.Default().Data
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.data, "data", "d", defaults.Path, "Dataset file (.csv or .xlsx)")
	pf.StringVar(&opts.layoutsFile, "layouts", "", "YAML file with extra dashboard layouts")
	pf.StringVarP(&opts.year, "year", "y", dataprocessing.AllValues, "Agency appointment year filter")
	pf.StringVarP(&opts.prodLine, "prod-line", "p", dataprocessing.AllValues, "Product line filter")
	pf.Float64Var(&opts.high, "high", defaults.RetentionHigh, "Retention ratio at or above which a record is High")
	pf.Float64Var(&opts.medium, "medium", defaults.RetentionMedium, "Retention ratio at or above which a record is Medium")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")

	root.AddCommand(
		newSummaryCmd(opts),
		newSegmentsCmd(opts),
		newCorrelationCmd(opts),
		newGroupMeanCmd(opts),
		newHistogramCmd(opts),
		newDashboardCmd(opts),
		newHashTokenCmd(),
	)
	return root
}

// open loads the dataset and layouts and builds the service the commands
// query. The CLI reads local files, so it runs with trusted access.
func (o *options) open(cmd *cobra.Command) (*session, error) {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelInfo
	}
	logger := infrastructure.NewLogger(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})

	policy := dataprocessing.RetentionPolicy{High: o.high, Medium: o.medium}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	files := validation.NewFileValidator(logger)
	dataPath := config.ResolvePath(o.data)
	if err := files.ValidateDataset(dataPath); err != nil {
		return nil, err
	}
	ds, err := dataprocessing.LoadFile(dataPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Dataset loaded", slog.String("source", ds.Source()), slog.Int("records", ds.Len()))

	layoutsFile := o.layoutsFile
	if layoutsFile != "" {
		layoutsFile = config.ResolvePath(layoutsFile)
		if err := files.ValidateLayoutsFile(layoutsFile); err != nil {
			return nil, err
		}
	}
	reg, err := dashboard.LoadRegistry(layoutsFile)
	if err != nil {
		return nil, err
	}

	filters := dataprocessing.Selection(map[string]string{
		string(domain.DimensionAgencyAppointmentYear): o.year,
		string(domain.DimensionProdLine):              o.prodLine,
	})
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	return &session{
		service: services.NewDashboardService(ds, reg, services.DashboardOptions{Policy: policy}, logger),
		files:   files,
		filters: filters,
		access:  access.Trusted,
	}, nil
}

// parseFields checks measure names given on the command line.
func parseFields(names []string) ([]domain.Field, error) {
	fields := make([]domain.Field, 0, len(names))
	for _, name := range names {
		f := domain.Field(name)
		if !f.Valid() {
			return nil, fmt.Errorf("unknown measure %q", name)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
