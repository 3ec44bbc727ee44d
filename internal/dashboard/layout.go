package dashboard

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"agencypulse/internal/config"
	"agencypulse/pkg/contracts/domain"
)

// Kind selects the pipeline operation behind a panel.
type Kind string

const (
	KindKPI         Kind = "kpi"
	KindHistogram   Kind = "histogram"
	KindTrend       Kind = "trend"
	KindGroupSum    Kind = "group_sum"
	KindBinnedMean  Kind = "binned_mean"
	KindScatter     Kind = "scatter"
	KindCorrelation Kind = "correlation"
	KindSegments    Kind = "segments"
)

// Kinds lists every panel kind.
var Kinds = []Kind{
	KindKPI, KindHistogram, KindTrend, KindGroupSum,
	KindBinnedMean, KindScatter, KindCorrelation, KindSegments,
}

// Bin ranges. RangeFull bins over the unfiltered dataset so the edges stay
// put while filters change.
const (
	RangeFiltered = "filtered"
	RangeFull     = "full"
)

// ErrInvalidLayout wraps every layout validation failure.
var ErrInvalidLayout = errors.New("invalid dashboard layout")

// PanelSpec describes one panel. Which fields apply depends on Kind.
type PanelSpec struct {
	ID      string           `yaml:"id" json:"id" validate:"required,max=31"`
	Kind    Kind             `yaml:"kind" json:"kind" validate:"required"`
	Title   string           `yaml:"title" json:"title"`
	Chart   string           `yaml:"chart,omitempty" json:"chart,omitempty" validate:"omitempty,oneof=metric bar line pie histogram scatter heatmap table"`
	Field   domain.Field     `yaml:"field,omitempty" json:"field,omitempty"`
	Fields  []domain.Field   `yaml:"fields,omitempty" json:"fields,omitempty"`
	GroupBy domain.Dimension `yaml:"group_by,omitempty" json:"group_by,omitempty"`
	Value   domain.Field     `yaml:"value,omitempty" json:"value,omitempty"`
	Bins    int              `yaml:"bins,omitempty" json:"bins,omitempty" validate:"min=0"`
	Range   string           `yaml:"range,omitempty" json:"range,omitempty" validate:"omitempty,oneof=filtered full"`
	X       domain.Field     `yaml:"x,omitempty" json:"x,omitempty"`
	Y       domain.Field     `yaml:"y,omitempty" json:"y,omitempty"`
	Size    domain.Field     `yaml:"size,omitempty" json:"size,omitempty"`
	Color   domain.Field     `yaml:"color,omitempty" json:"color,omitempty"`
}

// Tab is a titled group of panels.
type Tab struct {
	Title  string      `yaml:"title" json:"title" validate:"required"`
	Panels []PanelSpec `yaml:"panels" json:"panels" validate:"required,min=1,dive"`
}

// Layout is a named dashboard: tabs of panels over one filtered view.
type Layout struct {
	Name        string `yaml:"name" json:"name" validate:"required,max=64"`
	Title       string `yaml:"title" json:"title" validate:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Tabs        []Tab  `yaml:"tabs" json:"tabs" validate:"required,min=1,dive"`
}

// Panels returns the panels of every tab in order.
func (l Layout) Panels() []PanelSpec {
	var out []PanelSpec
	for _, tab := range l.Tabs {
		out = append(out, tab.Panels...)
	}
	return out
}

// Panel finds a panel by ID.
func (l Layout) Panel(id string) (PanelSpec, bool) {
	for _, p := range l.Panels() {
		if p.ID == id {
			return p, true
		}
	}
	return PanelSpec{}, false
}

var (
	layoutValidator     *validator.Validate
	layoutValidatorOnce sync.Once
)

func structValidator() *validator.Validate {
	layoutValidatorOnce.Do(func() {
		layoutValidator = validator.New(validator.WithRequiredStructEnabled())
		layoutValidator.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return layoutValidator
}

// Validate checks the struct rules, panel ID uniqueness and the
// kind-specific parameters of every panel.
func (l Layout) Validate() error {
	if err := structValidator().Struct(l); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w %q: %s", ErrInvalidLayout, l.Name, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w %q: %v", ErrInvalidLayout, l.Name, err)
	}

	seen := make(map[string]bool)
	for _, p := range l.Panels() {
		if seen[p.ID] {
			return fmt.Errorf("%w %q: duplicate panel id %q", ErrInvalidLayout, l.Name, p.ID)
		}
		seen[p.ID] = true
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w %q: panel %q: %v", ErrInvalidLayout, l.Name, p.ID, err)
		}
	}
	return nil
}

// Validate checks the parameters Kind needs.
func (p PanelSpec) Validate() error {
	switch p.Kind {
	case KindKPI:
		return nil
	case KindHistogram:
		return firstError(measure("field", p.Field), bins(p.Bins))
	case KindTrend:
		return firstError(dimension(p.GroupBy), measures(p.Fields, 1))
	case KindGroupSum:
		return firstError(dimension(p.GroupBy), measure("field", p.Field))
	case KindBinnedMean:
		return firstError(measure("field", p.Field), measure("value", p.Value), bins(p.Bins))
	case KindScatter:
		return firstError(measure("x", p.X), measure("y", p.Y),
			optionalMeasure("size", p.Size), optionalMeasure("color", p.Color))
	case KindCorrelation:
		if len(p.Fields) == 0 {
			return nil
		}
		return measures(p.Fields, 2)
	case KindSegments:
		return measures(p.Fields, 1)
	default:
		return fmt.Errorf("unknown kind %q", p.Kind)
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func measure(name string, f domain.Field) error {
	if f == "" {
		return fmt.Errorf("%s is required", name)
	}
	if !f.Valid() {
		return fmt.Errorf("%s: unknown measure %q", name, f)
	}
	return nil
}

func optionalMeasure(name string, f domain.Field) error {
	if f == "" {
		return nil
	}
	return measure(name, f)
}

func measures(fields []domain.Field, min int) error {
	if len(fields) < min {
		return fmt.Errorf("needs at least %d fields", min)
	}
	for _, f := range fields {
		if err := measure("fields", f); err != nil {
			return err
		}
	}
	return nil
}

func dimension(d domain.Dimension) error {
	if d == "" {
		return errors.New("group_by is required")
	}
	if !d.Valid() {
		return fmt.Errorf("group_by: unknown dimension %q", d)
	}
	return nil
}

func bins(n int) error {
	if n < 1 || n > config.MaxBins {
		return fmt.Errorf("bins must be between 1 and %d", config.MaxBins)
	}
	return nil
}

// layoutFile is the document shape of a layouts YAML file.
type layoutFile struct {
	Layouts []Layout `yaml:"layouts"`
}

// LoadFile reads and validates the layouts in a YAML file.
func LoadFile(path string) ([]Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layouts file %s: %w", path, err)
	}

	var doc layoutFile
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("parse layouts file %s: %w", path, err)
	}

	for _, l := range doc.Layouts {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Layouts, nil
}
