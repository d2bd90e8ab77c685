package stages

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Catalog lists what a user may pick in the first stage.
type Catalog struct {
	DataSources []string `yaml:"data_sources" mapstructure:"data_sources" json:"data_sources"`
	UseCases    []string `yaml:"use_cases" mapstructure:"use_cases" json:"use_cases"`
	// TableSchema qualifies table names sent to the insights stage (schema.table).
	TableSchema string `yaml:"table_schema" mapstructure:"table_schema" json:"table_schema,omitempty"`
}

// DefaultCatalog returns the stock data sources and use cases.
func DefaultCatalog() Catalog {
	return Catalog{
		DataSources: []string{
			"iqvia_xpo_rx",
			"semarchy_cm_pub_m_hcp_profile",
			"semarchy_cm_pub_x_address",
			"zip_territory",
			"semarchy_cm_pub_x_hcp_address",
		},
		UseCases: []string{
			"Field Reporting",
			"IC Operations",
			"Segmentation",
		},
	}
}

// Table returns the table name for a data source.
func (c Catalog) Table(source string) string {
	if c.TableSchema == "" {
		return source
	}
	return c.TableSchema + "." + source
}

// Selection is the validated input of the first stage.
type Selection struct {
	DataSources   []string `mapstructure:"data_sources" json:"data_sources"`
	UseCase       string   `mapstructure:"use_case" json:"use_case"`
	BusinessRules []string `mapstructure:"business_rules" json:"business_rules"`
}

// ParseSelection decodes and validates raw first-stage input against c.
// Duplicate sources are collapsed and blank business rules are dropped.
func (c Catalog) ParseSelection(raw map[string]any) (Selection, error) {
	var sel Selection
	if err := mapstructure.Decode(raw, &sel); err != nil {
		return Selection{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	sources := make([]string, 0, len(sel.DataSources))
	for _, src := range sel.DataSources {
		src = strings.TrimSpace(src)
		if src == "" || slices.Contains(sources, src) {
			continue
		}
		if len(c.DataSources) > 0 && !slices.Contains(c.DataSources, src) {
			return Selection{}, fmt.Errorf("%w: unknown data source %q", domain.ErrInvalidInput, src)
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return Selection{}, fmt.Errorf("%w: select at least one data source", domain.ErrInvalidInput)
	}
	sel.DataSources = sources

	sel.UseCase = strings.TrimSpace(sel.UseCase)
	if sel.UseCase == "" {
		return Selection{}, fmt.Errorf("%w: select a use case", domain.ErrInvalidInput)
	}
	if len(c.UseCases) > 0 && !slices.Contains(c.UseCases, sel.UseCase) {
		return Selection{}, fmt.Errorf("%w: unknown use case %q", domain.ErrInvalidInput, sel.UseCase)
	}

	rules := make([]string, 0, len(sel.BusinessRules))
	for _, r := range sel.BusinessRules {
		if r = strings.TrimSpace(r); r != "" {
			rules = append(rules, r)
		}
	}
	sel.BusinessRules = rules
	return sel, nil
}
