package stages

import (
	"net/url"
	"time"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/schema"
)

// Stage names of the Data-to-Insights pipeline.
const (
	SubmitRequest    = "submit_request"
	ProfileSources   = "profile_sources"
	GenerateQueries  = "generate_queries"
	GenerateInsights = "generate_insights"
)

// Options parameterize the default table.
type Options struct {
	// BaseURL is joined with each stage name to form its endpoint.
	BaseURL      string
	Catalog      Catalog
	PollInterval time.Duration
	MaxWait      time.Duration
}

type requestPayload struct {
	DataSources   []string `json:"data_sources"`
	UseCase       string   `json:"use_case"`
	BusinessRules []string `json:"business_rules"`
}

type profilePayload struct {
	DataSources     []string `json:"data_sources"`
	UseCase         string   `json:"use_case"`
	Acknowledgement string   `json:"acknowledgement"`
}

type queriesPayload struct {
	DataSources   []string         `json:"data_sources"`
	BusinessRules []string         `json:"business_rules"`
	Profile       []map[string]any `json:"profile"`
}

type insightsPayload struct {
	Tables        []string       `json:"tables"`
	UseCase       string         `json:"use_case"`
	BusinessRules []string       `json:"business_rules"`
	Queries       []schema.Query `json:"queries"`
}

// DataToInsights returns the four-stage Data-to-Insights table.
func DataToInsights(opts Options) (*Table, error) {
	cat := opts.Catalog
	if len(cat.DataSources) == 0 && len(cat.UseCases) == 0 {
		cat = DefaultCatalog()
	}
	selection := func(up Upstream) (Selection, error) {
		in, err := up.Input(1)
		if err != nil {
			return Selection{}, err
		}
		return cat.ParseSelection(in)
	}

	return NewTable(
		Definition{
			Name:     SubmitRequest,
			Title:    "Select your data and use case",
			Mode:     domain.ModeSync,
			Endpoint: endpoint(opts.BaseURL, SubmitRequest),
			Schema:   schema.MustFor(schema.KindMessage),
			BuildPayload: func(up Upstream) (any, error) {
				sel, err := selection(up)
				if err != nil {
					return nil, err
				}
				return requestPayload{
					DataSources:   sel.DataSources,
					UseCase:       sel.UseCase,
					BusinessRules: sel.BusinessRules,
				}, nil
			},
		},
		Definition{
			Name:         ProfileSources,
			Title:        "Profile the selected sources",
			Mode:         domain.ModeAsync,
			Endpoint:     endpoint(opts.BaseURL, ProfileSources),
			Schema:       schema.MustFor(schema.KindRows),
			PollInterval: opts.PollInterval,
			MaxWait:      opts.MaxWait,
			BuildPayload: func(up Upstream) (any, error) {
				sel, err := selection(up)
				if err != nil {
					return nil, err
				}
				ack, err := OutputAs[*schema.Message](up, 1)
				if err != nil {
					return nil, err
				}
				return profilePayload{
					DataSources:     sel.DataSources,
					UseCase:         sel.UseCase,
					Acknowledgement: ack.Message,
				}, nil
			},
		},
		Definition{
			Name:         GenerateQueries,
			Title:        "Generate queries",
			Mode:         domain.ModeAsync,
			Endpoint:     endpoint(opts.BaseURL, GenerateQueries),
			Schema:       schema.MustFor(schema.KindQueries),
			PollInterval: opts.PollInterval,
			MaxWait:      opts.MaxWait,
			BuildPayload: func(up Upstream) (any, error) {
				sel, err := selection(up)
				if err != nil {
					return nil, err
				}
				profile, err := OutputAs[*schema.Rows](up, 2)
				if err != nil {
					return nil, err
				}
				rows := profile.Data
				if rows == nil {
					rows = []map[string]any{}
				}
				return queriesPayload{
					DataSources:   sel.DataSources,
					BusinessRules: sel.BusinessRules,
					Profile:       rows,
				}, nil
			},
		},
		Definition{
			Name:     GenerateInsights,
			Title:    "Generate insights",
			Mode:     domain.ModeSync,
			Endpoint: endpoint(opts.BaseURL, GenerateInsights),
			Schema:   schema.MustFor(schema.KindInsights),
			BuildPayload: func(up Upstream) (any, error) {
				sel, err := selection(up)
				if err != nil {
					return nil, err
				}
				qs, err := OutputAs[*schema.Queries](up, 3)
				if err != nil {
					return nil, err
				}
				tables := make([]string, len(sel.DataSources))
				for i, src := range sel.DataSources {
					tables[i] = cat.Table(src)
				}
				queries := qs.Queries
				if queries == nil {
					queries = []schema.Query{}
				}
				return insightsPayload{
					Tables:        tables,
					UseCase:       sel.UseCase,
					BusinessRules: sel.BusinessRules,
					Queries:       queries,
				}, nil
			},
		},
	)
}

func endpoint(base, name string) string {
	if base == "" {
		return name
	}
	u, err := url.JoinPath(base, name)
	if err != nil {
		return base
	}
	return u
}
