package schema

import (
	"fmt"
	"strings"
)

// Seed is the upstream information a placeholder is derived from: the stage
// name and the payload that stage would have been sent.
type Seed struct {
	Stage   string
	Payload map[string]any
}

// String returns the payload value for key when it is a string.
func (s Seed) String(key string) string {
	v, _ := s.Payload[key].(string)
	return v
}

// Strings returns the payload value for key as a list of strings. Non-string
// elements are skipped.
func (s Seed) Strings(key string) []string {
	switch v := s.Payload[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func (s Seed) tables() []string {
	if tables := s.Strings("tables"); len(tables) > 0 {
		return tables
	}
	return s.Strings("data_sources")
}

func synthesizeMessage(seed Seed) Result {
	msg := fmt.Sprintf("%s unavailable; continuing with a placeholder", seed.Stage)
	if uc := seed.String("use_case"); uc != "" {
		msg = fmt.Sprintf("%s (use case: %s)", msg, uc)
	}
	return &Message{Message: msg}
}

func synthesizeRows(seed Seed) Result {
	sources := seed.tables()
	data := make([]map[string]any, 0, len(sources))
	for _, src := range sources {
		data = append(data, map[string]any{
			"source":    src,
			"row_count": 0,
			"status":    "unavailable",
		})
	}
	return &Rows{Data: data}
}

func synthesizeQueries(seed Seed) Result {
	tables := seed.tables()
	queries := make([]Query, 0, len(tables))
	for _, t := range tables {
		queries = append(queries, Query{
			Table: t,
			SQL:   fmt.Sprintf("SELECT * FROM %s LIMIT 100", t),
		})
	}
	return &Queries{Queries: queries}
}

func synthesizeInsights(seed Seed) Result {
	rules := seed.Strings("business_rules")
	title := seed.String("use_case")
	if title == "" {
		title = "Overview"
	}

	if len(rules) == 0 {
		return &Insights{Insights: []Insight{{
			Title:   title,
			Summary: "Insights are unavailable for this run; no stage output could be analysed.",
		}}}
	}

	insights := make([]Insight, 0, len(rules))
	for i, rule := range rules {
		insights = append(insights, Insight{
			Title:   fmt.Sprintf("%s: rule %d", title, i+1),
			Summary: "Not evaluated: " + strings.TrimSpace(rule),
		})
	}
	return &Insights{Insights: insights}
}
