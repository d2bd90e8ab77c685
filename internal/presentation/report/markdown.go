// Package report renders a run view as Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/schema"
)

// maxRows caps the rows printed for a tabular output.
const maxRows = 20

// Markdown renders v: a checklist of stages followed by every committed output.
func Markdown(v domain.View) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Run %s\n\n", v.RunID)

	for _, s := range v.Stages {
		fmt.Fprintf(&sb, "- %s **%d. %s** `%s`", marker(s), s.Index, title(s), s.State)
		if s.Output != nil && s.Output.Fallback {
			sb.WriteString(" _(placeholder)_")
		}
		if s.Token != "" {
			fmt.Fprintf(&sb, " (token `%s`, %d polls)", s.Token, s.Polls)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	for _, s := range v.Stages {
		if s.Output == nil {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", title(s))
		if s.Output.Fallback {
			fmt.Fprintf(&sb, "> Stage %s; showing a placeholder. %s\n\n", s.Output.Origin, s.Output.Reason)
		}
		writeResult(&sb, s.Output.Result)
	}

	switch {
	case v.Complete:
		sb.WriteString("---\n\nPipeline complete.\n")
	case v.Stage(v.CurrentStage) != nil:
		cur := v.Stage(v.CurrentStage)
		if cur.State.InFlight() {
			fmt.Fprintf(&sb, "---\n\nWaiting for **%s**.\n", title(*cur))
		} else {
			fmt.Fprintf(&sb, "---\n\nNext: **%s**.\n", title(*cur))
		}
	}
	return sb.String()
}

func title(s domain.StageView) string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

func marker(s domain.StageView) string {
	switch {
	case s.Output != nil && s.Output.Fallback:
		return "[!]"
	case s.Output != nil:
		return "[x]"
	case s.Current:
		return "[>]"
	}
	return "[ ]"
}

func writeResult(sb *strings.Builder, r schema.Result) {
	switch res := r.(type) {
	case *schema.Message:
		fmt.Fprintf(sb, "%s\n\n", res.Message)
	case *schema.Rows:
		writeRows(sb, res.Data)
	case *schema.Queries:
		if len(res.Queries) == 0 {
			sb.WriteString("_No queries._\n\n")
		}
		for _, q := range res.Queries {
			fmt.Fprintf(sb, "**%s**\n\n```sql\n%s\n```\n\n", q.Table, strings.TrimSpace(q.SQL))
		}
	case *schema.Insights:
		if len(res.Insights) == 0 {
			sb.WriteString("_No insights._\n\n")
		}
		for _, in := range res.Insights {
			fmt.Fprintf(sb, "### %s\n\n%s\n\n", in.Title, in.Summary)
		}
	default:
		sb.WriteString("_No output._\n\n")
	}
}

func writeRows(sb *strings.Builder, rows []map[string]any) {
	if len(rows) == 0 {
		sb.WriteString("_No rows._\n\n")
		return
	}
	cols := columns(rows)
	sb.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	for i, row := range rows {
		if i == maxRows {
			fmt.Fprintf(sb, "\n_%d more rows._\n", len(rows)-maxRows)
			break
		}
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = cell(row[c])
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	sb.WriteString("\n")
}

// columns returns the union of row keys, sorted.
func columns(rows []map[string]any) []string {
	seen := map[string]bool{}
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func cell(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case float64, int, bool:
		s = fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprint(t)
		} else {
			s = string(b)
		}
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
