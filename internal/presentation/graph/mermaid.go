// Package graph draws a run as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/ajayshanks/datagpt/pkg/domain"
)

// GenerateMermaid produces a left-to-right flowchart of the stages in v.
// Sync stages are rectangles and async stages are subroutines. Nodes are
// classed by progress: done, fallback, current or inflight.
func GenerateMermaid(v domain.View) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, s := range v.Stages {
		opener, closer := "[", "]"
		if s.Mode == domain.ModeAsync {
			opener, closer = "[[", "]]"
		}
		label := strings.ReplaceAll(s.Name, `"`, "'")
		if s.Polls > 0 {
			label += fmt.Sprintf(" <br/> polls: %d", s.Polls)
		}
		fmt.Fprintf(&sb, "    %s%s\"%d. %s\"%s\n", nodeID(s.Name), opener, s.Index, label, closer)
	}
	for i := 1; i < len(v.Stages); i++ {
		fmt.Fprintf(&sb, "    %s --> %s\n", nodeID(v.Stages[i-1].Name), nodeID(v.Stages[i].Name))
	}

	sb.WriteString("\n    classDef done fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef fallback fill:#ffe0b2,stroke:#e65100,stroke-width:2px,stroke-dasharray:4,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	sb.WriteString("    classDef inflight fill:#fff9c4,stroke:#fbc02d,stroke-width:4px,stroke-dasharray:4,color:#000;\n")

	for _, s := range v.Stages {
		if class := classOf(s); class != "" {
			fmt.Fprintf(&sb, "    class %s %s;\n", nodeID(s.Name), class)
		}
	}
	return sb.String()
}

func classOf(s domain.StageView) string {
	switch {
	case s.Current && s.State.InFlight():
		return "inflight"
	case s.Current:
		return "current"
	case s.Output != nil && s.Output.Fallback:
		return "fallback"
	case s.Output != nil:
		return "done"
	}
	return ""
}

func nodeID(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(name)
}
