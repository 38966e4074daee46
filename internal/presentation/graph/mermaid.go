package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/scenestack/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of the transition history, bottom to top.
// It applies semantic styling:
// - Root: ((Circle))
// - Dialog: [/Parallelogram/]
// - Default: [Rectangle]
// Sleeping entries are dimmed and the active entry is highlighted.
func GenerateMermaid(entries []domain.Entry) string {
	var sb strings.Builder
	sb.WriteString("graph BT\n")

	active := -1
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].State == domain.StateProcessing {
			active = i
			break
		}
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = fmt.Sprintf("e%d_%s", i, sanitizeMermaidID(string(e.Type)))

		opener, closer := "[", "]"
		switch {
		case e.Dialog:
			opener, closer = "[/", "/]"
		case i == 0:
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", ids[i], opener, e.Type, e.State, closer)

		if i > 0 {
			// Dialogs hold a caller waiting below them.
			arrow := "-->"
			if e.Dialog {
				arrow = "-. awaits .->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", ids[i-1], arrow, ids[i])
		}
	}

	if len(entries) == 0 {
		return sb.String()
	}

	sb.WriteString("\n    %% State Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef sleep fill:#eceff1,stroke:#90a4ae,stroke-dasharray:4,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	for i, e := range entries {
		switch {
		case i == active:
			fmt.Fprintf(&sb, "    class %s current;\n", ids[i])
		case e.State == domain.StateSleep:
			fmt.Fprintf(&sb, "    class %s sleep;\n", ids[i])
		}
	}
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
