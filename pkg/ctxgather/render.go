package ctxgather

import (
	"fmt"
	"strings"
)

// Render formats the snapshot into the system message body the session
// and run executors embed verbatim (§4.7.2 step 3): one section per
// non-empty subsection, in a fixed order.
func (s Snapshot) Render() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("WORKSPACE: %s\nGENERATED AT: %s\n", s.Workspace, s.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")))

	if s.AgentsMD != "" {
		b.WriteString("\nAGENTS.md:\n")
		b.WriteString(s.AgentsMD)
		if !strings.HasSuffix(s.AgentsMD, "\n") {
			b.WriteString("\n")
		}
	}

	if len(s.RepoTree) > 0 {
		b.WriteString(fmt.Sprintf("\nREPO TREE (%d entries):\n", len(s.RepoTree)))
		for _, p := range s.RepoTree {
			b.WriteString(p)
			b.WriteString("\n")
		}
	}

	if len(s.RepoMap) > 0 {
		b.WriteString(fmt.Sprintf("\nREPO MAP (%d symbols):\n", len(s.RepoMap)))
		currentFile := ""
		for _, sym := range s.RepoMap {
			if sym.File != currentFile {
				b.WriteString(sym.File + ":\n")
				currentFile = sym.File
			}
			b.WriteString(fmt.Sprintf("  %d: %s\n", sym.Line, sym.Name))
		}
	}

	if s.GitStatus != "" {
		b.WriteString("\nGIT STATUS:\n")
		b.WriteString(s.GitStatus)
		if !strings.HasSuffix(s.GitStatus, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String()
}
