package guard

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/rotguard/pkg/drift"
	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

// buildSummary renders the status block an agent prepends to its
// prompt. Sections with nothing to report are omitted.
func buildSummary(project string, h health.ContextHealth, d drift.Result, criticalBlock string) string {
	var b strings.Builder

	b.WriteString("=== CONTEXT HEALTH ===\n")
	fmt.Fprintf(&b, "Project: %s\n", project)
	fmt.Fprintf(&b, "Status: %s\n", strings.ToUpper(string(h.Health)))
	fmt.Fprintf(&b, "Tokens: %d/%d (%.1f%% used)\n", h.TokensUsed, h.TokensLimit, h.UtilizationPercent)
	fmt.Fprintf(&b, "Drift score: %.2f\n", h.DriftScore)
	if h.CompactionNeeded {
		b.WriteString("Compaction needed: yes\n")
	}
	for _, s := range h.Suggestions {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	if d.DriftDetected || len(d.SuggestedReminders) > 0 {
		b.WriteString("\n=== DRIFT ===\n")
		if len(d.MissingRequirements) > 0 {
			b.WriteString("Unaddressed requirements:\n")
			for _, r := range d.MissingRequirements {
				fmt.Fprintf(&b, "- %s\n", r)
			}
		}
		for _, c := range d.Contradictions {
			fmt.Fprintf(&b, "Contradiction (%s): %q vs %q\n", c.Severity, c.Earlier, c.Later)
		}
		if len(d.SuggestedReminders) > 0 {
			b.WriteString("Reminders:\n")
			for _, r := range d.SuggestedReminders {
				fmt.Fprintf(&b, "- %s\n", r)
			}
		}
	}

	if criticalBlock != "" {
		b.WriteString("\n=== CRITICAL CONTEXT ===\n")
		b.WriteString(criticalBlock)
		b.WriteByte('\n')
	}

	return strings.TrimSuffix(b.String(), "\n")
}
