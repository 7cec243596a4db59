package notifier

import (
	"fmt"
	"strings"

	"github.com/DrSkyle/idlewatch/pkg/finding"
)

// Subject is the fixed notification subject line.
const Subject = "AWS Unused Resources Report"

// BuildMessage renders the plain-text summary: where the report lives, one
// bullet per finding, and the total. Email is the usual last hop, so no
// markup.
func BuildMessage(findings []finding.Finding, location string) string {
	var b strings.Builder

	b.WriteString(Subject + "\n\n")

	if location != "" {
		fmt.Fprintf(&b, "Report: %s\n\n", location)
	} else {
		b.WriteString("No report stored.\n\n")
	}

	b.WriteString("Summary of Unused Resources:\n")
	if len(findings) == 0 {
		b.WriteString("No unused resources found.\n")
	} else {
		for _, f := range findings {
			fmt.Fprintf(&b, "- %s: %s (region: %s)\n", f.Type, f.ID, f.Region)
		}
	}

	fmt.Fprintf(&b, "\nTotal Unused Resources: %d\n", len(findings))
	return b.String()
}
