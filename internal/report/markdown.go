package report

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the report in the chat-friendly markdown subset
// Discord understands.
func RenderMarkdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", sanitize(r.Title))
	fmt.Fprintf(&b, "_%s_\n", Source)
	for _, blk := range r.Blocks {
		fmt.Fprintf(&b, "\n**%s**\n", blk.Header)
		for _, l := range blk.Lines {
			fmt.Fprintf(&b, "- %s: %s\n", l.Label, sanitize(l.Value))
		}
		if blk.Text != "" {
			fmt.Fprintf(&b, "%s\n", strings.TrimSpace(blk.Text))
		}
	}
	fmt.Fprintf(&b, "\n_%s_\n", Footer)
	return b.String()
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
