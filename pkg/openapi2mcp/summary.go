// summary.go
package openapi2mcp

import (
	"fmt"
	"io"
	"sort"
)

// PrintToolSummary writes the tool count, the split by method and the count per tag.
func PrintToolSummary(w io.Writer, reg *Registry, policy Policy) {
	tagCount := map[string]int{}
	methodCount := reg.MethodCounts()
	for _, t := range reg.Tools() {
		for _, tag := range t.Tags {
			tagCount[tag]++
		}
	}
	fmt.Fprintf(w, "Total tools: %d (%d permitted in %s mode)\n", reg.Len(), reg.CountAllowed(policy), policy.Mode())
	for _, m := range exposedMethods {
		if n := methodCount[m]; n > 0 {
			fmt.Fprintf(w, "  %-6s %d\n", m, n)
		}
	}
	if len(tagCount) == 0 {
		return
	}
	tags := make([]string, 0, len(tagCount))
	for tag := range tagCount {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	fmt.Fprintln(w, "Tags:")
	for _, tag := range tags {
		fmt.Fprintf(w, "  %s: %d\n", tag, tagCount[tag])
	}
}
