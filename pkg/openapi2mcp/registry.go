package openapi2mcp

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Registry maps tool names to descriptors. It is filled once by Synthesize and is
// read-only afterwards, so concurrent readers need no locking.
type Registry struct {
	title   string
	version string
	tools   []*Tool
	byName  map[string]*Tool
}

func newRegistry(info *openapi3.Info) *Registry {
	r := &Registry{byName: map[string]*Tool{}}
	if info != nil {
		r.title = info.Title
		r.version = info.Version
	}
	return r
}

func (r *Registry) add(t *Tool) {
	r.tools = append(r.tools, t)
	r.byName[t.Name] = t
}

// Title returns the API title declared by the document.
func (r *Registry) Title() string { return r.title }

// Version returns the API version declared by the document.
func (r *Registry) Version() string { return r.version }

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Tools returns the descriptors in registry order (path, then method).
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns the tool names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// Listing returns the discovery view of every tool.
func (r *Registry) Listing() []ToolInfo {
	infos := make([]ToolInfo, len(r.tools))
	for i, t := range r.tools {
		infos[i] = ToolInfo{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	return infos
}

// CountAllowed returns how many tools the policy would permit.
func (r *Registry) CountAllowed(p Policy) int {
	n := 0
	for _, t := range r.tools {
		if p.Evaluate(t.Method).Allowed {
			n++
		}
	}
	return n
}

// MethodCounts returns the number of tools per HTTP method.
func (r *Registry) MethodCounts() map[Method]int {
	counts := map[Method]int{}
	for _, t := range r.tools {
		counts[t.Method]++
	}
	return counts
}
