package openapi2mcp

import (
	"regexp"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)
	nameCharRe    = regexp.MustCompile(`[^A-Za-z0-9_]`)
	underscoresRe = regexp.MustCompile(`_{2,}`)
)

// methodPrefix follows the remote API's verb convention: PUT creates, POST updates.
var methodPrefix = map[Method]string{
	MethodGet:    "",
	MethodPost:   "update_",
	MethodPut:    "create_",
	MethodDelete: "delete_",
	MethodPatch:  "patch_",
}

// ToolName derives the tool name for an operation from its path template and method.
//
// The leading slash is dropped, "/" and "-" become "_", each "{param}" becomes
// "by_param", any other character outside [A-Za-z0-9_] becomes "_", runs of "_"
// collapse, and a verb prefix is added for non-GET methods. The root path maps to
// "health_check".
//
//	GET    /org/{orgId}/site  -> org_by_orgId_site
//	PUT    /org/{orgId}/site  -> create_org_by_orgId_site
//	DELETE /site/{siteId}     -> delete_site_by_siteId
//	GET    /                  -> health_check
func ToolName(path string, method Method) string {
	name := strings.TrimLeft(path, "/")
	name = strings.NewReplacer("/", "_", "-", "_").Replace(name)
	name = placeholderRe.ReplaceAllString(name, "by_$1")
	name = nameCharRe.ReplaceAllString(name, "_")
	name = underscoresRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "health_check"
	}
	return methodPrefix[method] + name
}

// PathPlaceholders returns the placeholder names of a path template in order.
func PathPlaceholders(path string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(path, -1) {
		names = append(names, m[1])
	}
	return names
}
