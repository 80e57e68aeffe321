package audit

import "strings"

// ActionResource holds action and resource derived from an API route path.
type ActionResource struct {
	Action   string
	Resource string
}

// ParsePath returns action and resource for a callable route path
// (e.g. /v1/invoices/delete -> delete/invoice). The resource is the
// singular of the path's collection segment; the action is the final segment.
func ParsePath(path string) ActionResource {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	// expected shape: v1/<collection>/<action>
	if len(parts) < 3 || parts[0] != "v1" {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	resource := singular(parts[1])
	action := strings.ToLower(parts[len(parts)-1])
	if action == "" {
		action = "unknown"
	}
	return ActionResource{Action: action, Resource: resource}
}

func singular(collection string) string {
	s := strings.ToLower(collection)
	if s == "" {
		return "unknown"
	}
	if strings.HasSuffix(s, "s") && len(s) > 1 {
		return s[:len(s)-1]
	}
	return s
}
