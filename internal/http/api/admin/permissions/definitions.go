// Package permissions declares the admin route permission catalog.
package permissions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

const adminPrefix = "/v0/admin"

// Definition describes one permission-gated admin route.
type Definition struct {
	Key    string
	Method string
	Path   string
	Label  string
	Module string
}

var definitions = []Definition{
	def("GET", "/admins", "List admins", "Admins"),
	def("POST", "/admins", "Create admin", "Admins"),
	def("GET", "/admins/:id", "View admin", "Admins"),
	def("PUT", "/admins/:id", "Update admin", "Admins"),
	def("DELETE", "/admins/:id", "Delete admin", "Admins"),
	def("POST", "/admins/:id/disable", "Disable admin", "Admins"),
	def("POST", "/admins/:id/enable", "Enable admin", "Admins"),
	def("PUT", "/admins/:id/password", "Reset admin password", "Admins"),
	def("GET", "/permissions", "List permissions", "Admins"),

	def("GET", "/models", "List models", "Models"),
	def("POST", "/models", "Create model", "Models"),
	def("GET", "/models/:id", "View model", "Models"),
	def("PUT", "/models/:id", "Update model", "Models"),
	def("DELETE", "/models/:id", "Delete model", "Models"),
	def("POST", "/models/generate-bio", "Generate model bio", "Models"),
	def("POST", "/models/generate-teaser", "Generate vault teaser", "Models"),

	def("GET", "/payments", "List payment requests", "Payments"),
	def("POST", "/payments/:id/approve", "Approve payment", "Payments"),
	def("POST", "/payments/:id/reject", "Reject payment", "Payments"),

	def("GET", "/withdrawals", "List withdraw requests", "Withdrawals"),
	def("POST", "/withdrawals/:id/approve", "Approve withdrawal", "Withdrawals"),
	def("POST", "/withdrawals/:id/reject", "Reject withdrawal", "Withdrawals"),

	def("GET", "/users", "List users", "Users"),
	def("GET", "/users/:id", "View user", "Users"),
	def("POST", "/users/:id/credits", "Grant credits", "Users"),
	def("POST", "/users/:id/disable", "Disable user", "Users"),
	def("POST", "/users/:id/enable", "Enable user", "Users"),

	def("GET", "/dashboard/stats", "View dashboard stats", "Dashboard"),
	def("GET", "/stream", "Subscribe to live queues", "Dashboard"),

	def("GET", "/settings", "View settings", "Settings"),
	def("PUT", "/settings", "Update settings", "Settings"),
}

func def(method, path, label, module string) Definition {
	full := adminPrefix + path
	return Definition{Key: Key(method, full), Method: method, Path: full, Label: label, Module: module}
}

// Key builds the permission key for a method and full route path.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns a copy of all permission definitions.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap indexes definitions by key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		out[d.Key] = d
	}
	return out
}

// ParsePermissions decodes a stored permission list. Invalid JSON yields nil.
func ParsePermissions(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if errUnmarshal := json.Unmarshal(raw, &out); errUnmarshal != nil {
		return nil
	}
	return out
}

// NormalizePermissions trims, dedupes and sorts keys.
func NormalizePermissions(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}

// ValidatePermissions rejects keys that do not match a definition.
func ValidatePermissions(in []string) error {
	known := DefinitionMap()
	for _, p := range in {
		if _, ok := known[p]; !ok {
			return fmt.Errorf("permissions: unknown key %q", p)
		}
	}
	return nil
}

// MarshalPermissions encodes keys for storage.
func MarshalPermissions(in []string) (datatypes.JSON, error) {
	if in == nil {
		in = []string{}
	}
	raw, errMarshal := json.Marshal(in)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(raw), nil
}

// HasPermission reports whether key is granted.
func HasPermission(granted []string, key string) bool {
	for _, p := range granted {
		if p == key {
			return true
		}
	}
	return false
}
