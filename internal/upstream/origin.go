// Package upstream models the two backend bundler services whose output
// bundlemux aggregates, and manages their lifecycle when they run as child
// processes.
package upstream

import "strings"

// Origin is one of the two backend services: a base URL plus the
// sub-resource paths it serves. Both instances are fixed at startup and
// immutable for the process lifetime.
type Origin struct {
	Name     string
	BaseURL  string
	CodePath string
	MapPath  string
}

// CodeURL returns the absolute URL of the origin's code endpoint.
func (o Origin) CodeURL() string { return joinURL(o.BaseURL, o.CodePath) }

// MapURL returns the absolute URL of the origin's source map endpoint.
func (o Origin) MapURL() string { return joinURL(o.BaseURL, o.MapPath) }

func joinURL(base, p string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(p, "/")
}
