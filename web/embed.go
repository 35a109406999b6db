// Package web holds the embedded templates and static assets served by the
// booking UI.
package web

import "embed"

//go:embed templates
var TemplatesFS embed.FS

//go:embed static
var StaticFS embed.FS
