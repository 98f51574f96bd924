// Package ui holds the server-rendered templates and static assets of the widget.
package ui

import "embed"

//go:embed templates static
var Files embed.FS
