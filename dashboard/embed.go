// Package dashboard provides the default status page template.
//
// The template is embedded at compile time so a fresh checkout renders a
// usable page before anyone has written a template.html of their own. It
// contains the {{STATUS}} and {{ACCOUNTS}} placeholders filled in by the
// render package.
package dashboard

import (
	"embed"
	"io/fs"
)

// TemplateName is the path of the default template inside [Assets].
const TemplateName = "assets/index.html"

// Assets is an embedded filesystem containing the page template.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Default template with inline CSS
//
//go:embed assets/*
var Assets embed.FS

// Template returns the default template contents.
func Template() string {
	data, err := fs.ReadFile(Assets, TemplateName)
	if err != nil {
		// the file is compiled in; a failure here means the build is broken
		panic("dashboard: missing embedded template: " + err.Error())
	}
	return string(data)
}
