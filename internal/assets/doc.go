// Package assets provides the CSS styles and HTML page template used by
// the Markdown preview.
//
// Built-in assets are embedded at compile time:
//
//	styles/
//	└── {name}.css      # default, github
//	templates/
//	└── page.html       # standalone page wrapper
//
// A style may also be a path to a .css file on disk; see ResolveStyle.
// Asset names are validated to prevent path traversal.
package assets
