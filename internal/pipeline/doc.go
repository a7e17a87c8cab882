// Package pipeline implements the Markdown-to-HTML preview pipeline.
//
// The stages are:
//   - Markdown preprocessing (line endings, byte order mark)
//   - Markdown to HTML conversion via goldmark, with svgbob fences
//     rendered through a DiagramFunc and other code highlighted by chroma
//   - Path rewriting so images resolve from the output directory
//   - Page templating with an inline stylesheet
//
// Diagram rendering itself lives in the root svgbob package; this package
// only finds the fences and places the resulting images.
package pipeline
