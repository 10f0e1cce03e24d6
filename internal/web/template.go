package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadTemplate parses the page templates for gin's HTML renderer.
func LoadTemplate() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}
