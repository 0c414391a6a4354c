// Package view renders the HTML pages of the front end.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer satisfies echo.Renderer with the embedded templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses every embedded template once.
func NewRenderer() (*Renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"formatDate":    formatDate,
		"formatOptDate": formatOptDate,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Local().Format("02/01/2006 15:04:05")
}

func formatOptDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return formatDate(*t)
}
