// Package render draws HTML pages from the layout plus a page template.
package render

import (
	"html/template"
	"net/http"
	"path/filepath"
)

// Dir is where page templates live, relative to the working directory.
var Dir = filepath.Join("web", "templates")

// Render writes the named page wrapped in the base layout.
func Render(w http.ResponseWriter, name string, data any) {
	files := []string{
		filepath.Join(Dir, "layout.html"),
		filepath.Join(Dir, name),
	}
	t := template.Must(template.ParseFiles(files...))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = t.ExecuteTemplate(w, "base", data)
}
