package frontend

import (
	"embed"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const viewsPattern = "views/*.html"

//go:embed views/*.html
var templateFS embed.FS

//go:embed views/*.js views/*.svg views/*.css
var assetsFS embed.FS

// Template implements echo.Renderer over html/template.
type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

func newTemplate() *Template {
	funcs := template.FuncMap{
		"isImage": func(mimeType string) bool { return strings.HasPrefix(mimeType, "image/") },
		"isVideo": func(mimeType string) bool { return strings.HasPrefix(mimeType, "video/") },
		"date":    func(t time.Time) string { return t.Format("2006-01-02") },
	}
	return &Template{
		templates: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, viewsPattern)),
	}
}
