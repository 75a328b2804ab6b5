package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	"talkregistration/internal/domain"
)

//go:embed templates
var templateFS embed.FS

// Each email is three files: <name>_subject.txt, <name>.txt and <name>.html.
type templateRenderer struct {
	text *template.Template
	html *htmltemplate.Template
}

// NewTemplateRenderer parses the embedded templates. Dates and times are
// shown in venue, or UTC when venue is nil.
func NewTemplateRenderer(venue *time.Location) (domain.EmailTemplateRenderer, error) {
	if venue == nil {
		venue = time.UTC
	}
	funcs := map[string]any{
		"date":  func(t time.Time) string { return t.In(venue).Format("Monday, January 2, 2006") },
		"clock": func(t time.Time) string { return t.In(venue).Format("15:04") },
		"join":  strings.Join,
	}
	text, err := template.New("text").Funcs(funcs).ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.New("html").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &templateRenderer{text: text, html: html}, nil
}

func (r *templateRenderer) Render(name string, data any) (subject, htmlBody, textBody string, err error) {
	var buf bytes.Buffer
	if err := r.text.ExecuteTemplate(&buf, name+"_subject.txt", data); err != nil {
		return "", "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := r.html.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	htmlBody = buf.String()

	buf.Reset()
	if err := r.text.ExecuteTemplate(&buf, name+".txt", data); err != nil {
		return "", "", "", fmt.Errorf("render %s text: %w", name, err)
	}
	return subject, htmlBody, buf.String(), nil
}
