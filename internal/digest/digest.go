// Package digest renders search results as a markdown digest.
package digest

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"zerocrash/internal/model"
)

// Data is the digest input.
type Data struct {
	Title     string
	Query     string
	Generated string
	Degraded  bool
	Items     []model.ContentItem
}

//go:embed digest.tmpl
var digestTpl string

var sourceNames = map[model.Source]string{
	model.SourceGoogleNews: "Google News",
	model.SourceYouTube:    "YouTube",
	model.SourceReddit:     "Reddit",
	model.SourceMock:       "Mock",
}

var compiled = template.Must(template.New("digest").Funcs(template.FuncMap{
	"inc":    func(i int) int { return i + 1 },
	"date":   func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
	"score":  func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"source": func(s model.Source) string { return SourceName(s) },
}).Parse(digestTpl))

// SourceName returns the display name of s.
func SourceName(s model.Source) string {
	if n, ok := sourceNames[s]; ok {
		return n
	}
	return string(s)
}

// ExpandVars substitutes {.CurrentDate} (YYYY-MM-DD, UTC) and {.Query} in
// s.
func ExpandVars(s, query string, now time.Time) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	r := strings.NewReplacer("{.CurrentDate}", now.UTC().Format("2006-01-02"), "{.Query}", query)
	return r.Replace(s)
}

// Render produces the digest. An empty title defaults to one naming the
// query and date.
func Render(d Data, now time.Time) (string, error) {
	if d.Title == "" {
		d.Title = "zerocrash: {.Query} ({.CurrentDate})"
	}
	d.Title = escape(ExpandVars(d.Title, d.Query, now))
	d.Query = escape(d.Query)
	if d.Generated == "" {
		d.Generated = now.UTC().Format(time.RFC3339)
	}
	var buf bytes.Buffer
	if err := compiled.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// escape keeps values safe inside double-quoted YAML scalars.
func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
