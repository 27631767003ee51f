// Package render turns a delivered purchase into document bytes.
package render

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/catalog"
)

const (
	TemplateSummary = "summary"
	TemplateScored  = "scored"
)

// Data is what both templates see. Score is nil for the summary document.
type Data struct {
	PurchaseID string
	UserID     string
	Product    catalog.Product
	Amount     string
	IssuedAt   time.Time
	Score      *catalog.Scorecard
}

const summaryTmpl = `{{.Product.Name}}
{{if .Product.Description}}{{.Product.Description}}
{{end}}
Purchase: {{.PurchaseID}}
Issued:   {{.IssuedAt.Format "2006-01-02 15:04 MST"}}
Amount:   {{.Amount}}

{{range $i, $q := .Product.Questions}}{{inc $i}}. {{$q.Question}}
{{range $j, $o := $q.Options}}   {{letter $j}}) {{$o}}
{{end}}
{{end}}`

const scoredTmpl = `{{.Product.Name}} - results
Purchase: {{.PurchaseID}}
Issued:   {{.IssuedAt.Format "2006-01-02 15:04 MST"}}
Score:    {{.Score.Correct}}/{{len .Score.Results}} ({{.Score.Percent}}%)

{{range $i, $r := .Score.Results}}{{inc $i}}. {{$r.Question}}
   your answer:    {{$r.UserAnswer}}
   correct answer: {{$r.CorrectAnswer}} {{if $r.IsCorrect}}[correct]{{else}}[wrong]{{end}}
{{end}}`

var funcs = template.FuncMap{
	"inc":    func(i int) int { return i + 1 },
	"letter": func(i int) string { return string(rune('A' + i)) },
}

// Renderer is the in-process document renderer.
type Renderer struct {
	tmpl *template.Template
}

func New() *Renderer {
	t := template.Must(template.New(TemplateSummary).Funcs(funcs).Parse(summaryTmpl))
	template.Must(t.New(TemplateScored).Parse(scoredTmpl))
	return &Renderer{tmpl: t}
}

func (r *Renderer) Render(ctx context.Context, name string, data Data) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == TemplateScored && data.Score == nil {
		return nil, fmt.Errorf("render %s: missing scorecard", name)
	}
	t := r.tmpl.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("render: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), ctx.Err()
}
