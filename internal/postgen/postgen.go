// Package postgen is the boundary to the external text-generation step. The
// core hands a change summary to a Generator and forwards the returned
// title/body verbatim; the generator's internals are out of scope here.
package postgen

import (
	"context"
	"sort"
	"strings"
	"text/template"
	"time"
)

// ChangeSummary describes what a finished project contributed.
type ChangeSummary struct {
	Slug       string
	FilesAdded []string
	PhotoCount int
	StartedAt  time.Time
}

// Post is the generated title/body pair for an integration request.
type Post struct {
	Title string
	Body  string
}

// Generator produces a Post from a ChangeSummary. It is treated as a pure
// function: same summary in, same post out, no side effects visible to the
// core.
type Generator interface {
	Generate(ctx context.Context, summary ChangeSummary) (Post, error)
}

var bodyTemplate = template.Must(template.New("post").Parse(`# {{.Title}}

Project started on {{.Started}} with {{.Count}} photos documented.

## Photos

{{range .Files}}![{{.}}](/{{$.Folder}}/{{.}})
{{end}}
## Summary

Project documentation and photos captured above.
`))

// TemplateGenerator is the deterministic offline generator used when no
// external text-generation step is wired in.
type TemplateGenerator struct{}

// Generate renders a plain gallery post from the summary.
func (TemplateGenerator) Generate(_ context.Context, summary ChangeSummary) (Post, error) {
	title := titleFor(summary.Slug)
	files := append([]string(nil), summary.FilesAdded...)
	sort.Strings(files)

	started := "recently"
	if !summary.StartedAt.IsZero() {
		started = summary.StartedAt.Format("2006-01-02")
	}

	var b strings.Builder
	err := bodyTemplate.Execute(&b, map[string]any{
		"Title":   title,
		"Started": started,
		"Count":   summary.PhotoCount,
		"Files":   files,
		"Folder":  "assets/images/" + summary.Slug,
	})
	if err != nil {
		return Post{}, err
	}
	return Post{Title: "Project: " + title, Body: b.String()}, nil
}

// titleFor turns a slug into a human title, dropping the date prefix.
func titleFor(slug string) string {
	name := slug
	if len(slug) > 11 {
		name = slug[11:]
	}
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
