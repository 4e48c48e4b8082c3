package pipeline

import (
	"bytes"
	"html/template"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/contentpilot/api/internal/model"
)

var documentTemplate = template.Must(template.New("article").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta name="description" content="{{.MetaDescription}}">
<meta name="author" content="{{.Author}}">
<meta name="generator" content="ContentPilot ({{.Provider}})">
</head>
<body>
<article>
<header>
<h1>{{.Title}}</h1>
<p class="byline">By {{.Author}} &middot; <time datetime="{{.Published}}">{{.PublishedHuman}}</time> &middot; {{.WordCount}} words</p>
</header>
{{.Body}}
</article>
</body>
</html>
`))

// RenderDocument wraps the article body in a standalone HTML page
func RenderDocument(r *model.ContentResult) (string, error) {
	published := r.PublishedAt
	if published.IsZero() {
		published = time.Now().UTC()
	}

	var buf bytes.Buffer
	err := documentTemplate.Execute(&buf, struct {
		Title           string
		MetaDescription string
		Author          string
		Provider        string
		Published       string
		PublishedHuman  string
		WordCount       int
		Body            template.HTML
	}{
		Title:           r.Title,
		MetaDescription: r.MetaDescription,
		Author:          r.Author,
		Provider:        r.Provider,
		Published:       published.Format(time.RFC3339),
		PublishedHuman:  published.Format("January 2, 2006"),
		WordCount:       r.WordCount,
		// content comes from the generation router, not from request input
		Body: template.HTML(r.Content),
	})
	if err != nil {
		return "", errors.Wrap(err, "render article document")
	}
	return buf.String(), nil
}
