package view

import (
	"bytes"
	"html/template"
)

// DocsPageData provides the dynamic fields required by the docs template.
type DocsPageData struct {
	Title   string
	SpecURL string
}

var docsPageTmpl = template.Must(template.New("docs_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{if .Title}}{{.Title}}{{else}}API reference{{end}}</title>
	<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
	<style>
		body { margin: 0; background: #fafafa; }
	</style>
</head>
<body>
	<div id="swagger-ui"></div>
	<script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
	<script>
		window.onload = function () {
			window.ui = SwaggerUIBundle({
				url: {{.SpecURL}},
				dom_id: "#swagger-ui",
				deepLinking: true,
				validatorUrl: null
			});
		};
	</script>
</body>
</html>
`))

// RenderDocsPage renders the API reference page.
func RenderDocsPage(data DocsPageData) (string, error) {
	var buf bytes.Buffer
	if err := docsPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
