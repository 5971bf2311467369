package server

import "html/template"

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; }
input[type=text] { width: 80%; padding: .4rem; }
.warning { color: #8a6d3b; background: #fcf8e3; padding: .6rem; }
.error { color: #a94442; background: #f2dede; padding: .6rem; }
.route { color: #666; font-size: .9rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<form method="post" action="/ask">
<input type="text" name="query" value="{{.Query}}" placeholder="Enter your query">
<button type="submit">Get Answer</button>
</form>
{{if .Warning}}<p class="warning">{{.Warning}}</p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Answer}}
<h2>Answer</h2>
<p class="route">Answered from {{.Route}}{{if .Source}} &middot; <a href="{{.Source}}">{{.Source}}</a>{{end}}</p>
<div class="answer">{{.Answer}}</div>
{{end}}
</body>
</html>
`))

type pageData struct {
	Title   string
	Query   string
	Warning string
	Error   string
	Route   string
	Source  string
	Answer  template.HTML
}
