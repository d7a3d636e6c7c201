package server

import (
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// DefaultUIQuery pre-fills the question box.
const DefaultUIQuery = "Who is Alice?"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>kotae: Local RAG with Ollama</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; }
input[type=text] { width: 70%; padding: .4rem; }
.answer { white-space: pre-wrap; }
.error { color: #b00020; }
footer { margin-top: 3rem; color: #666; font-size: .85rem; }
</style>
</head>
<body>
<h1>Ask your documents</h1>
<p>Ask questions based on the local markdown files.</p>
<form method="get" action="/">
<label for="q">Enter your question:</label>
<input type="text" id="q" name="q" value="{{.Query}}">
<button type="submit">Get Answer</button>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{with .Answer}}
<h2>Answer</h2>
<div class="answer">{{.Text}}</div>
<h2>Sources</h2>
<ul>
{{range .Sources}}<li><strong>{{.Source}}</strong> (score: <code>{{printf "%.4f" .Score}}</code>)</li>
{{end}}</ul>
{{end}}
<hr>
<footer>Powered by Ollama and kotae</footer>
</body>
</html>
`))

type pageData struct {
	Query  string
	Answer *models.Answer
	Error  string
}

func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	data := pageData{Query: DefaultUIQuery}
	if q, ok := r.URL.Query()["q"]; ok {
		data.Query = strings.Join(q, " ")
		if strings.TrimSpace(data.Query) == "" {
			data.Error = "Please enter a question."
		} else {
			answer, err := s.Ask(r.Context(), data.Query)
			if err != nil {
				s.logger.Error("ui ask failed", zap.Error(err))
				data.Error = err.Error()
			}
			data.Answer = answer
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}
