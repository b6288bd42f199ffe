// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"text/template"
)

const systemPrompt = `You are a careful research assistant. You read technical material such as repository READMEs, paper abstracts, course outlines and articles, and you answer briefly and factually. Never invent features the material does not mention.`

var summarizeTmpl = template.Must(template.New("summarize").Parse(`Summarize the following material in one concise paragraph. Cover what it is, what it does, and who it is for.

Material:
{{.Content}}
`))

var organizeTmpl = template.Must(template.New("organize").Parse(`The following notes summarize consecutive parts of one document. Merge them into a single coherent paragraph without repeating yourself and without mentioning parts.

Notes:
{{.Summary}}
`))

var askTmpl = template.Must(template.New("ask").Parse(`Answer the question using only the material and summary below. If the material does not answer it, say that it does not.

Question: {{.Question}}

Summary:
{{.Summary}}

Material:
{{.Content}}
`))

var validateContentTmpl = template.Must(template.New("validate-content").Parse(`Does the answer below directly address the question and state that the subject satisfies it? Reply with "yes" or "no" only.

Question: {{.Question}}
Answer: {{.Answer}}
`))

var validateKnowledgeTmpl = template.Must(template.New("validate-knowledge").Parse(`Using your general knowledge, is the answer below plausible and consistent with what is known about the subject? Reply with "yes" or "no" only.

Question: {{.Question}}
Answer: {{.Answer}}
`))

var nameRunTmpl = template.Must(template.New("name-run").Parse(`Suggest a short name, at most five words, for a research run with these search phrases and questions. Reply with the name only.

Search phrases:
{{range .Queries}}- {{.}}
{{end}}
Questions:
{{range .Questions}}- {{.}}
{{end}}`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
