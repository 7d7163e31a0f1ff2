package biz

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/kart-io/medrag/internal/medrag/store"
)

// SystemPrompt is sent as the system message of every generation.
const SystemPrompt = "You are a meticulous medical expert system. You answer only with a single valid JSON object."

const promptText = `You are a meticulous medical expert system. Your task is to evaluate a given medical statement.
**You must base your answer EXCLUSIVELY on the provided "Reference Text". Ignore any of your own prior knowledge.**

Your task has two parts:
1. Determine if the statement is TRUE or FALSE according to the text.
2. Identify the primary medical topic of the statement from the "List of Possible Topics", choosing the one that is the most direct match.

**Reference Text:**
---
{{.Context}}
---

**Medical Statement to Evaluate:**
---
"{{.Statement}}"
---

**List of Possible Topics:**
---
{{.Topics}}
---

Provide your answer in a single, valid JSON object. Do not add any other text, comments, or explanations.
{{- if .Strict}}

Your previous answer could not be read. Reply with the JSON object below and nothing else: no Markdown, no code fences, no prose.
"statement_is_true" must be 1 or 0. "statement_topic" must be one of the integer IDs listed above.
{{- end}}

{
    "statement_is_true": <1 for TRUE, 0 for FALSE>,
    "statement_topic": <the integer ID of the most relevant topic>
}
`

var predictTemplate = template.Must(template.New("predict").Parse(promptText))

type promptData struct {
	Context   string
	Statement string
	Topics    string
	Strict    bool
}

// BuildPrompt renders the prediction prompt for a statement and its
// retrieved context.
func BuildPrompt(statement string, hits []*store.Hit, topics *TopicMap) (string, error) {
	return renderPrompt(statement, hits, topics, false)
}

// BuildStrictPrompt renders the prompt used after an unparseable reply.
func BuildStrictPrompt(statement string, hits []*store.Hit, topics *TopicMap) (string, error) {
	return renderPrompt(statement, hits, topics, true)
}

func renderPrompt(statement string, hits []*store.Hit, topics *TopicMap, strict bool) (string, error) {
	var b strings.Builder
	err := predictTemplate.Execute(&b, promptData{
		Context:   FormatContext(hits),
		Statement: statement,
		Topics:    topics.JSON(),
		Strict:    strict,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// FormatContext joins retrieved chunks with blank lines, each prefixed by
// its topic name.
func FormatContext(hits []*store.Hit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("[Topic: %s]\n%s", h.TopicName, h.Text))
	}
	return strings.Join(parts, "\n\n")
}
