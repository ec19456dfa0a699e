package export

import (
	"encoding/json"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/billylighter/telegrab/internal/store"
)

// markdownTemplate renders one dialog per document. Messages arrive in
// chronological order.
var markdownTemplate = template.Must(template.New("dialog").Funcs(template.FuncMap{
	"stamp": func(unix int64) string {
		if unix == 0 {
			return "unknown time"
		}
		return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
	},
}).Parse(`# {{ .Dialog.Name }}

Dialog ID: {{ .Dialog.DialogID }}
Messages: {{ len .Messages }}

---
{{ range .Messages }}
**{{ .Sender }}** ({{ stamp .SentAt }}):

{{ .Text }}
{{- if .MediaPath }}

[attachment]({{ .MediaPath }})
{{- end }}

---
{{ end }}`))

type document struct {
	Dialog   store.Dialog
	Messages []store.Message
}

// renderMarkdown writes the dialog as a Markdown document at path.
func (e *Engine) renderMarkdown(path string, dialog store.Dialog, msgs []store.Message) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export document %s: %w", path, err)
	}
	defer f.Close()

	if err := markdownTemplate.Execute(f, document{Dialog: dialog, Messages: msgs}); err != nil {
		return fmt.Errorf("rendering export document %s: %w", path, err)
	}
	return nil
}

// jsonDocument is the stable JSON export shape.
type jsonDocument struct {
	DialogID int64         `json:"dialog_id"`
	Name     string        `json:"name"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
	MediaPath string `json:"media_path,omitempty"`
}

// renderJSON writes the dialog as a JSON document at path.
func (e *Engine) renderJSON(path string, dialog store.Dialog, msgs []store.Message) error {
	doc := jsonDocument{
		DialogID: dialog.DialogID,
		Name:     dialog.Name,
		Messages: make([]jsonMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		doc.Messages = append(doc.Messages, jsonMessage{
			ID:        m.MessageID,
			Sender:    m.Sender,
			Date:      m.SentAt,
			Text:      m.Text,
			MediaPath: m.MediaPath,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export document %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export document %s: %w", path, err)
	}
	return nil
}
