package mailer

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Template kinds
const (
	KindEvent     = "event"
	KindPoll      = "poll"
	KindTask      = "task"
	KindVolunteer = "volunteer"
)

var ErrUnknownKind = errors.New("unknown notification kind")

// MissingFieldError names a template field absent from the data
type MissingFieldError struct {
	Kind  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s notification requires %q", e.Kind, e.Field)
}

type template struct {
	required []string
	subject  *texttemplate.Template
	body     *htmltemplate.Template
}

const layoutHead = `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<p>Hi {{if .first_name}}{{.first_name}}{{else}}there{{end}},</p>`

const layoutFoot = `{{if .url}}<p><a href="{{.url}}" style="background:#1d4ed8;color:#fff;padding:10px 16px;text-decoration:none;border-radius:4px">{{.cta}}</a></p>{{end}}
<p style="color:#6b7280;font-size:12px">You are receiving this because you opted in to chapter emails.</p>
</div>`

func mustTemplate(kind string, required []string, subject, body string) template {
	return template{
		required: required,
		subject:  texttemplate.Must(texttemplate.New(kind + "-subject").Parse(subject)),
		body:     htmltemplate.Must(htmltemplate.New(kind + "-body").Parse(layoutHead + body + layoutFoot)),
	}
}

var templates = map[string]template{
	KindEvent: mustTemplate(KindEvent, []string{"title", "starts_at"},
		`Upcoming event: {{.title}}`,
		`<h2>{{.title}}</h2>
<p><strong>When:</strong> {{.starts_at}}</p>
{{if .location}}<p><strong>Where:</strong> {{.location}}</p>{{end}}
{{if .description}}<p>{{.description}}</p>{{end}}`),
	KindPoll: mustTemplate(KindPoll, []string{"question"},
		`Your voice counts: {{.question}}`,
		`<h2>{{.question}}</h2>
{{if .closes_at}}<p>Voting closes {{.closes_at}}.</p>{{end}}
{{if .description}}<p>{{.description}}</p>{{end}}`),
	KindTask: mustTemplate(KindTask, []string{"title"},
		`New task: {{.title}}`,
		`<h2>{{.title}}</h2>
{{if .due_at}}<p><strong>Due:</strong> {{.due_at}}</p>{{end}}
{{if .description}}<p>{{.description}}</p>{{end}}`),
	KindVolunteer: mustTemplate(KindVolunteer, []string{"title"},
		`Volunteer opportunity: {{.title}}`,
		`<h2>{{.title}}</h2>
{{if .date}}<p><strong>When:</strong> {{.date}}</p>{{end}}
{{if .location}}<p><strong>Where:</strong> {{.location}}</p>{{end}}
{{if .description}}<p>{{.description}}</p>{{end}}`),
}

var ctaByKind = map[string]string{
	KindEvent:     "RSVP",
	KindPoll:      "Vote now",
	KindTask:      "View task",
	KindVolunteer: "Sign up",
}

// Validate checks kind is known and data carries its required fields
func Validate(kind string, data map[string]interface{}) error {
	t, ok := templates[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	for _, f := range t.required {
		v, ok := data[f]
		if !ok || v == nil || fmt.Sprint(v) == "" {
			return &MissingFieldError{Kind: kind, Field: f}
		}
	}
	return nil
}

// Render produces the subject and HTML body for one recipient
func Render(kind string, data map[string]interface{}, firstName string) (string, string, error) {
	if err := Validate(kind, data); err != nil {
		return "", "", err
	}
	t := templates[kind]

	vars := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		vars[k] = v
	}
	vars["first_name"] = firstName
	vars["cta"] = ctaByKind[kind]

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, vars); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := t.body.Execute(&body, vars); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", kind, err)
	}
	return subject.String(), body.String(), nil
}
