package mailqueue

import (
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/templates"
	"github.com/wneessen/go-mail"
)

type layout struct {
	file    string
	subject string
	data    func() any
}

var layouts = map[domain.MailType]layout{
	domain.MailNewAccount: {
		file:    "new_account.html",
		subject: "AutoParc - Votre compte",
		data:    func() any { return &domain.NewAccountMailData{} },
	},
	domain.MailResetPassword: {
		file:    "reset_password.html",
		subject: "AutoParc - Réinitialisation du mot de passe",
		data:    func() any { return &domain.ResetPasswordMailData{} },
	},
	domain.MailOperatorAssigned: {
		file:    "operator_assigned.html",
		subject: "AutoParc - Attribution de véhicule",
		data:    func() any { return &domain.AssignmentMailData{} },
	},
	domain.MailOperatorUnassigned: {
		file:    "operator_unassigned.html",
		subject: "AutoParc - Fin d'attribution",
		data:    func() any { return &domain.AssignmentMailData{} },
	},
}

// Renderer builds SMTP messages from queued mail messages.
type Renderer struct {
	from      string
	templates map[domain.MailType]*template.Template
}

func NewRenderer(from string) (*Renderer, error) {
	parsed := make(map[domain.MailType]*template.Template, len(layouts))
	for typ, l := range layouts {
		tmpl, err := template.ParseFS(templates.FS, l.file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", l.file, err)
		}
		parsed[typ] = tmpl
	}
	return &Renderer{from: from, templates: parsed}, nil
}

// Render decodes a queued body into a ready-to-send message.
func (r *Renderer) Render(body []byte) (*mail.Msg, error) {
	var envelope struct {
		Type domain.MailType `json:"type"`
		To   string          `json:"to"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	l, ok := layouts[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mail type %q", envelope.Type)
	}

	data := l.data()
	if err := json.Unmarshal(envelope.Data, data); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", envelope.Type, err)
	}

	msg := mail.NewMsg()
	if err := msg.From(r.from); err != nil {
		return nil, err
	}
	if err := msg.To(envelope.To); err != nil {
		return nil, err
	}
	msg.Subject(l.subject)
	if err := msg.SetBodyHTMLTemplate(r.templates[envelope.Type], data); err != nil {
		return nil, err
	}

	return msg, nil
}
