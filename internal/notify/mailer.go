// Package notify delivers e-mail notifications about tasks, inspections and
// stock alerts.
package notify

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"

	"obra-manager/internal/config"
	"obra-manager/internal/logger"

	mail "github.com/go-mail/mail/v2"
	"go.uber.org/zap"
)

// Sender delivers one HTML message.
type Sender interface {
	Send(to []string, subject, html string) error
}

// SMTP sends through an SMTP relay with mandatory STARTTLS.
type SMTP struct {
	cfg config.SMTPConfig
}

func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

func (s *SMTP) Send(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if !s.cfg.Enabled() {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.SkipTLSVerify,
	}

	return d.DialAndSend(m)
}

// LogOnly is used when SMTP is not configured.
type LogOnly struct{}

func (LogOnly) Send(to []string, subject, _ string) error {
	logger.L.Info("mail not sent (smtp disabled)", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

// Notifier renders the message templates and hands them to a Sender.
// Delivery errors are logged, never returned to callers.
type Notifier struct {
	sender Sender
}

func New(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

var templates = template.Must(template.New("mail").Parse(`
{{define "task_assigned"}}<p>Hola {{.Nombre}},</p>
<p>Se te asignó la tarea <strong>{{.Titulo}}</strong> del proyecto {{.Proyecto}}.</p>
{{if .FechaLimite}}<p>Fecha límite: {{.FechaLimite}}</p>{{end}}{{end}}
{{define "inspection_rejected"}}<p>La inspección <strong>{{.Titulo}}</strong> del proyecto {{.Proyecto}} fue {{.Estado}}.</p>
<ul>{{range .NoConformidades}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{define "stock_alert"}}<p>Alertas de inventario en {{.Proyecto}}:</p>
<ul>{{range .Alertas}}<li>{{.}}</li>{{end}}</ul>{{end}}
`))

func (n *Notifier) deliver(to []string, subject, tmpl string, data any) {
	if n == nil || n.sender == nil || len(to) == 0 {
		return
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		logger.L.Error("render mail template", zap.String("template", tmpl), zap.Error(err))
		return
	}
	if err := n.sender.Send(to, subject, buf.String()); err != nil {
		logger.L.Warn("send mail", zap.String("template", tmpl), zap.Strings("to", to), zap.Error(err))
	}
}

func (n *Notifier) TaskAssigned(to, name, title, project, due string) {
	n.deliver([]string{to}, "Nueva tarea asignada: "+title, "task_assigned", map[string]string{
		"Nombre":      name,
		"Titulo":      title,
		"Proyecto":    project,
		"FechaLimite": due,
	})
}

func (n *Notifier) InspectionClosed(to []string, title, project, status string, nonConformities []string) {
	n.deliver(to, "Inspección "+status+": "+title, "inspection_rejected", map[string]any{
		"Titulo":          title,
		"Proyecto":        project,
		"Estado":          status,
		"NoConformidades": nonConformities,
	})
}

func (n *Notifier) StockAlerts(to []string, project string, alerts []string) {
	if len(alerts) == 0 {
		return
	}
	n.deliver(to, "Alertas de inventario: "+project, "stock_alert", map[string]any{
		"Proyecto": project,
		"Alertas":  alerts,
	})
}
