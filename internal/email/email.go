// Package email provides email sending functionality
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/sirupsen/logrus"
)

// TemplateKind selects one of the built-in templates.
type TemplateKind string

const (
	KindOrganizationInvite TemplateKind = "organization_invite"
	KindProjectInvite      TemplateKind = "project_invite"
	KindBoardInvite        TemplateKind = "board_invite"
	KindWelcome            TemplateKind = "welcome"
)

// Config holds email configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

type emailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

// Service handles email sending
type Service struct {
	config    *Config
	templates map[TemplateKind]*emailTemplate
	logger    logrus.FieldLogger
}

// NewService creates a new email service
func NewService(config *Config, logger logrus.FieldLogger) *Service {
	s := &Service{
		config:    config,
		templates: make(map[TemplateKind]*emailTemplate),
		logger:    logger,
	}
	s.loadTemplates()
	return s
}

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
}

const layout = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #10b981; color: white; padding: 24px; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 24px; border-radius: 0 0 8px 8px; }
        .credentials { background: white; border-radius: 8px; padding: 16px; margin: 16px 0; font-family: monospace; }
        .btn { display: inline-block; background: #10b981; color: white; padding: 12px 20px; text-decoration: none; border-radius: 6px; margin-top: 16px; }
        .footer { margin-top: 24px; font-size: 12px; color: #6b7280; text-align: center; }
    </style>
</head>
<body>
<div class="container">
    <div class="header"><h2>{{template "title" .}}</h2></div>
    <div class="content">{{template "content" .}}</div>
    <div class="footer">ORA Kanban • Team Collaboration Platform</div>
</div>
</body>
</html>
{{define "invite_details"}}
        {{if .Message}}<p><em>"{{.Message}}"</em></p>{{end}}
        <p>You will join as <strong>{{.Role}}</strong>. Sign in with this email address and the temporary password below, then choose your own password.</p>
        <div class="credentials">Temporary password: {{.TemporaryPassword}}</div>
        <a href="{{.AcceptURL}}" class="btn">Accept Invitation</a>
        <p style="margin-top: 16px; font-size: 14px; color: #6b7280;">
            This invitation expires on {{.ExpiresAt}}. If you were not expecting this email, you can ignore it.
        </p>
{{end}}
`

// loadTemplates loads all email templates
func (s *Service) loadTemplates() {
	s.register(KindOrganizationInvite,
		`{{.InviterName}} invited you to {{.OrganizationName}}`,
		`{{define "title"}}You're invited to {{.OrganizationName}}{{end}}
{{define "content"}}
        <p>Hello,</p>
        <p><strong>{{.InviterName}}</strong> invited you to join the organization <strong>{{.OrganizationName}}</strong>.</p>
        {{template "invite_details" .}}
{{end}}`)

	s.register(KindProjectInvite,
		`{{.InviterName}} invited you to the {{.ProjectName}} project`,
		`{{define "title"}}You're invited to {{.ProjectName}}{{end}}
{{define "content"}}
        <p>Hello,</p>
        <p><strong>{{.InviterName}}</strong> invited you to collaborate on the project <strong>{{.ProjectName}}</strong> in <strong>{{.OrganizationName}}</strong>.</p>
        {{template "invite_details" .}}
{{end}}`)

	s.register(KindBoardInvite,
		`{{.InviterName}} invited you to a board in {{.OrganizationName}}`,
		`{{define "title"}}You're invited to a board{{end}}
{{define "content"}}
        <p>Hello,</p>
        <p><strong>{{.InviterName}}</strong> invited you to a board{{if .ProjectName}} in the project <strong>{{.ProjectName}}</strong>{{end}} of <strong>{{.OrganizationName}}</strong>.</p>
        {{template "invite_details" .}}
{{end}}`)

	s.register(KindWelcome,
		`Welcome to {{.OrganizationName}}`,
		`{{define "title"}}Welcome aboard{{end}}
{{define "content"}}
        <p>Hi {{.Name}},</p>
        <p>Your account is ready and you are now a <strong>{{.Role}}</strong> of <strong>{{.OrganizationName}}</strong>.</p>
        <a href="{{.DashboardURL}}" class="btn">Open your dashboard</a>
{{end}}`)
}

func (s *Service) register(kind TemplateKind, subject, content string) {
	body := template.Must(template.New(string(kind)).Option("missingkey=zero").Parse(layout))
	template.Must(body.Parse(content))
	s.templates[kind] = &emailTemplate{
		subject: texttemplate.Must(texttemplate.New(string(kind) + "_subject").Option("missingkey=zero").Parse(subject)),
		body:    body,
	}
}

// Render executes the subject and body templates for kind.
func (s *Service) Render(kind TemplateKind, vars map[string]string) (string, string, error) {
	tmpl, ok := s.templates[kind]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", kind)
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, vars); err != nil {
		return "", "", fmt.Errorf("subject execution error: %w", err)
	}
	if err := tmpl.body.Execute(&body, vars); err != nil {
		return "", "", fmt.Errorf("template execution error: %w", err)
	}
	return subject.String(), body.String(), nil
}

// Send renders kind with vars and delivers it to a single recipient.
func (s *Service) Send(ctx context.Context, kind TemplateKind, to string, vars map[string]string) error {
	subject, body, err := s.Render(kind, vars)
	if err != nil {
		return err
	}
	return s.deliver(ctx, &Email{To: []string{to}, Subject: subject, HTMLBody: body})
}

func (s *Service) deliver(ctx context.Context, email *Email) error {
	if s.config.Host == "" {
		s.logger.WithField("subject", email.Subject).Debug("email not configured, skipping send")
		return nil
	}

	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(email.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(email.HTMLBody)

	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial error: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	if s.config.UseTLS {
		conn = tls.Client(conn, &tls.Config{ServerName: s.config.Host})
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("SMTP client error: %w", err)
	}
	defer client.Close()

	if !s.config.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
				return fmt.Errorf("starttls error: %w", err)
			}
		}
	}

	if s.config.User != "" {
		auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth error: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	for _, rcpt := range email.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt error: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data error: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close error: %w", err)
	}

	return client.Quit()
}
