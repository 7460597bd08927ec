package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/shared"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// SMTPMailer implements [Mailer] over SMTP with optional STARTTLS and PLAIN auth.
type SMTPMailer struct {
	cfg     shared.EmailConfig
	timeout time.Duration
}

// NewSMTPMailer creates a mailer from the email config section.
func NewSMTPMailer(cfg shared.EmailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, timeout: 30 * time.Second}
}

// Send delivers the email. Any failure wraps [shared.ErrSendFailed].
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return fmt.Errorf("%w: %w: email.host and email.from", shared.ErrSendFailed, shared.ErrMissingConfig)
	}
	if err := m.sendSMTP(ctx, email.To, m.buildMessage(email)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSendFailed, err)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(email Email) string {
	var msg strings.Builder

	fromName := m.cfg.FromName
	if fromName == "" {
		fromName = "relwatch"
	}

	fmt.Fprintf(&msg, "From: %s <%s>\r\n", encodeHeader(fromName), headerValue(m.cfg.From))
	fmt.Fprintf(&msg, "To: %s\r\n", headerValue(email.To))
	fmt.Fprintf(&msg, "Subject: %s\r\n", encodeHeader(email.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if email.HTML == "" {
		writePart(&msg, "text/plain", email.Text)
		return msg.String()
	}

	boundary := fmt.Sprintf("relwatch_%d", time.Now().UnixNano())
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	writePart(&msg, "text/plain", email.Text)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	writePart(&msg, "text/html", email.HTML)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.String()
}

// writePart writes part headers and a quoted-printable UTF-8 body.
func writePart(msg *strings.Builder, contentType, body string) {
	fmt.Fprintf(msg, "Content-Type: %s; charset=UTF-8\r\n", contentType)
	msg.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	w := quotedprintable.NewWriter(msg)
	w.Write([]byte(body))
	w.Close()
}

// headerValue drops line breaks so upstream names cannot start a new header.
func headerValue(s string) string {
	return strings.TrimSpace(headerBreaks.Replace(s))
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// encodeHeader RFC 2047 encodes non-ASCII header text.
func encodeHeader(s string) string {
	return mime.QEncoding.Encode("utf-8", headerValue(s))
}

func (m *SMTPMailer) sendSMTP(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))

	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if m.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// The message is accepted once DATA closes.
	_ = client.Quit()
	return nil
}

// ReleaseRenderer renders release notification emails from the embedded templates.
type ReleaseRenderer struct {
	subjectPrefix string
	siteURL       string
	text          *template.Template
	html          *htmltemplate.Template
}

// NewReleaseRenderer parses the embedded templates.
func NewReleaseRenderer(subjectPrefix, siteURL string) (*ReleaseRenderer, error) {
	text, err := template.ParseFS(templateFiles, "templates/release.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFiles, "templates/release.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	if siteURL != "" && !strings.HasSuffix(siteURL, "/") {
		siteURL += "/"
	}
	return &ReleaseRenderer{subjectPrefix: subjectPrefix, siteURL: siteURL, text: text, html: html}, nil
}

// Render builds one email announcing every release in the batch.
func (r *ReleaseRenderer) Render(user *models.User, releases []models.ReleaseListing) (Email, error) {
	if len(releases) == 0 {
		return Email{}, fmt.Errorf("%w: no releases to announce", shared.ErrInvalidInput)
	}

	data := struct {
		Username string
		SiteURL  string
		Releases []models.ReleaseListing
	}{user.Username, r.siteURL, releases}

	var text, html bytes.Buffer
	if err := r.text.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("failed to render text email: %w", err)
	}
	if err := r.html.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("failed to render html email: %w", err)
	}

	return Email{
		To:      user.Email,
		Subject: r.subject(releases),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func (r *ReleaseRenderer) subject(releases []models.ReleaseListing) string {
	var s string
	if len(releases) == 1 {
		s = fmt.Sprintf("New Release: %s - %s", releases[0].ArtistName, releases[0].Name)
	} else {
		s = fmt.Sprintf("%d New Releases", len(releases))
	}
	if r.subjectPrefix != "" {
		s = r.subjectPrefix + " " + s
	}
	return s
}
