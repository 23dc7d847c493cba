package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/dojo/fs"
)

const emailTemplatesDir = "assets/templates/email"

type (
	// EmailMessage is one outgoing email. TemplateName selects "<name>.txt" and "<name>.gohtml"
	// from the embedded templates, each laid out by the matching "_base" file.
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		Body    string // plain text; replaces the text template when set

		TemplateName string
		TemplateData interface{}

		// filled by Render
		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}

	emailTemplateData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	emailTemplates struct {
		text map[string]*texttmpl.Template
		html map[string]*htmltmpl.Template
	}
)

var (
	mailTmpls     emailTemplates
	mailTmplsErr  error
	mailTmplsOnce sync.Once
)

func loadEmailTemplates() (emailTemplates, error) {
	mailTmplsOnce.Do(func() {
		mailTmpls, mailTmplsErr = parseEmailTemplates(appfs.FS, emailTemplatesDir, Conf.Debug || Conf.TestMode)
	})
	return mailTmpls, mailTmplsErr
}

// parseEmailTemplates parses every page of dir along with its layout.
// Strict templates fail on missing keys instead of printing "<no value>".
func parseEmailTemplates(fsys fs.FS, dir string, strict bool) (emailTemplates, error) {
	tmpls := emailTemplates{
		text: make(map[string]*texttmpl.Template),
		html: make(map[string]*htmltmpl.Template),
	}
	pages, err := fs.Glob(fsys, path.Join(dir, "[^_]*"))
	if err != nil {
		return tmpls, errors.Wrap(err, "listing email templates")
	}

	for _, page := range pages {
		ext := path.Ext(page)
		name := strings.TrimSuffix(path.Base(page), ext)

		switch ext {
		case ".txt":
			t, err := texttmpl.ParseFS(fsys, path.Join(dir, "_base.txt"), page)
			if err != nil {
				return tmpls, errors.Wrapf(err, "parsing %s", page)
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			tmpls.text[name] = t
		case ".gohtml":
			t, err := htmltmpl.ParseFS(fsys, path.Join(dir, "_base.gohtml"), page)
			if err != nil {
				return tmpls, errors.Wrapf(err, "parsing %s", page)
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			tmpls.html[name] = t
		}
	}
	return tmpls, nil
}

// Render fills TextContent and HTMLContent.
func (m *EmailMessage) Render() error {
	m.TextContent = m.Body
	if m.TemplateName == "" {
		return nil
	}

	tmpls, err := loadEmailTemplates()
	if err != nil {
		return err
	}
	return m.render(tmpls)
}

func (m *EmailMessage) render(tmpls emailTemplates) error {
	text, hasText := tmpls.text[m.TemplateName]
	html, hasHTML := tmpls.html[m.TemplateName]
	if !hasText && !hasHTML {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}

	data := emailTemplateData{AppName: Conf.AppName, FrontendBaseURL: Conf.FrontendBaseURL, Data: m.TemplateData}
	var buf bytes.Buffer
	if hasText && m.Body == "" {
		if err := text.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
		}
		m.TextContent = buf.String()
		buf.Reset()
	}
	if hasHTML {
		if err := html.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
		}
		m.HTMLContent = buf.String()
	}
	return nil
}

// Sendable reports whether the rendered message has recipients and content.
func (m *EmailMessage) Sendable() bool {
	return len(m.To) > 0 && (m.TextContent != "" || m.HTMLContent != "")
}
