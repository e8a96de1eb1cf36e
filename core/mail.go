package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/karo/fs"
)

const emailTmplDir = "templates/email"

var (
	templates   tmplCache
	templatesMu sync.RWMutex
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	templatesMu.RLock()
	defer templatesMu.RUnlock()

	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText(data ContextData) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, data); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(data ContextData) error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, data); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render(conf *Config) error {
	data := ContextData{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
	if err := m.renderText(data); err != nil {
		return errors.Wrap(err, "rendering text")
	}
	return errors.Wrap(m.renderHTML(data), "rendering html")
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates parses and caches the embedded email templates.
// Files starting with "_" are layouts; every other `name.txt|name.gohtml` is rendered inside them.
func ParseEmailTemplates(logger Logger) {
	cache := make(tmplCache)

	fps, err := fs.Glob(appfs.FS, path.Join(emailTmplDir, "*"))
	if err != nil {
		logger.Error(fmt.Sprintf("listing email templates: %v", err), err)
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := cache[name]
		if !ok {
			entry = make(tmplCacheEntry)
			cache[name] = entry
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(appfs.FS, path.Join(emailTmplDir, "_base.txt"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("parsing email template %s: %v", fname, err), err)
				continue
			}
			entry[ext] = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.ParseFS(appfs.FS, path.Join(emailTmplDir, "_base.gohtml"), fp)
			if err != nil {
				logger.Error(fmt.Sprintf("parsing email template %s: %v", fname, err), err)
				continue
			}
			entry[ext] = tmpl.Option("missingkey=error")
		}
	}

	templatesMu.Lock()
	templates = cache
	templatesMu.Unlock()
}
