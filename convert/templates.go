package convert

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"cyc/common"
	"cyc/config"
	"cyc/cy"
	"cyc/misc"
	"cyc/state"
)

//go:embed page.html.tmpl
var defaultPageTemplate string

//go:embed default.css
var defaultStylesheet []byte

// Values is a struct that holds variables we make available for template
// expansion. Title is empty while title template itself is being expanded.
type Values struct {
	Context    string
	Title      string
	Language   string
	Stylesheet string
	Body       string
	Source     string
	SourceFile string
	Mode       string
	Headings   []string
	Generator  string
}

func newValues(text, body, src string, env *state.LocalEnv) Values {
	return Values{
		Language:   env.Cfg.Document.Page.Language,
		Stylesheet: string(env.Stylesheet),
		Body:       body,
		Source:     filepath.ToSlash(src),
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Mode:       env.Mode.String(),
		Headings:   cy.Headings(text),
		Generator:  misc.GetAppName() + " " + misc.GetVersion(),
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values.Context = string(name)

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// render produces final output for translated body according to selected
// mode. "text" is the original markup, "src" is the source name as reported
// to the user.
func render(text, body, src string, env *state.LocalEnv) ([]byte, error) {
	if env.Mode != common.OutputModePage {
		return []byte(body), nil
	}

	values := newValues(text, body, src, env)

	title, err := expandTemplate(config.TitleTemplateFieldName, env.Cfg.Document.Page.TitleTemplate, values)
	if err != nil {
		env.Log.Warn("Unable to prepare page title, using source name", zap.Error(err))
		title = values.SourceFile
	}
	values.Title = strings.TrimSpace(title)
	if values.Title == "" {
		values.Title = values.SourceFile
	}

	page, err := expandTemplate("page", env.PageTemplate, values)
	if err != nil {
		return nil, fmt.Errorf("unable to build page: %w", err)
	}
	return []byte(page), nil
}
