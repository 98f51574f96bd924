package main

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/justinas/nosurf"
	"github.com/myrjola/tripguide/internal/contexthelpers"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/ui"
)

var pageNames = []string{"home", "flow", "results"}

// placeholderFuncs lets the templates parse. render swaps in the request bound versions on a clone.
var placeholderFuncs = template.FuncMap{
	"nonce": func() template.HTMLAttr { return "" },
	"csrf":  func() template.HTML { return "" },
}

func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(placeholderFuncs).ParseFS(ui.Files,
			"templates/base.gohtml",
			"templates/pages/"+name+"/*.gohtml",
		)
		if err != nil {
			return nil, errors.Wrap(err, "parse page template", slog.String("page", name))
		}
		templates[name] = t
	}
	return templates, nil
}

// requestFuncs binds the CSP nonce and the CSRF token of r.
func requestFuncs(r *http.Request) template.FuncMap {
	nonce := contexthelpers.CSPNonce(r.Context())
	token := contexthelpers.CSRFToken(r.Context())
	return template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(`nonce="` + template.HTMLEscapeString(nonce) + `"`) //nolint:gosec // escaped
		},
		"csrf": func() template.HTML {
			return template.HTML(`<input type="hidden" name="` + nosurf.FormFieldName + `" value="` + //nolint:gosec // escaped
				template.HTMLEscapeString(token) + `">`)
		},
	}
}

type BaseTemplateData struct {
	CurrentPath string
	InProgress  bool
}

func (app *application) newBaseTemplateData(r *http.Request, s *flowState) BaseTemplateData {
	return BaseTemplateData{
		CurrentPath: contexthelpers.CurrentPath(r.Context()),
		InProgress:  s != nil && s.inProgress(),
	}
}
