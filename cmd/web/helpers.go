package main

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/myrjola/tripguide/internal/errors"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	http.Error(w, http.StatusText(status), status)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound, errors.New("no route"))
}

// render writes the page template. htmx requests get only the page fragment, everything else the full document.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := app.templates[page]
	if !ok {
		app.serverError(w, r, errors.New("template not found", slog.String("page", page)))
		return
	}
	// Clone so that the request bound funcs never leak into the shared template.
	tmpl, err := tmpl.Clone()
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "clone template", slog.String("page", page)))
		return
	}
	tmpl = tmpl.Funcs(requestFuncs(r))

	name := "base"
	if app.htmx.NewHandler(w, r).IsHxRequest() {
		name = "page"
	}

	// Render into a buffer first so that a template error does not leave a half written page.
	buf := new(bytes.Buffer)
	if err = tmpl.ExecuteTemplate(buf, name, data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("page", page)))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirect sends a 303 so that a reload never repeats the form submission.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
