package main

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/justinas/alice"
	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/ui"
)

func (app *application) routes(writeTimeout time.Duration) (http.Handler, error) {
	mux := http.NewServeMux()

	static, err := fs.Sub(ui.Files, "static")
	if err != nil {
		return nil, errors.Wrap(err, "static files")
	}
	mux.Handle("GET /static/", cacheForeverHeaders(http.StripPrefix("/static", http.FileServerFS(static))))
	mux.HandleFunc("GET /api/healthy", app.healthy)

	session := alice.New(app.sessionManager.LoadAndSave, app.noSurf, app.commonContext, noCacheHeaders)

	mux.Handle("GET /{$}", session.ThenFunc(app.home))
	mux.Handle("POST /flow/start", session.ThenFunc(app.flowStart))
	mux.Handle("GET /flow", session.ThenFunc(app.flowShow))
	mux.Handle("POST /flow/answer", session.ThenFunc(app.flowAnswer))
	mux.Handle("POST /flow/back", session.ThenFunc(app.flowBack))
	mux.Handle("POST /flow/reset", session.ThenFunc(app.flowReset))
	mux.Handle("GET /results", session.ThenFunc(app.results))
	mux.Handle("POST /results/unlock", session.ThenFunc(app.unlock))
	mux.Handle("/", session.ThenFunc(app.notFound))

	common := alice.New(app.recoverPanic, app.logRequest, app.secureHeaders)
	return timeoutHandler(common.Then(mux), writeTimeout), nil
}
