package main

import (
	"net/http"

	"github.com/myrjola/tripguide/internal/catalog"
)

type homeTemplateData struct {
	BaseTemplateData
	Flows []catalog.Flow
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	state := app.loadFlow(r.Context())
	data := homeTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r, state),
		Flows:            app.catalog.Flows(),
	}

	app.render(w, r, http.StatusOK, "home", data)
}
