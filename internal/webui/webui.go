// Package webui serves everything that is not the JSON API: the front-end
// bundle when a static directory is configured, and the development debug
// page.
package webui

import (
	"net/http"

	"zetlive.dev/internal/app"
)

type WebUI struct {
	*app.Application
}

func NewWebUI(application *app.Application) *WebUI {
	return &WebUI{Application: application}
}

// Handler returns the fallback surface mounted behind the API routes.
func (webUI *WebUI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
	mux.HandleFunc("/", webUI.staticHandler)
	return mux
}
