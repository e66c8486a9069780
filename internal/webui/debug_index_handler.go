package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"zetlive.dev/internal/appconf"
)

//go:embed debug_index.html
var templateFS embed.FS

type debugData struct {
	Title string
	Pre   string
}

func (webUI *WebUI) writeDebugData(w http.ResponseWriter, title string, data any) {
	content := spew.Sdump(data)
	w.Header().Set("Content-Type", "text/html")
	tmpl, err := template.ParseFS(templateFS, "debug_index.html")
	if err != nil {
		webUI.Logger.Error("failed to parse debug template", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	err = tmpl.Execute(w, debugData{Title: title, Pre: content})
	if err != nil {
		webUI.Logger.Error("failed to execute debug template", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// debugIndexHandler dumps the selected piece of runtime state. Never served
// in production.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}
	dataType := r.URL.Query().Get("dataType")

	var data any
	var title string

	switch dataType {
	case "schedule":
		data, _ = webUI.Schedule.Get()
		title = "Schedule Snapshot"
	case "feed":
		data, _ = webUI.Feed.Get()
		title = "Realtime Feed Snapshot"
	case "hub":
		data = webUI.Hub.Connections()
		title = "WebSocket Connections"
	case "config":
		data = webUI.Config
		title = "Configuration"
	default:
		data = map[string]string{
			"error": "Please use one of the following: schedule, feed, hub, config.",
		}
		title = "Choose a data type"
	}

	webUI.writeDebugData(w, title, data)
}
