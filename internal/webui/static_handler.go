package webui

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// staticHandler serves the front-end bundle from the configured static
// directory. Paths without an extension fall back to index.html so the
// client router handles them. Disabled when no directory is configured.
func (webUI *WebUI) staticHandler(w http.ResponseWriter, r *http.Request) {
	root := webUI.Config.StaticDir
	if root == "" {
		http.NotFound(w, r)
		return
	}

	if strings.Contains(r.URL.Path, "..") {
		webUI.Logger.Warn("blocked path traversal attempt", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	// Cleaning a rooted path leaves no ".." segments.
	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if rel == "" {
		rel = "index.html"
	}

	full := filepath.Join(root, filepath.FromSlash(rel))

	// Verify the resolved path is still inside the static directory.
	absRoot, err := filepath.Abs(root)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if inside, err := filepath.Rel(absRoot, absFull); err != nil || strings.HasPrefix(inside, "..") {
		webUI.Logger.Warn("blocked path outside static directory", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(absFull)
	if err != nil || info.IsDir() {
		if path.Ext(rel) == "" {
			http.ServeFile(w, r, filepath.Join(absRoot, "index.html"))
			return
		}
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, absFull)
}
