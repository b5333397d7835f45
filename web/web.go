// Package web serves the embedded browser front end.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed index.html not-found.html static
var files embed.FS

// IndexHandler serves the single page UI.
func IndexHandler(w http.ResponseWriter, r *http.Request) {
	page, err := files.ReadFile("index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// StaticHandler serves /static/* assets.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// NotFound writes the 404 page for unknown or expired short links.
func NotFound(w http.ResponseWriter) {
	page, err := files.ReadFile("not-found.html")
	if err != nil {
		http.Error(w, "link not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(page)
}
