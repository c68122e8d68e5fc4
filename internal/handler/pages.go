package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const fallbackIndex = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Café Bloom</title></head>
<body><div id="root"></div></body>
</html>
`

const notFoundPage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Page not found | Café Bloom</title></head>
<body>
<h1>404</h1>
<p>Oops! Page not found</p>
<a href="/">Return to Home</a>
</body>
</html>
`

// Page отдаёт оболочку одностраничного приложения; маршрут разбирается на клиенте.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if h.deps.StaticDir != "" {
		index := filepath.Join(h.deps.StaticDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeFile(w, r, index)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fallbackIndex))
}

// NotFound отдаёт статический файл сборки клиента, если он есть, иначе страницу 404.
// Для запросов API ответ возвращается в JSON.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}

	if h.deps.StaticDir != "" && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		name := filepath.Join(h.deps.StaticDir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			http.ServeFile(w, r, name)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(notFoundPage))
}

// MethodNotAllowed отвечает на запрос с неподдерживаемым методом.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: http.StatusText(http.StatusMethodNotAllowed)})
}
