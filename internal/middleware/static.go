package middleware

import (
	"net/http"
	"os"
	"path/filepath"
)

const placeholderCreative = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 320 180"><rect width="320" height="180" fill="#f4f4f4"/><rect x="110" y="50" width="100" height="64" rx="8" fill="none" stroke="#999" stroke-width="6"/><path d="M150 68l28 14-28 14z" fill="#999"/><text x="160" y="150" text-anchor="middle" font-family="Arial" font-size="14" fill="#666">AD</text></svg>`

// CreativeServer serves ad creatives from dir, falling back to a placeholder
// image for creatives that have not been uploaded yet.
func CreativeServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))

		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			w.Header().Set("Cache-Control", "public, max-age=2592000")
			http.ServeFile(w, r, path)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write([]byte(placeholderCreative))
	})
}
