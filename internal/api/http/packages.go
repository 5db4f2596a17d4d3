package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/quizport/internal/storage"
)

// MountPackages serves stored export packages.
func MountPackages(r chi.Router, bs storage.BlobStore) {
	// GET /packages/*   -> returns the blob at whatever follows /packages/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if !strings.HasPrefix(key, "exports/") || !strings.HasSuffix(key, ".zip") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		rc, err := bs.Get(r.Context(), key)
		if err != nil {
			writeError(w, err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/zip")
		_, _ = io.Copy(w, rc)
	})
}
