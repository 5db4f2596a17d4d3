package http

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/quizport/internal/auth/middleware"
	"github.com/mind-engage/quizport/internal/qti/export"
	"github.com/mind-engage/quizport/internal/question"
	"github.com/mind-engage/quizport/internal/quiz"
)

const maxUpload = 32 << 20

// readUpload returns the multipart "file" field.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return nil, "", false
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "read upload: "+err.Error(), http.StatusBadRequest)
		return nil, "", false
	}
	return b, hdr.Filename, true
}

// POST /qti/preview (multipart: file=package.zip or questions.xml)
func PreviewQTIHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _, ok := readUpload(w, r)
		if !ok {
			return
		}
		d, err := svc.Preview(data)
		if err != nil {
			writeError(w, err)
			return
		}
		records, err := question.WrapAll(d.Records)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"quiz_id":     d.QuizID,
			"title":       d.Title,
			"description": d.Description,
			"records":     records,
			"warnings":    d.Warnings,
		})
	}
}

// POST /qti/import (multipart: file=package.zip)
func ImportQTIHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, name, ok := readUpload(w, r)
		if !ok {
			return
		}
		res, err := svc.Import(r.Context(), data, name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// GET /quizzes/{id}/export?fib=short_answer|multiple_blanks
func ExportQTIHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		variant := export.FIBVariant(strings.ToLower(r.URL.Query().Get("fib")))
		switch variant {
		case "", export.FIBShortAnswer, export.FIBMultipleBlanks:
		default:
			http.Error(w, "unknown fib variant", http.StatusBadRequest)
			return
		}

		res, err := svc.Export(r.Context(), quiz.ExportRequest{
			QuizID:     id,
			Actor:      auth.SubjectFromContext(r.Context()),
			FIBVariant: variant,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+id+".zip\"")
		w.Header().Set("X-Package-Id", res.Package.QuizID)
		http.ServeContent(w, r, id+".zip", time.Now(), bytes.NewReader(res.Zip))
	}
}
