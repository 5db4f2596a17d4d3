package http

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mind-engage/quizport/internal/bank"
	"github.com/mind-engage/quizport/internal/ingest"
	"github.com/mind-engage/quizport/internal/qti/export"
	"github.com/mind-engage/quizport/internal/qti/parser"
	"github.com/mind-engage/quizport/internal/quiz"
	"github.com/mind-engage/quizport/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var blocked *export.BlockedError
	switch {
	case errors.As(err, &blocked):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       blocked.Error(),
			"diagnostics": blocked.Diagnostics,
		})
	case errors.Is(err, bank.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ingest.ErrNoRows),
		errors.Is(err, quiz.ErrEmptyPackage),
		errors.Is(err, parser.ErrNotQTI),
		errors.Is(err, parser.ErrNoQuestions),
		errors.Is(err, storage.ErrBadKey),
		errors.Is(err, zip.ErrFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
