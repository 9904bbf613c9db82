package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"dbmeta/internal/logger"
	"dbmeta/internal/weberr"
)

// envelope is the body of every API response.
type envelope struct {
	OK     bool      `json:"ok"`
	Result any       `json:"result,omitempty"`
	Error  *apiError `json:"error,omitempty"`
}

type apiError struct {
	Kind    weberr.Kind `json:"kind"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response: %v", err)
	}
}

func writeResult(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Result: result})
}

// writeError maps err to its kind and status. Causes are logged, not sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := weberr.KindOf(err)
	msg := "internal error"
	var we *weberr.Error
	if errors.As(err, &we) {
		msg = we.Message
	}
	status := weberr.Status(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		logger.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, envelope{OK: false, Error: &apiError{Kind: kind, Message: msg}})
}
