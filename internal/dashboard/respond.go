package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/adestefa/ccmem/internal/logging"
	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

// badRequest is an input error; it maps to 400.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ok writes a success envelope with the given fields.
func ok(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func statusOf(err error) int {
	var br *badRequest
	var ce *store.ConstraintError
	switch {
	case errors.As(err, &br), errors.Is(err, risk.ErrEmptyTerm):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ce), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	logger := logging.For("dashboard")
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
		msg = "internal server error"
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// decode reads a JSON body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decode(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	default:
		return badRequestf("invalid JSON body: %v", err)
	}
}

// idParam reads a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := cast.ToInt64E(raw)
	if err != nil || id <= 0 {
		return 0, badRequestf("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, badRequestf("invalid %s %q", name, raw)
	}
	return n, nil
}
