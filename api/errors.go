package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jmcleod/omiassist/auth"
	"github.com/jmcleod/omiassist/storage"
	"github.com/jmcleod/omiassist/telegram"
)

const (
	maxAuthBodySize    = 16 << 10
	maxActionBodySize  = 64 << 10
	maxWebhookBodySize = 1 << 20
)

var (
	errBadRequest         = errors.New("bad request")
	errTelegramIDMismatch = errors.New("telegram id mismatch")
	errOmiIDExists        = errors.New("omi id already registered")
	errTelegramIDExists   = errors.New("telegram id already registered")
	errNoSuchUser         = errors.New("no such user")
	errNoActions          = errors.New("no actions")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeInternalError logs err and responds 500 with msg only, so causes
// never reach the client.
func writeInternalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeEmpty(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAuthorized),
		errors.Is(err, errTelegramIDMismatch),
		errors.Is(err, telegram.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, auth.ErrNotAuthorized.Error())
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errNoSuchUser), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errNoActions):
		writeEmpty(w)
	case errors.Is(err, errOmiIDExists),
		errors.Is(err, errTelegramIDExists),
		errors.Is(err, storage.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeInternalError(w, "internal error", err)
	}
}

// decodeJSON reads a JSON body of at most maxBytes into a T. On failure it
// writes a 400 and returns false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxBytes int64) (T, bool) {
	return decode[T](w, r, maxBytes, false)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body as the zero T.
func decodeOptionalJSON[T any](w http.ResponseWriter, r *http.Request, maxBytes int64) (T, bool) {
	return decode[T](w, r, maxBytes, true)
}

func decode[T any](w http.ResponseWriter, r *http.Request, maxBytes int64, optional bool) (T, bool) {
	var v T
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes)).Decode(&v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return v, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return v, false
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return v, false
}
