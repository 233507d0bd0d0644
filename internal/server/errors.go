package server

import (
	"encoding/json"
	"net/http"

	"github.com/leapstack-labs/leapml/pkg/core"
)

const encodeFailed = "Failed to encode response."

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error,omitempty"`
}

// statusFor maps an error kind to its HTTP status. Errors outside the
// taxonomy are server faults.
func statusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindTraining, "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeError renders err. Server faults are prefixed with what was being
// attempted.
func writeError(w http.ResponseWriter, err error, prefix string) {
	kind := core.KindOf(err)
	status := statusFor(kind)

	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = prefix + " " + detail
	}
	writeDetail(w, status, detail, string(kind))
}

func writeDetail(w http.ResponseWriter, status int, detail, kind string) {
	_ = writeJSON(w, status, errorBody{Detail: detail, Error: kind})
}

// writeJSON marshals v before any header is written, so a value that cannot
// be encoded becomes a well-formed 500 instead of a truncated body. The
// encoding error is returned for the caller to log.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Detail: encodeFailed})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
	return err
}
