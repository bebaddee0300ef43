package api

import (
	"encoding/json"
	"net/http"
)

// Error codes follow the request-boundary taxonomy: every failure leaving a
// handler is one of these, serialized as a JSON body.
const (
	CodeValidation = "VALIDATION"
	CodeAuth       = "AUTH"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeProvider   = "PROVIDER"
	CodeInternal   = "INTERNAL"
)

type ErrorResponseBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, ErrorResponseBody{Code: code, Message: message})
}

func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, CodeInternal, "An internal error occurred.")
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON parses a request body into a typed struct, rejecting unknown
// fields. Returns false after writing a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
