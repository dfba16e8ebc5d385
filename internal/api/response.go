package api

import (
	"encoding/json"
	"io"
	"net/http"
)

// WriteJSON writes data as JSON without HTML escaping.
func WriteJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// Respond writes a JSON response with the given status.
func Respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = WriteJSON(w, data)
}

// WriteError sends err as a JSON error response.
func WriteError(w http.ResponseWriter, err error) {
	apiErr := FromError(err)
	Respond(w, apiErr.StatusCode, apiErr.GetResponse())
}
