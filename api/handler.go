package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"swipeserver/apicodes"
	log "swipeserver/cloudlog"
)

// appHandler is a handler whose failures are rendered in one place.
type appHandler func(http.ResponseWriter, *http.Request) *apicodes.Error

func (fn appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e := fn(w, r); e != nil {
		renderError(w, r, e)
	}
}

// renderError writes {"error": message}. Causes are logged, never sent.
func renderError(w http.ResponseWriter, r *http.Request, e *apicodes.Error) {
	status := e.Status()
	if status == http.StatusInternalServerError {
		log.Printf("Handler error: %s %s [%s]: %v", r.Method, r.URL.Path, requestID(r), e)
	}
	writeJSON(w, status, map[string]string{"error": e.PublicMessage()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) *apicodes.Error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return &apicodes.Error{Kind: apicodes.BadRequest, Message: apicodes.MsgInvalidBody, Err: err}
}
