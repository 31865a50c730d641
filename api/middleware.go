package api

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"swipeserver/apicodes"
	log "swipeserver/cloudlog"
	"swipeserver/collabauth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// RequestIDHeader carries the id logged for every request.
	RequestIDHeader = "X-Request-ID"

	// Browsers cannot set headers on a websocket handshake, so the live
	// stream also takes the ID token as a query parameter.
	tokenParam = "token"
)

type requestIDKey struct{}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// statusRecorder remembers the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Hijack lets the live stream upgrade through the recorder.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// logRequests tags every request with an id and logs its outcome.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		log.Printf("%s %s %d %s [%s]", r.Method, r.URL.Path, rec.status, time.Since(start), id)
	})
}

// authenticate rejects requests without a valid ID token and stores the
// caller's claim in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(collabauth.Header)
		if header == "" && websocket.IsWebSocketUpgrade(r) {
			header = r.URL.Query().Get(tokenParam)
		}
		claim, err := s.verifier.Verify(r.Context(), header)
		if err != nil {
			renderError(w, r, apicodes.As(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(collabauth.WithClaim(r.Context(), claim)))
	})
}

// caller is the uid of the authenticated user.
func caller(r *http.Request) string {
	claim, ok := collabauth.ClaimFrom(r.Context())
	if !ok {
		return ""
	}
	return claim.UID
}
