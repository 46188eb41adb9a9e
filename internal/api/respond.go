package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/neooriginal/FSCS/internal/apperr"
)

type errorBody struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Status: "error", Code: code, Message: message})
}

// writeError maps err onto the error taxonomy and logs it with the hashed
// user id only.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	attrs := []any{"path", r.URL.Path, "user_id", userIDFrom(r.Context()), "kind", kind, "error", err}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Warn("request rejected", attrs...)
	}

	writeErrorBody(w, status, apperr.Code(err), apperr.PublicMessage(err))
}

func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.WithCode(apperr.Validation, "payload_too_large", "Request body is too large")
		}
		return apperr.WithCode(apperr.Validation, "invalid_json", "Request body must be valid JSON")
	}
	return nil
}

// withTimeout runs fn on a context detached from the request. The caller
// gets an upstream_timeout after d; fn keeps running to completion.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(context.WithoutCancel(ctx))
		done <- result{v, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case res := <-done:
		return res.v, res.err
	case <-timer.C:
		return zero, apperr.New(apperr.UpstreamTimeout, "The request took too long to process. Please try again.")
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
