package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spektr-org/spektr-retail/artifact"
	"github.com/spektr-org/spektr-retail/dataset"
	"github.com/spektr-org/spektr-retail/delivery"
	"github.com/spektr-org/spektr-retail/engine"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

// statusFor maps a pipeline error to its HTTP status and user-facing message.
func statusFor(err error) (int, string) {
	var (
		invalid  *engine.InvalidPlanError
		empty    *engine.EmptyResultError
		axis     *engine.UnknownAxisError
		upstream *engine.UpstreamServiceError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity, "could not understand the query"
	case errors.As(err, &empty):
		return http.StatusNotFound, "no data matched your filters"
	case errors.As(err, &axis):
		return http.StatusBadRequest, "cannot group by " + axis.Axis
	case errors.As(err, &upstream):
		return http.StatusBadGateway, upstream.Service + " is unavailable"
	case errors.Is(err, dataset.ErrUnavailable):
		return http.StatusServiceUnavailable, "dataset unavailable"
	case errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound, "no report available"
	case errors.Is(err, delivery.ErrUnknownChannel):
		return http.StatusBadRequest, "unknown channel"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid request body"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"path", r.URL.Path, "status", status, "error", err, "request_id", reqID(r.Context()))
	writeJSON(w, status, errorBody{Error: msg, Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
