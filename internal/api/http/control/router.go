package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/oshokin/ice-station/internal/arming"
	"github.com/oshokin/ice-station/internal/engine"
	"github.com/oshokin/ice-station/internal/journal"
	"github.com/oshokin/ice-station/internal/logger"
)

// Engine is the part of the session the API drives.
type Engine interface {
	Status(ctx context.Context) (engine.Status, error)
	Arm(ctx context.Context) error
	Disarm(ctx context.Context) error
	ArmStandalone(ctx context.Context) error
	DisarmStandalone(ctx context.Context) error
	Kill(ctx context.Context, mode string) error
	Ignore(ctx context.Context) error
	Recover(ctx context.Context) error
	ClearLog(ctx context.Context) error
}

// Journal lists the on-screen log.
type Journal interface {
	Entries() []journal.Entry
}

// maxBodySize bounds request bodies.
const maxBodySize = 4 << 10

// handler serves the routes.
type handler struct {
	// engine executes commands.
	engine Engine
	// journal provides log lines.
	journal Journal
}

// killRequest is the body of the kill command.
type killRequest struct {
	// KillMode is the mode broadcast to the PC agents.
	KillMode string `json:"killMode"`
}

// logLine is one rendered journal entry.
type logLine struct {
	journal.Entry

	// Text is the line as shown on screen.
	Text string `json:"text"`
}

// errorResponse is the body of every failure.
type errorResponse struct {
	// Error is the human readable notice.
	Error string `json:"error"`
}

// NewRouter builds the control API. metrics may be nil.
func NewRouter(eng Engine, j Journal, metrics http.Handler, timeout time.Duration) http.Handler {
	h := &handler{engine: eng, journal: j}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	if timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Get("/log", h.log)
		r.Delete("/log", h.clearLog)
		r.Post("/arm", h.run(eng.Arm))
		r.Post("/disarm", h.run(eng.Disarm))
		r.Post("/standalone", h.run(eng.ArmStandalone))
		r.Delete("/standalone", h.run(eng.DisarmStandalone))
		r.Post("/commands/kill", h.kill)
		r.Post("/commands/ignore", h.run(eng.Ignore))
		r.Post("/commands/recover", h.run(eng.Recover))
	})

	return r
}

// status returns the session view.
func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// log returns the journal oldest first.
func (h *handler) log(w http.ResponseWriter, _ *http.Request) {
	entries := h.journal.Entries()

	lines := make([]logLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, logLine{Entry: e, Text: e.String()})
	}

	writeJSON(w, http.StatusOK, lines)
}

// clearLog empties the journal.
func (h *handler) clearLog(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearLog(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// kill validates the body and broadcasts the command.
func (h *handler) kill(w http.ResponseWriter, r *http.Request) {
	var req killRequest

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	if err := h.engine.Kill(r.Context(), req.KillMode); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// run adapts a body-less engine command.
func (h *handler) run(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

// writeError maps engine errors to statuses: rejected commands are conflicts.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, arming.ErrKillModeRequired), errors.Is(err, arming.ErrUnknownCommand):
		status = http.StatusBadRequest
	case errors.Is(err, arming.ErrNotArmed),
		errors.Is(err, arming.ErrAlreadyArmed),
		errors.Is(err, engine.ErrHubUnavailable):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		logger.ErrorKV(r.Context(), "Control request failed", "path", r.URL.Path, "error", err)
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs every request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		logger.DebugKV(r.Context(), "Control request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started).String(),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}
