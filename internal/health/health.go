// Package health answers liveness and readiness probes for the agent's
// observability endpoint.
//
// /healthz reports the process is up. /readyz additionally probes the
// collaborators the voice loop depends on (synthesis, dialogue, the memory
// store) and fails when any of them is unreachable. Both answer a JSON body
// with a "status" of "ok" or "fail" and a per-check "checks" map.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds each collaborator probe during a readiness request.
const probeTimeout = 5 * time.Second

// Checker probes one dependency. Check returns nil when the dependency is
// healthy and must honour ctx cancellation.
type Checker struct {
	// Name labels the check in the JSON response ("tts", "llm", "memory").
	Name string

	Check func(ctx context.Context) error
}

// Handler answers the probe routes. The checker set is fixed at construction;
// the handler itself holds no request state and is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New returns a Handler that evaluates the given checkers, in order, on each
// readiness request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// report is the JSON body of both probe responses.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz answers the liveness probe. Serving the request at all is the
// evidence of life, so it never fails.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: "ok"})
}

// Readyz runs every checker with a probeTimeout budget and answers 200 only
// when all pass. Failing checks carry their error text in the checks map so
// an operator can see which collaborator is down without reading logs.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	code := http.StatusOK

	for _, c := range h.checkers {
		if err := probe(r.Context(), c); err != nil {
			rep.Checks[c.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			code = http.StatusServiceUnavailable
			continue
		}
		rep.Checks[c.Name] = "ok"
	}

	respond(w, code, rep)
}

func probe(ctx context.Context, c Checker) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return c.Check(ctx)
}

// Register mounts both probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func respond(w http.ResponseWriter, code int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
