// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker probes one dependency.
type Checker func(ctx context.Context) error

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// checkTimeout bounds each probe, whatever the caller's deadline.
const checkTimeout = 3 * time.Second

type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Latency  string `json:"latency"`
	Error    string `json:"error,omitempty"`
}

type dependency struct {
	check    Checker
	critical bool
}

// Handler aggregates dependency checks. A failing critical dependency makes
// the service unready; a failing non-critical one only degrades it.
type Handler struct {
	mu   sync.RWMutex
	deps map[string]dependency
}

func NewHandler() *Handler {
	return &Handler{deps: make(map[string]dependency)}
}

func (h *Handler) RegisterCritical(name string, c Checker) {
	h.add(name, c, true)
}

func (h *Handler) RegisterNonCritical(name string, c Checker) {
	h.add(name, c, false)
}

func (h *Handler) add(name string, c Checker, critical bool) {
	h.mu.Lock()
	h.deps[name] = dependency{check: c, critical: critical}
	h.mu.Unlock()
}

// LivenessHandler answers 200 while the process can serve HTTP.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler runs every check concurrently: 503 when a critical check
// fails, otherwise 200 with status up or degraded.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())
		code := http.StatusOK
		if resp.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

// Check runs the registered checks and folds them into one status.
func (h *Handler) Check(ctx context.Context) Response {
	h.mu.RLock()
	deps := make(map[string]dependency, len(h.deps))
	for name, d := range h.deps {
		deps[name] = d
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(deps))
	)
	for name, d := range deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := probe(ctx, d)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := StatusUp
	for _, res := range results {
		switch {
		case res.Status == StatusUp:
		case res.Critical:
			status = StatusDown
		case status == StatusUp:
			status = StatusDegraded
		}
	}
	return Response{Status: status, Timestamp: time.Now().UTC(), Checks: results}
}

func probe(ctx context.Context, d dependency) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := d.check(ctx)
	res := CheckResult{Status: StatusUp, Critical: d.critical, Latency: time.Since(start).Round(time.Microsecond).String()}
	if err != nil {
		res.Status = StatusDown
		res.Error = err.Error()
	}
	return res
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
