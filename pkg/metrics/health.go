package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Component names reported by burrow serve
const (
	ComponentRegistry = "registry"
	ComponentAWS      = "aws"
)

// CriticalComponents must have reported healthy before /ready succeeds
var CriticalComponents = []string{ComponentRegistry, ComponentAWS}

const (
	// DefaultProbeTTL is how long a probe result is reused before the probe runs again
	DefaultProbeTTL = 15 * time.Second
	probeTimeout    = 5 * time.Second
)

// Probe actively checks one component
type Probe func(ctx context.Context) error

// HealthStatus is the body of /health and /ready
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// componentState is the last known state of one component. A component is
// known once a probe ran or an outcome was reported for it. seq increases
// with every stored result.
type componentState struct {
	probe   Probe
	known   bool
	err     error
	checked time.Time
	seq     uint64
}

func (c *componentState) stale(now time.Time, ttl time.Duration) bool {
	return c.probe != nil && (!c.known || now.Sub(c.checked) >= ttl)
}

func (c *componentState) store(err error, at time.Time) {
	c.known = true
	c.err = err
	c.checked = at
	c.seq++
}

type healthRegistry struct {
	mu         sync.Mutex
	probes     singleflight.Group
	components map[string]*componentState
	started    time.Time
	version    string
	ttl        time.Duration
	now        func() time.Time
}

var health = newHealthRegistry()

func newHealthRegistry() *healthRegistry {
	return &healthRegistry{
		components: make(map[string]*componentState),
		started:    time.Now(),
		ttl:        DefaultProbeTTL,
		now:        time.Now,
	}
}

func (h *healthRegistry) component(name string) *componentState {
	c, ok := h.components[name]
	if !ok {
		c = &componentState{}
		h.components[name] = c
	}
	return c
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.version = version
}

// RegisterProbe attaches an active check to a component. Probes run from
// the health endpoints when the last result is older than the probe TTL.
func RegisterProbe(name string, probe Probe) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.component(name).probe = probe
}

// Report records the outcome of a real operation against a component.
// It counts as a fresh probe result.
func Report(name string, err error) {
	health.mu.Lock()
	defer health.mu.Unlock()

	health.component(name).store(err, health.now())
}

// refresh runs every probe whose result is stale. Probes run without the
// lock held so a slow AWS call does not block Report, and concurrent
// callers share one run per component.
func (h *healthRegistry) refresh(ctx context.Context) {
	h.mu.Lock()
	now := h.now()
	stale := make(map[string]Probe)
	for name, c := range h.components {
		if c.stale(now, h.ttl) {
			stale[name] = c.probe
		}
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for name, probe := range stale {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.runProbe(ctx, name, probe)
		}()
	}
	wg.Wait()
}

func (h *healthRegistry) runProbe(ctx context.Context, name string, probe Probe) {
	_, _, _ = h.probes.Do(name, func() (interface{}, error) {
		h.mu.Lock()
		c := h.component(name)
		if !c.stale(h.now(), h.ttl) {
			// Another caller refreshed it since the staleness check
			h.mu.Unlock()
			return nil, nil
		}
		seq := c.seq
		h.mu.Unlock()

		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		err := probe(pctx)

		h.mu.Lock()
		defer h.mu.Unlock()
		// A result stored while the probe ran is newer than this one
		if c.seq == seq {
			c.store(err, h.now())
		}
		return nil, nil
	})
}

// GetHealth reports unhealthy if any known component is unhealthy
func GetHealth(ctx context.Context) HealthStatus {
	health.refresh(ctx)

	health.mu.Lock()
	defer health.mu.Unlock()

	status := "healthy"
	components := make(map[string]string, len(health.components))
	for name, c := range health.components {
		switch {
		case !c.known:
			components[name] = "unknown"
		case c.err != nil:
			status = "unhealthy"
			components[name] = "unhealthy: " + c.err.Error()
		default:
			components[name] = "healthy"
		}
	}
	return health.status(status, "", components)
}

// GetReadiness reports ready only when every critical component is known
// and healthy
func GetReadiness(ctx context.Context) HealthStatus {
	health.refresh(ctx)

	health.mu.Lock()
	defer health.mu.Unlock()

	status := "ready"
	message := ""
	components := make(map[string]string, len(CriticalComponents))
	for _, name := range CriticalComponents {
		c, ok := health.components[name]
		switch {
		case !ok || !c.known:
			status = "not_ready"
			message = "waiting for " + name
			components[name] = "unknown"
		case c.err != nil:
			status = "not_ready"
			message = name + " unavailable"
			components[name] = "not ready: " + c.err.Error()
		default:
			components[name] = "ready"
		}
	}
	return health.status(status, message, components)
}

func (h *healthRegistry) status(status, message string, components map[string]string) HealthStatus {
	return HealthStatus{
		Status:     status,
		Timestamp:  h.now().UTC(),
		Components: components,
		Message:    message,
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
	}
}

// HealthHandler serves /health
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := GetHealth(r.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

// ReadyHandler serves /ready
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := GetReadiness(r.Context())
		code := http.StatusOK
		if status.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

// LivenessHandler serves /live. It never runs probes.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(health.started).Round(time.Second).String(),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
