package handler

import (
	"context"
	"net/http"
	"time"

	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// PingFunc checks one backing service.
type PingFunc func(ctx context.Context) error

// Counter reports a live count, such as connected websocket clients.
type Counter func() int

type SystemHandler struct {
	checks  map[string]PingFunc
	clients Counter
	started time.Time
}

func NewSystemHandler(checks map[string]PingFunc, clients Counter) *SystemHandler {
	return &SystemHandler{checks: checks, clients: clients, started: time.Now()}
}

type dependencyStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *SystemHandler) pingAll(ctx context.Context) (map[string]dependencyStatus, bool) {
	out := make(map[string]dependencyStatus, len(h.checks))
	healthy := true
	for name, ping := range h.checks {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		start := time.Now()
		err := ping(pctx)
		cancel()
		if err != nil {
			healthy = false
			utils.TrackError("health", name)
			out[name] = dependencyStatus{Status: "down", Error: err.Error()}
			continue
		}
		out[name] = dependencyStatus{Status: "up", Latency: time.Since(start).String()}
	}
	return out, healthy
}

// Liveness answers 200 while the process is serving, 503 when a dependency
// is unreachable.
func (h *SystemHandler) Liveness(c *gin.Context) {
	deps, healthy := h.pingAll(c.Request.Context())
	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, &utils.Response{
		Status: status,
		Data:   gin.H{"status": state, "dependencies": deps},
	})
}

// Health is the admin view: dependency pings plus host and pool stats.
func (h *SystemHandler) Health(c *gin.Context) {
	deps, healthy := h.pingAll(c.Request.Context())
	clients := 0
	if h.clients != nil {
		clients = h.clients()
	}
	utils.Success(c, gin.H{
		"healthy":           healthy,
		"uptime":            time.Since(h.started).Round(time.Second).String(),
		"dependencies":      deps,
		"system":            utils.GetSystemStats(),
		"mongo_pool":        utils.GetMongoMetrics(),
		"websocket_clients": clients,
	})
}
