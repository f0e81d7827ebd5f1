package controllers

import (
	"net/http"

	"github.com/rzbill/uid/internal/runtime"
)

// GeneralController handles health and status endpoints.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers /v1/healthz and /v1/status.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/status", c.handleStatus)
}

// handleHealth returns 200 {"status":"ok"} while the allocator serves and
// 503 after a kill or persistence failure.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleStatus reports cursor, checkpoint and range.
func (c *GeneralController) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, statusResp{
		Namespace: c.rt.Namespace(),
		Backend:   c.rt.Config().Backend,
		Snapshot:  c.rt.Allocator().Snapshot(),
	})
}
