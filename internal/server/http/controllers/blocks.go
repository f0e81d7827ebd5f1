package controllers

import (
	"net/http"

	"github.com/rzbill/uid/internal/namespace"
	"github.com/rzbill/uid/internal/runtime"
	"github.com/rzbill/uid/pkg/log"
	"github.com/rzbill/uid/pkg/wire"
)

// BlocksController hands out blocks over HTTP through the same allocator as
// the binary protocol listener.
type BlocksController struct {
	rt     *runtime.Runtime
	logger log.Logger
}

// NewBlocksController creates a new blocks controller.
func NewBlocksController(rt *runtime.Runtime, logger log.Logger) *BlocksController {
	return &BlocksController{rt: rt, logger: logger.WithComponent("http.blocks")}
}

// RegisterRoutes registers /v1/blocks and /v1/blocks/max-size.
func (c *BlocksController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/blocks", c.handleAllocate)
	mux.HandleFunc("/v1/blocks/max-size", c.handleMaxSize)
}

// handleAllocate serves GET /v1/blocks?namespace=<ns>&size=<n>.
func (c *BlocksController) handleAllocate(w http.ResponseWriter, r *http.Request) {
	if !c.checkRequest(w, r) {
		return
	}
	size, err := parseUint(r.URL.Query().Get("size"))
	if err != nil {
		writeReply(w, wire.BlockReply{Status: wire.StatusProtocolError, Error: "size must be an unsigned integer"})
		return
	}
	c.serve(w, r, wire.Request{Code: wire.CodeAllocate, Size: size})
}

// handleMaxSize serves GET /v1/blocks/max-size?namespace=<ns>.
func (c *BlocksController) handleMaxSize(w http.ResponseWriter, r *http.Request) {
	if !c.checkRequest(w, r) {
		return
	}
	c.serve(w, r, wire.Request{Code: wire.CodeQueryMaxSize})
}

func (c *BlocksController) checkRequest(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	ns := r.URL.Query().Get("namespace")
	if ns == "" {
		ns = namespace.DefaultName
	}
	if ns != c.rt.Namespace() {
		writeError(w, http.StatusNotFound, "unknown namespace "+ns)
		return false
	}
	return true
}

func (c *BlocksController) serve(w http.ResponseWriter, r *http.Request, req wire.Request) {
	resp := c.rt.Allocator().Handle(req)
	c.logger.Debug("http request served",
		log.Str(log.RequestIDKey, r.Header.Get("X-Request-Id")),
		log.Str(log.RemoteKey, r.RemoteAddr),
		log.Str("code", req.Code.String()),
		log.Str("status", resp.Status.String()))
	reply := wire.BlockReply{Interval: resp.Interval, Status: resp.Status}
	if err := resp.Status.Err(); err != nil {
		reply.Error = err.Error()
	}
	writeReply(w, reply)
}
