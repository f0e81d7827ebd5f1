package controllers

import "github.com/rzbill/uid/internal/allocator"

// statusResp is the body of GET /v1/status.
type statusResp struct {
	Namespace string             `json:"namespace"`
	Backend   string             `json:"backend"`
	Snapshot  allocator.Snapshot `json:"snapshot"`
}
