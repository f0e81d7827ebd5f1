package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rzbill/uid/pkg/wire"
)

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// writeReply writes a block reply with the HTTP status matching its wire status.
func writeReply(w http.ResponseWriter, reply wire.BlockReply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(reply.Status))
	_ = json.NewEncoder(w).Encode(reply)
}

func httpStatus(s wire.Status) int {
	switch s {
	case wire.StatusOK:
		return http.StatusOK
	case wire.StatusBlockTooLarge, wire.StatusProtocolError:
		return http.StatusBadRequest
	case wire.StatusRanOutOfSpace:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// parseUint parses a required unsigned decimal.
func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("missing value")
	}
	return strconv.ParseUint(s, 10, 64)
}
