package api

import (
	"net/http"
)

func (s *Server) handleDeliveryStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "delivery stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.stats.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"delivered":   s.orchestrator.DeliveredCount(),
	})
}
