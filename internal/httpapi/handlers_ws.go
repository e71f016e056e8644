package httpapi

import "net/http"

// handleWS upgrades the connection and joins it to the status broadcast hub.
// ServeWS owns the connection's full lifecycle; nothing to respond with here
// on success since the hub writes directly to the socket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.ServeWS(w, r); err != nil {
		s.log.Error("websocket upgrade failed", map[string]any{"error": err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"ws_clients":    s.hub.ClientCount(),
		"active_docs":   len(s.statusMgr.Active()),
	})
}
