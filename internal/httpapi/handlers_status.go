package httpapi

import (
	"net/http"

	"github.com/TuckerTucker/tkr-docusearch/internal/apperrors"
)

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("docID")
	rec, ok := s.statusMgr.Get(docID)
	if !ok {
		respondError(w, apperrors.New(apperrors.CodeDocumentNotFound, apperrors.ClassValidation,
			"no status for document", nil))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatusQueue(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"queue": s.statusMgr.Queue()})
}

func (s *Server) handleStatusActive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"active": s.statusMgr.Active()})
}

func (s *Server) handleStatusStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.statusMgr.Stats())
}
