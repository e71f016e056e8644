package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/TuckerTucker/tkr-docusearch/internal/apperrors"
	"github.com/TuckerTucker/tkr-docusearch/internal/statusfabric"
)

type registerRequest struct {
	Filename     string `json:"filename"`
	ExpectedSize int64  `json:"expected_size"`
	ContentHash  string `json:"content_hash,omitempty"`
}

type registerResponse struct {
	DocID       string `json:"doc_id"`
	IsDuplicate bool   `json:"is_duplicate"`
	ExistingDoc string `json:"existing_doc,omitempty"`
}

func (s *Server) handleUploadRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.Validation("invalid upload/register body", err))
		return
	}
	if req.Filename == "" {
		respondError(w, apperrors.Validation("filename is required", nil))
		return
	}

	result := s.uploads.Register(statusfabric.UploadIntent{
		Filename:     req.Filename,
		ExpectedSize: req.ExpectedSize,
		ContentHash:  req.ContentHash,
	})
	if !result.IsDuplicate {
		s.statusMgr.Register(result.DocID, req.Filename)
	}

	respondJSON(w, http.StatusOK, registerResponse{
		DocID:       result.DocID,
		IsDuplicate: result.IsDuplicate,
		ExistingDoc: result.ExistingDoc,
	})
}

type processRequest struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type processResponse struct {
	DocID  string `json:"doc_id"`
	Status string `json:"status"`
}

// handleProcess is the internal webhook an upload receiver calls once a
// document's bytes have landed on disk. It reserves a processing slot,
// kicks off the pipeline in the background, and returns immediately — the
// caller tracks completion via /status/{doc_id} or the WS feed.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.Validation("invalid process body", err))
		return
	}
	if req.DocID == "" || req.Filename == "" || req.Path == "" {
		respondError(w, apperrors.Validation("doc_id, filename, and path are required", nil))
		return
	}

	if !s.uploads.TryAcquireSlot() {
		respondErrorCode(w, http.StatusTooManyRequests, apperrors.CodeUploadFailed, "processing queue is full")
		return
	}

	go func() {
		defer s.uploads.ReleaseSlot()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		res, err := s.proc.Process(ctx, req.DocID, req.Filename, req.Path)
		if err != nil {
			s.log.Error("document processing failed", map[string]any{"doc_id": req.DocID, "error": err.Error()})
			return
		}
		s.docs.Put(req.DocID, req.Filename, res.Doc.FileType, res.Doc.Pages, res.Chunks, res.Structure)
	}()

	respondJSON(w, http.StatusAccepted, processResponse{DocID: req.DocID, Status: "queued"})
}
