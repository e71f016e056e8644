package httpapi

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/TuckerTucker/tkr-docusearch/internal/apperrors"
	rcontext "github.com/TuckerTucker/tkr-docusearch/internal/context"
	"github.com/TuckerTucker/tkr-docusearch/internal/research"
	"github.com/TuckerTucker/tkr-docusearch/internal/retrieve"
	"github.com/TuckerTucker/tkr-docusearch/internal/vectorstore"
)

type askRequest struct {
	Query      string              `json:"query"`
	NumSources int                 `json:"num_sources,omitempty"`
	SearchMode string              `json:"search_mode,omitempty"`
	Filters    vectorstore.Filters `json:"filters,omitempty"`
}

func (s *Server) handleResearchAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.Validation("invalid research/ask body", err))
		return
	}

	result, err := s.orchestrator.Ask(r.Context(), req.Query, research.AskOptions{
		NumSources: req.NumSources,
		Mode:       retrieve.Mode(req.SearchMode),
		Filters:    req.Filters,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type contextOnlyRequest struct {
	Query      string              `json:"query"`
	NumSources int                 `json:"num_sources,omitempty"`
	SearchMode string              `json:"search_mode,omitempty"`
	Filters    vectorstore.Filters `json:"filters,omitempty"`
}

type contextOnlyResponse struct {
	ContextText      string               `json:"context_text"`
	Sources          []rcontext.SourceRef `json:"sources"`
	ImageURLs        []string             `json:"image_urls,omitempty"`
	ContextTruncated bool                 `json:"context_truncated"`
}

// handleResearchContextOnly runs retrieval and context assembly but never
// calls the foundation LLM — for external clients that want to bring their
// own model.
func (s *Server) handleResearchContextOnly(w http.ResponseWriter, r *http.Request) {
	var req contextOnlyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.Validation("invalid research/context-only body", err))
		return
	}

	q := req.Query
	if n := utf8.RuneCountInString(q); n < 3 || n > 500 {
		respondError(w, apperrors.Validation("query must be 3-500 characters", nil))
		return
	}

	numSources := req.NumSources
	if numSources <= 0 {
		numSources = s.contextCfg.NumSources
	}

	hits, err := s.engine.Search(r.Context(), q, retrieve.Options{
		Mode:       retrieve.Mode(req.SearchMode),
		NumSources: numSources,
		Filters:    req.Filters,
	})
	if err != nil {
		respondError(w, apperrors.New(apperrors.CodeDatabaseError, apperrors.ClassTransient, "search failed", err))
		return
	}

	built := rcontext.Build(hits, rcontext.Config{
		NumSources:    numSources,
		VisionEnabled: s.contextCfg.VisionEnabled,
		MaxImages:     s.contextCfg.MaxImages,
		ImageBaseURL:  s.contextCfg.ImageBaseURL,
		TokenBudget:   s.contextCfg.TokenBudget,
	})

	respondJSON(w, http.StatusOK, contextOnlyResponse{
		ContextText:      built.Text,
		Sources:          built.Sources,
		ImageURLs:        built.ImageURLs,
		ContextTruncated: built.ContextTruncated,
	})
}
