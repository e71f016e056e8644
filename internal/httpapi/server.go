// Package httpapi exposes the HTTP surface for document upload, the
// processing webhook, the document catalog, page image serving, status
// polling and live updates, and the research endpoints.
package httpapi

import (
	"net/http"

	"github.com/TuckerTucker/tkr-docusearch/internal/docregistry"
	"github.com/TuckerTucker/tkr-docusearch/internal/objectstore"
	"github.com/TuckerTucker/tkr-docusearch/internal/processor"
	"github.com/TuckerTucker/tkr-docusearch/internal/research"
	"github.com/TuckerTucker/tkr-docusearch/internal/retrieve"
	"github.com/TuckerTucker/tkr-docusearch/internal/statusfabric"
	"github.com/TuckerTucker/tkr-docusearch/internal/vectorstore"
)

// Logger is a minimal logging interface satisfied by zerolog and others.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
}

// NoopLogger implements Logger without side effects.
type NoopLogger struct{}

func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
func (NoopLogger) Debug(string, map[string]any) {}

// ContextConfig is the fixed config POST /research/context-only builds
// against — the same shape the research orchestrator uses internally, but
// exposed standalone for external LLM clients that want raw context.
type ContextConfig struct {
	NumSources    int
	VisionEnabled bool
	MaxImages     int
	ImageBaseURL  string
	TokenBudget   int
}

// Server wires every dependency the HTTP surface needs: the processor
// (run synchronously per request in a background goroutine), the status
// fabric (manager + hub + upload registry), the document catalog, the page
// image store, the retrieval engine, and the research orchestrator.
type Server struct {
	mux *http.ServeMux

	proc         *processor.Processor
	statusMgr    *statusfabric.Manager
	hub          *statusfabric.Hub
	uploads      *statusfabric.Registry
	docs         *docregistry.Registry
	images       objectstore.ObjectStore
	vectorStore  vectorstore.Store
	engine       *retrieve.Engine
	orchestrator *research.Orchestrator
	contextCfg   ContextConfig

	log Logger
}

// Deps bundles every collaborator NewServer wires into the mux.
type Deps struct {
	Processor    *processor.Processor
	StatusMgr    *statusfabric.Manager
	Hub          *statusfabric.Hub
	Uploads      *statusfabric.Registry
	Docs         *docregistry.Registry
	Images       objectstore.ObjectStore
	VectorStore  vectorstore.Store
	Engine       *retrieve.Engine
	Orchestrator *research.Orchestrator
	ContextCfg   ContextConfig
	Logger       Logger
}

// NewServer builds the HTTP API server wired to Deps.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = NoopLogger{}
	}
	s := &Server{
		mux:          http.NewServeMux(),
		proc:         d.Processor,
		statusMgr:    d.StatusMgr,
		hub:          d.Hub,
		uploads:      d.Uploads,
		docs:         d.Docs,
		images:       d.Images,
		vectorStore:  d.VectorStore,
		engine:       d.Engine,
		orchestrator: d.Orchestrator,
		contextCfg:   d.ContextCfg,
		log:          d.Logger,
	}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /upload/register", s.handleUploadRegister)
	s.mux.HandleFunc("POST /process", s.handleProcess)

	s.mux.HandleFunc("GET /documents", s.handleListDocuments)
	s.mux.HandleFunc("GET /documents/{docID}", s.handleGetDocument)
	s.mux.HandleFunc("DELETE /documents/{docID}", s.handleDeleteDocument)

	s.mux.HandleFunc("GET /images/{docID}/{filename}", s.handleGetImage)

	s.mux.HandleFunc("GET /status/{docID}", s.handleGetStatus)
	s.mux.HandleFunc("GET /status/queue", s.handleStatusQueue)
	s.mux.HandleFunc("GET /status/active", s.handleStatusActive)
	s.mux.HandleFunc("GET /status/stats", s.handleStatusStats)

	s.mux.HandleFunc("GET /ws", s.handleWS)

	s.mux.HandleFunc("POST /research/ask", s.handleResearchAsk)
	s.mux.HandleFunc("POST /research/context-only", s.handleResearchContextOnly)

	s.mux.HandleFunc("GET /health", s.handleHealth)
}
