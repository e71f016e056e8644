package httpapi

import (
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/TuckerTucker/tkr-docusearch/internal/apperrors"
	"github.com/TuckerTucker/tkr-docusearch/internal/docregistry"
	"github.com/TuckerTucker/tkr-docusearch/internal/objectstore"
)

type documentSummary struct {
	DocID     string `json:"doc_id"`
	Filename  string `json:"filename"`
	FileType  string `json:"file_type"`
	DateAdded string `json:"date_added"`
	PageCount int    `json:"page_count"`
	ChunkCount int   `json:"chunk_count"`
}

func toSummary(rec docregistry.Record) documentSummary {
	return documentSummary{
		DocID:      rec.DocID,
		Filename:   rec.Filename,
		FileType:   rec.FileType,
		DateAdded:  rec.DateAdded.Format(timeLayout),
		PageCount:  rec.PageCount(),
		ChunkCount: len(rec.Chunks),
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	sortBy := docregistry.SortField(q.Get("sort_by"))
	switch sortBy {
	case docregistry.SortDateAdded, docregistry.SortFilename, docregistry.SortPageCount:
	default:
		sortBy = docregistry.SortDateAdded
	}

	result := s.docs.List(docregistry.ListOptions{
		Limit:  limit,
		Offset: offset,
		Search: q.Get("search"),
		SortBy: sortBy,
	})

	summaries := make([]documentSummary, 0, len(result.Records))
	for _, rec := range result.Records {
		summaries = append(summaries, toSummary(rec))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"documents": summaries,
		"total":     result.Total,
		"limit":     limit,
		"offset":    offset,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("docID")
	rec, ok := s.docs.Get(docID)
	if !ok {
		respondError(w, apperrors.New(apperrors.CodeDocumentNotFound, apperrors.ClassValidation,
			"document not found", nil))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"pages":  rec.Pages,
		"chunks": rec.Chunks,
		"metadata": map[string]any{
			"doc_id":     rec.DocID,
			"filename":   rec.Filename,
			"file_type":  rec.FileType,
			"date_added": rec.DateAdded.Format(timeLayout),
			"structure":  rec.Structure,
		},
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("docID")
	ctx := r.Context()

	if _, _, err := s.vectorStore.Delete(ctx, docID); err != nil {
		respondError(w, apperrors.New(apperrors.CodeDatabaseError, apperrors.ClassTransient,
			"vector store delete failed", err))
		return
	}

	if s.images != nil {
		listing, err := s.images.List(ctx, objectstore.ListOptions{Prefix: docID + "/"})
		if err == nil {
			for _, obj := range listing.Objects {
				_ = s.images.Delete(ctx, obj.Key)
			}
		}
	}

	s.docs.Delete(docID)
	respondJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}

// imageFilenameRe matches the only filenames ever served under a document's
// image prefix: rendered pages, their thumbnails, and an audio cover.
var imageFilenameRe = regexp.MustCompile(`^(page\d{3}(_thumb\.jpg|\.png)|cover\.(jpg|jpeg|png))$`)

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("docID")
	filename := r.PathValue("filename")

	if !imageFilenameRe.MatchString(filename) {
		respondErrorCode(w, http.StatusForbidden, apperrors.CodeImageNotFound, "invalid image filename")
		return
	}

	key := docID + "/" + filename
	reader, attrs, err := s.images.Get(r.Context(), key)
	if err != nil {
		respondError(w, apperrors.New(apperrors.CodeImageNotFound, apperrors.ClassValidation,
			"image not found", err))
		return
	}
	defer reader.Close()

	contentType := attrs.ContentType
	if contentType == "" {
		contentType = contentTypeForExt(filename)
	}
	w.Header().Set("Content-Type", contentType)
	if attrs.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(attrs.Size, 10))
	}
	_, _ = io.Copy(w, reader)
}

func contentTypeForExt(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".png"):
		return "image/png"
	case strings.HasSuffix(filename, ".jpg"), strings.HasSuffix(filename, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

