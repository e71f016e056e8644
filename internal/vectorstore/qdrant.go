package vectorstore

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/TuckerTucker/tkr-docusearch/internal/apperrors"
	"github.com/TuckerTucker/tkr-docusearch/internal/codec"
	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// payloadIDField carries the original stable id, since Qdrant point ids must
// be UUIDs or positive integers.
const payloadIDField = "_original_id"

const (
	fieldSeqLength      = "seq_length"
	fieldEmbeddingShape = "embedding_dim"
	fieldFullEmbeddings = "full_embeddings"
)

// QdrantConfig configures the two-collection Qdrant-backed store.
type QdrantConfig struct {
	Host             string
	Port             int
	UseTLS           bool
	APIKey           string
	VisualCollection string
	TextCollection   string
	Dim              int
}

type qdrantStore struct {
	client *qdrant.Client
	cfg    QdrantConfig
}

func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (Store, error) {
	if cfg.VisualCollection == "" || cfg.TextCollection == "" {
		return nil, apperrors.Validation("visual and text collection names are required", nil)
	}
	if cfg.Dim <= 0 {
		cfg.Dim = 768
	}
	qc := &qdrant.Config{Host: cfg.Host, Port: cfg.Port, UseTLS: cfg.UseTLS}
	if cfg.APIKey != "" {
		qc.APIKey = cfg.APIKey
	}
	client, err := qdrant.NewClient(qc)
	if err != nil {
		return nil, apperrors.Transient(apperrors.CodeDatabaseError, "create qdrant client", err)
	}
	s := &qdrantStore{client: client, cfg: cfg}
	if err := s.ensureCollection(ctx, cfg.VisualCollection); err != nil {
		client.Close()
		return nil, err
	}
	if err := s.ensureCollection(ctx, cfg.TextCollection); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *qdrantStore) ensureCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return apperrors.Transient(apperrors.CodeDatabaseError, "check collection exists", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.cfg.Dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return apperrors.Transient(apperrors.CodeDatabaseError, "create collection "+name, err)
	}
	return nil
}

func (s *qdrantStore) collectionFor(c Collection) string {
	if c == CollectionText {
		return s.cfg.TextCollection
	}
	return s.cfg.VisualCollection
}

func pointID(id string) *qdrant.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

func (s *qdrantStore) upsert(ctx context.Context, collection Collection, id string, mv docmodel.MultiVector, metadata map[string]string) error {
	if err := validateMultiVector(mv); err != nil {
		return err
	}
	blob, seqLen, dim, err := compressFull(mv)
	if err != nil {
		return err
	}

	payload := make(map[string]any, len(metadata)+4)
	for k, v := range metadata {
		payload[k] = v
	}
	payload[fieldFullEmbeddings] = blob
	payload[fieldSeqLength] = strconv.Itoa(seqLen)
	payload[fieldEmbeddingShape] = strconv.Itoa(dim)
	payload[payloadIDField] = id

	point := &qdrant.PointStruct{
		Id:      pointID(id),
		Vectors: qdrant.NewVectorsDense(append([]float32{}, mv.CLS()...)),
		Payload: qdrant.NewValueMap(payload),
	}
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionFor(collection),
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return apperrors.Transient(apperrors.CodeDatabaseError, "upsert point", err)
	}
	return nil
}

func (s *qdrantStore) AddVisual(ctx context.Context, docID string, page int, mv docmodel.MultiVector, meta VisualMeta) (string, error) {
	id := visualID(docID, page)
	md := map[string]string{
		"doc_id":   docID,
		"filename": meta.Filename,
		"page":     strconv.Itoa(page),
		"type":     "visual",
	}
	if meta.StructureCompressed != "" {
		md["structure_compressed"] = meta.StructureCompressed
	}
	if meta.PageContext != "" {
		md["page_context"] = meta.PageContext
	}
	if meta.Timestamp != "" {
		md["timestamp"] = meta.Timestamp
	}
	if meta.SourcePath != "" {
		md["source_path"] = meta.SourcePath
	}
	if err := s.upsert(ctx, CollectionVisual, id, mv, md); err != nil {
		return "", err
	}
	return id, nil
}

func (s *qdrantStore) AddText(ctx context.Context, docID string, chunkID int, mv docmodel.MultiVector, meta TextMeta) (string, error) {
	id := textID(docID, chunkID)
	md := map[string]string{
		"doc_id":       docID,
		"filename":     meta.Filename,
		"page":         strconv.Itoa(meta.Page),
		"chunk_id":     strconv.Itoa(chunkID),
		"type":         "text",
		"text_preview": preview(meta.TextPreview, docmodel.TextPreviewMaxChars),
		"word_count":   strconv.Itoa(meta.WordCount),
	}
	if meta.ContextCompressed != "" {
		md["context_compressed"] = meta.ContextCompressed
	}
	if meta.Timestamp != "" {
		md["timestamp"] = meta.Timestamp
	}
	if meta.SourcePath != "" {
		md["source_path"] = meta.SourcePath
	}
	if err := s.upsert(ctx, CollectionText, id, mv, md); err != nil {
		return "", err
	}
	return id, nil
}

func (s *qdrantStore) Search(ctx context.Context, collection Collection, queryCLS []float32, k int, filters Filters) ([]SearchHit, error) {
	if k <= 0 {
		k = 10
	}
	var queryFilter *qdrant.Filter
	if len(filters) > 0 {
		must := make([]*qdrant.Condition, 0, len(filters))
		for k, v := range filters {
			must = append(must, qdrant.NewMatch(k, v))
		}
		queryFilter = &qdrant.Filter{Must: must}
	}
	limit := uint64(k)
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionFor(collection),
		Query:          qdrant.NewQueryDense(append([]float32{}, queryCLS...)),
		Limit:          &limit,
		Filter:         queryFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperrors.Transient(apperrors.CodeDatabaseError, "query collection", err)
	}

	hits := make([]SearchHit, 0, len(result))
	for _, hit := range result {
		metadata := make(map[string]string)
		var originalID string
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				switch k {
				case payloadIDField:
					originalID = v.GetStringValue()
				case fieldFullEmbeddings, fieldSeqLength, fieldEmbeddingShape:
					// excluded from stage-1 results per spec
				default:
					metadata[k] = v.GetStringValue()
				}
			}
		}
		id := originalID
		if id == "" {
			id = hit.Id.GetUuid()
		}
		score := (float64(hit.Score) + 1) / 2
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		hits = append(hits, SearchHit{ID: id, Score: score, Metadata: metadata})
	}
	return hits, nil
}

func (s *qdrantStore) GetFull(ctx context.Context, collection Collection, id string) (docmodel.MultiVector, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collectionFor(collection),
		Ids:            []*qdrant.PointId{pointID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return docmodel.MultiVector{}, apperrors.Transient(apperrors.CodeDatabaseError, "get point", err)
	}
	if len(points) == 0 {
		return docmodel.MultiVector{}, apperrors.New(apperrors.CodeDocumentNotFound, apperrors.ClassValidation, "record not found: "+id, apperrors.ErrNotFound)
	}
	payload := points[0].Payload
	blob := payload[fieldFullEmbeddings].GetStringValue()
	seqLen, _ := strconv.Atoi(payload[fieldSeqLength].GetStringValue())
	dim, _ := strconv.Atoi(payload[fieldEmbeddingShape].GetStringValue())
	vectors, err := codec.Decompress(blob, seqLen, dim)
	if err != nil {
		return docmodel.MultiVector{}, apperrors.Integrity("decompress embedding", err)
	}
	return docmodel.MultiVector{Vectors: vectors}, nil
}

func (s *qdrantStore) Delete(ctx context.Context, docID string) (int, int, error) {
	visualCount, err := s.deleteFromCollection(ctx, s.cfg.VisualCollection, docID)
	if err != nil {
		return 0, 0, err
	}
	textCount, err := s.deleteFromCollection(ctx, s.cfg.TextCollection, docID)
	if err != nil {
		return 0, 0, err
	}
	return visualCount, textCount, nil
}

func (s *qdrantStore) deleteFromCollection(ctx context.Context, collection, docID string) (int, error) {
	count, err := s.countByDocID(ctx, collection, docID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)},
		}),
	})
	if err != nil {
		return 0, apperrors.Transient(apperrors.CodeDatabaseError, "delete by doc_id", err)
	}
	return count, nil
}

func (s *qdrantStore) countByDocID(ctx context.Context, collection, docID string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)},
		},
	})
	if err != nil {
		return 0, apperrors.Transient(apperrors.CodeDatabaseError, "count by doc_id", err)
	}
	return int(n), nil
}

func (s *qdrantStore) Stats(ctx context.Context) (Stats, error) {
	visualCount, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: s.cfg.VisualCollection})
	if err != nil {
		return Stats{}, apperrors.Transient(apperrors.CodeDatabaseError, "count visual collection", err)
	}
	textCount, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: s.cfg.TextCollection})
	if err != nil {
		return Stats{}, apperrors.Transient(apperrors.CodeDatabaseError, "count text collection", err)
	}

	docs := map[string]bool{}
	if err := s.scrollDocIDs(ctx, s.cfg.VisualCollection, docs); err != nil {
		return Stats{}, err
	}
	if err := s.scrollDocIDs(ctx, s.cfg.TextCollection, docs); err != nil {
		return Stats{}, err
	}

	return Stats{
		VisualCount:  int(visualCount),
		TextCount:    int(textCount),
		DistinctDocs: len(docs),
		// approx storage is not computed server-side by Qdrant's gRPC API; a
		// cluster-level estimate would require the collection info endpoint,
		// so it is left at 0; no caller fills it in.
		ApproxStorageMB: 0,
	}, nil
}

func (s *qdrantStore) scrollDocIDs(ctx context.Context, collection string, docs map[string]bool) error {
	limit := uint32(256)
	var offset *qdrant.PointId
	for {
		resp, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("doc_id"),
		})
		if err != nil {
			return apperrors.Transient(apperrors.CodeDatabaseError, "scroll collection", err)
		}
		for _, p := range resp {
			if v, ok := p.Payload["doc_id"]; ok {
				docs[v.GetStringValue()] = true
			}
		}
		if len(resp) < int(limit) {
			return nil
		}
		offset = resp[len(resp)-1].Id
	}
}

func (s *qdrantStore) Close() error {
	return s.client.Close()
}
