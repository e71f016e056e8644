package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TuckerTucker/tkr-docusearch/internal/docmodel"
)

// httpModel calls a configured multi-vector embedding endpoint, the real
// variant of Model.
type httpModel struct {
	cfg    Config
	client *http.Client
}

func newHTTPModel(cfg Config) *httpModel {
	return &httpModel{cfg: cfg, client: &http.Client{Timeout: 60 * time.Second}}
}

type embedTextReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedImageReq struct {
	Model  string   `json:"model"`
	Images []string `json:"images"` // base64-encoded
}

type multiVecResp struct {
	Data []struct {
		Embedding [][]float32 `json:"embedding"`
	} `json:"data"`
}

func (m *httpModel) EmbedTexts(ctx context.Context, texts []string) ([]docmodel.MultiVector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, _ := json.Marshal(embedTextReq{Model: m.cfg.Model, Input: texts})
	return m.post(ctx, "/embed/text", body, len(texts))
}

func (m *httpModel) EmbedImages(ctx context.Context, images [][]byte) ([]docmodel.MultiVector, error) {
	if len(images) == 0 {
		return nil, nil
	}
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}
	body, _ := json.Marshal(embedImageReq{Model: m.cfg.Model, Images: encoded})
	return m.post(ctx, "/embed/image", body, len(images))
}

func (m *httpModel) EmbedQuery(ctx context.Context, text string) (docmodel.MultiVector, error) {
	mv, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return docmodel.MultiVector{}, err
	}
	if len(mv) == 0 {
		return docmodel.MultiVector{}, fmt.Errorf("embedding: empty response for query")
	}
	return mv[0], nil
}

func (m *httpModel) ScoreMultiVector(query, doc docmodel.MultiVector) (float64, error) {
	return MaxSim(query, doc)
}

func (m *httpModel) Info() Info {
	return Info{Name: m.cfg.Model, Dim: Dim, Precision: m.precision(), Variant: string(VariantReal)}
}

func (m *httpModel) precision() string {
	if m.cfg.Precision != "" {
		return m.cfg.Precision
	}
	return "fp16"
}

func (m *httpModel) post(ctx context.Context, path string, body []byte, wantCount int) ([]docmodel.MultiVector, error) {
	url := m.cfg.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.APIKey != "" {
		header := m.cfg.APIHeader
		if header == "" {
			header = "Authorization"
		}
		if header == "Authorization" {
			req.Header.Set(header, "Bearer "+m.cfg.APIKey)
		} else {
			req.Header.Set(header, m.cfg.APIKey)
		}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedding: endpoint returned %s: %s", resp.Status, string(raw))
	}

	var parsed multiVecResp
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(parsed.Data) != wantCount {
		return nil, fmt.Errorf("embedding: expected %d embeddings, got %d", wantCount, len(parsed.Data))
	}

	out := make([]docmodel.MultiVector, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = docmodel.MultiVector{Vectors: d.Embedding}
	}
	return out, nil
}
