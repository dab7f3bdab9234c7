// Package qdrant implements driven.VectorIndex over the Qdrant REST API.
//
// All namespaces share one collection. Each point carries its namespace
// and original id in the payload, and point ids are UUIDv5 values derived
// from both so that re-indexing overwrites.
package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/vector/vecmath"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Payload keys added next to the chunk metadata.
const (
	PayloadNamespace = "namespace"
	PayloadVectorID  = "vector_id"
)

const defaultTimeout = 15 * time.Second

// Config holds Qdrant connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Index is a minimal Qdrant REST client. The collection is created with
// cosine distance on first upsert.
type Index struct {
	api        *httpjson.Client
	collection string

	mu  sync.Mutex
	dim int
}

// NewIndex creates a Qdrant index client.
func NewIndex(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Index{
		api:        httpjson.New("qdrant", cfg.URL, timeout, httpjson.WithHeader("api-key", cfg.APIKey)),
		collection: cfg.Collection,
	}
}

// PointID maps a namespace and vector id onto a stable Qdrant point id.
func PointID(namespace, id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"/"+id)).String()
}

// Upsert writes points with wait=true.
func (x *Index) Upsert(ctx context.Context, namespace string, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Vector)
	for _, r := range records {
		if err := vecmath.CheckDimension(namespace, dim, len(r.Vector)); err != nil {
			return err
		}
	}
	if err := x.ensureCollection(ctx, dim); err != nil {
		return err
	}

	points := make([]map[string]any, len(records))
	for i, r := range records {
		payload := domain.CopyMetadata(r.Metadata)
		payload[PayloadNamespace] = namespace
		payload[PayloadVectorID] = r.ID
		points[i] = map[string]any{
			"id":      PointID(namespace, r.ID),
			"vector":  r.Vector,
			"payload": payload,
		}
	}

	return x.api.Do(ctx, http.MethodPut, x.collectionPath()+"/points?wait=true", map[string]any{"points": points}, nil)
}

// Query searches the collection restricted to the namespace and filters.
func (x *Index) Query(
	ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string,
) ([]driven.VectorMatch, error) {
	dim, err := x.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []driven.VectorMatch{}, nil
	}
	if err := vecmath.CheckDimension(namespace, dim, len(vector)); err != nil {
		return nil, err
	}

	must := []map[string]any{matchClause(PayloadNamespace, namespace)}
	for _, k := range domain.SortedKeys(filter) {
		must = append(must, matchClause(k, filter[k]))
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"filter":       map[string]any{"must": must},
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := x.api.Post(ctx, x.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]driven.VectorMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		id := domain.MetaString(r.Payload, PayloadVectorID)
		delete(r.Payload, PayloadNamespace)
		delete(r.Payload, PayloadVectorID)
		matches = append(matches, driven.VectorMatch{ID: id, Score: r.Score, Metadata: r.Payload})
	}
	return matches, nil
}

// Close releases idle connections.
func (x *Index) Close() error {
	x.api.Close()
	return nil
}

func matchClause(key, value string) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}

func (x *Index) collectionPath() string {
	return "/collections/" + x.collection
}

// ensureCollection creates the collection when it does not exist and
// rejects vectors whose size differs from an existing one.
func (x *Index) ensureCollection(ctx context.Context, dim int) error {
	existing, err := x.dimension(ctx)
	if err != nil {
		return err
	}
	if existing != 0 {
		return vecmath.CheckDimension(x.collection, existing, dim)
	}

	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	if err := x.api.Do(ctx, http.MethodPut, x.collectionPath(), body, nil); err != nil {
		return fmt.Errorf("creating collection %s: %w", x.collection, err)
	}

	x.mu.Lock()
	x.dim = dim
	x.mu.Unlock()
	return nil
}

// dimension returns the collection vector size, or 0 when the collection
// does not exist yet.
func (x *Index) dimension(ctx context.Context) (int, error) {
	x.mu.Lock()
	dim := x.dim
	x.mu.Unlock()
	if dim != 0 {
		return dim, nil
	}

	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := x.api.Get(ctx, x.collectionPath(), &resp)
	if httpjson.IsStatus(err, http.StatusNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	x.mu.Lock()
	x.dim = resp.Result.Config.Params.Vectors.Size
	dim = x.dim
	x.mu.Unlock()
	return dim, nil
}
