// Package mongo implements driven.VectorIndex on MongoDB Atlas Vector Search.
//
// Vectors live in one collection with a namespace field. The Atlas search
// index must declare "embedding" as a vector field and "namespace" plus
// any "metadata.*" keys used in filters as filter fields.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/vector/vecmath"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Field names in stored documents.
const (
	FieldNamespace = "namespace"
	FieldVectorID  = "vector_id"
	FieldEmbedding = "embedding"
	FieldMetadata  = "metadata"
	FieldDimension = "dimension"
)

// minCandidates is the floor for $vectorSearch numCandidates.
const minCandidates = 100

// Config holds MongoDB connection settings.
type Config struct {
	URI        string
	Database   string
	Collection string
	IndexName  string
}

// VectorDoc is one stored vector.
type VectorDoc struct {
	ID        string         `bson:"_id"`
	Namespace string         `bson:"namespace"`
	VectorID  string         `bson:"vector_id"`
	Embedding []float32      `bson:"embedding"`
	Metadata  map[string]any `bson:"metadata"`
}

// SearchHit is one $vectorSearch result after projection.
type SearchHit struct {
	VectorID string         `bson:"vector_id"`
	Metadata map[string]any `bson:"metadata"`
	Score    float64        `bson:"score"`
}

// Store is the storage surface the index needs. collectionStore backs it
// with the driver; tests use a fake.
type Store interface {
	Upsert(ctx context.Context, docs []VectorDoc) error
	Search(ctx context.Context, pipeline mongo.Pipeline) ([]SearchHit, error)
	Dimension(ctx context.Context, namespace string) (int, error)
	SetDimension(ctx context.Context, namespace string, dim int) error
	Close(ctx context.Context) error
}

// Index is a MongoDB Atlas vector index.
type Index struct {
	store     Store
	indexName string
}

// Connect opens a client and returns an index over cfg.Collection.
func Connect(cfg Config) (*Index, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: mongo uri is empty", domain.ErrVectorIndexUnavailable)
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	db := client.Database(cfg.Database)
	store := &collectionStore{
		client:     client,
		vectors:    db.Collection(cfg.Collection),
		namespaces: db.Collection(cfg.Collection + "_namespaces"),
	}
	return NewIndex(store, cfg.IndexName), nil
}

// NewIndex creates an index over store.
func NewIndex(store Store, indexName string) *Index {
	return &Index{store: store, indexName: indexName}
}

// DocID is the stored _id for a vector in a namespace.
func DocID(namespace, id string) string {
	return namespace + "/" + id
}

// Upsert replaces documents by _id. The first upsert into a namespace
// records its dimension.
func (x *Index) Upsert(ctx context.Context, namespace string, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	dim, err := x.store.Dimension(ctx, namespace)
	if err != nil {
		return fmt.Errorf("reading namespace %s: %w", namespace, err)
	}
	known := dim != 0
	for _, r := range records {
		if err := vecmath.CheckDimension(namespace, dim, len(r.Vector)); err != nil {
			return err
		}
		dim = len(r.Vector)
	}

	docs := make([]VectorDoc, len(records))
	for i, r := range records {
		docs[i] = VectorDoc{
			ID:        DocID(namespace, r.ID),
			Namespace: namespace,
			VectorID:  r.ID,
			Embedding: r.Vector,
			Metadata:  domain.CopyMetadata(r.Metadata),
		}
	}
	if err := x.store.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("upserting vectors: %w", err)
	}

	if !known {
		if err := x.store.SetDimension(ctx, namespace, dim); err != nil {
			return fmt.Errorf("recording namespace %s: %w", namespace, err)
		}
	}
	return nil
}

// Query runs $vectorSearch restricted to the namespace. Atlas reports
// cosine scores on [0, 1]; they are mapped back to [-1, 1].
func (x *Index) Query(
	ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string,
) ([]driven.VectorMatch, error) {
	dim, err := x.store.Dimension(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("reading namespace %s: %w", namespace, err)
	}
	if dim == 0 {
		return []driven.VectorMatch{}, nil
	}
	if err := vecmath.CheckDimension(namespace, dim, len(vector)); err != nil {
		return nil, err
	}

	hits, err := x.store.Search(ctx, SearchPipeline(x.indexName, vector, topK, namespace, filter))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	matches := make([]driven.VectorMatch, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, driven.VectorMatch{
			ID:       h.VectorID,
			Score:    h.Score*2 - 1,
			Metadata: h.Metadata,
		})
	}
	return matches, nil
}

// Close disconnects the client.
func (x *Index) Close() error {
	return x.store.Close(context.Background())
}

// SearchPipeline builds the $vectorSearch aggregation.
func SearchPipeline(indexName string, vector []float32, topK int, namespace string, filter map[string]string) mongo.Pipeline {
	and := bson.A{bson.D{{Key: FieldNamespace, Value: namespace}}}
	for _, k := range domain.SortedKeys(filter) {
		and = append(and, bson.D{{Key: FieldMetadata + "." + k, Value: filter[k]}})
	}

	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: indexName},
			{Key: "path", Value: FieldEmbedding},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: max(topK*10, minCandidates)},
			{Key: "limit", Value: topK},
			{Key: "filter", Value: bson.D{{Key: "$and", Value: and}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: FieldVectorID, Value: 1},
			{Key: FieldMetadata, Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}
}

// collectionStore implements Store with the MongoDB driver.
type collectionStore struct {
	client     *mongo.Client
	vectors    *mongo.Collection
	namespaces *mongo.Collection
}

func (s *collectionStore) Upsert(ctx context.Context, docs []VectorDoc) error {
	models := make([]mongo.WriteModel, len(docs))
	for i, d := range docs {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: d.ID}}).
			SetReplacement(d).
			SetUpsert(true)
	}
	_, err := s.vectors.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func (s *collectionStore) Search(ctx context.Context, pipeline mongo.Pipeline) ([]SearchHit, error) {
	cursor, err := s.vectors.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var hits []SearchHit
	if err := cursor.All(ctx, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (s *collectionStore) Dimension(ctx context.Context, namespace string) (int, error) {
	var doc struct {
		Dimension int `bson:"dimension"`
	}
	err := s.namespaces.FindOne(ctx, bson.D{{Key: "_id", Value: namespace}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Dimension, nil
}

func (s *collectionStore) SetDimension(ctx context.Context, namespace string, dim int) error {
	_, err := s.namespaces.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: namespace}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: FieldDimension, Value: dim}}}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (s *collectionStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
