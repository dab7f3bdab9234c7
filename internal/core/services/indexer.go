package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driving"
	"github.com/custodia-labs/earnings-rag/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexService = (*Indexer)(nil)

// DefaultBatchSize is the number of chunks embedded and upserted per call.
const DefaultBatchSize = 100

// dimensionProbe is embedded once to learn the vector dimension.
const dimensionProbe = "dimension probe"

// Splitter chunks documents. The postprocessors registry implements it.
type Splitter interface {
	Split(ctx context.Context, docs []domain.Document, params domain.ChunkParams) ([]domain.Chunk, error)
}

// Indexer turns records into chunks and upserts their embeddings.
type Indexer struct {
	splitter    Splitter
	normaliser  driven.Normaliser
	embedder    driven.EmbeddingService
	index       driven.VectorIndex
	batchSize   int
	sourceSplit string
	limiter     *rate.Limiter
	now         func() time.Time
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithBatchSize sets the embed and upsert batch size.
func WithBatchSize(n int) IndexerOption {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithSourceSplit sets the dataset split recorded on documents.
func WithSourceSplit(split string) IndexerOption {
	return func(ix *Indexer) {
		if split != "" {
			ix.sourceSplit = split
		}
	}
}

// WithEmbedRateLimit throttles embedding batches to rps requests per second.
func WithEmbedRateLimit(rps float64, burst int) IndexerOption {
	return func(ix *Indexer) {
		if rps > 0 {
			ix.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithClock overrides the ingestion timestamp source.
func WithClock(now func() time.Time) IndexerOption {
	return func(ix *Indexer) { ix.now = now }
}

// NewIndexer creates an indexer. embedder and index may be nil when only
// Chunk is used.
func NewIndexer(
	splitter Splitter,
	normaliser driven.Normaliser,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	opts ...IndexerOption,
) *Indexer {
	ix := &Indexer{
		splitter:   splitter,
		normaliser: normaliser,
		embedder:   embedder,
		index:      index,
		batchSize:  DefaultBatchSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Chunk normalises records into documents and splits them.
func (ix *Indexer) Chunk(ctx context.Context, records []domain.Record, params domain.ChunkParams) ([]domain.Chunk, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	docs := ix.normaliser.Normalise(records, ix.sourceSplit)
	return ix.splitter.Split(ctx, docs, params)
}

// Index chunks records, embeds the chunks in batches and upserts them into
// namespace. Vector ids are "doc_id:chunk_id" so re-indexing overwrites.
func (ix *Indexer) Index(
	ctx context.Context, records []domain.Record, namespace string, params domain.ChunkParams,
) (*domain.IndexSummary, error) {
	if ix.embedder == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCapabilityUnavailable, domain.ErrEmbeddingUnavailable)
	}
	if ix.index == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCapabilityUnavailable, domain.ErrVectorIndexUnavailable)
	}

	logger.Section("Indexing")

	chunks, err := ix.Chunk(ctx, records, params)
	if err != nil {
		return nil, err
	}

	probe, err := ix.embedder.EmbedQuery(ctx, dimensionProbe)
	if err != nil {
		return nil, fmt.Errorf("probe embedding dimension: %w", err)
	}
	dim := len(probe)

	summary := &domain.IndexSummary{
		Records:            len(records),
		Documents:          len(records),
		Chunks:             len(chunks),
		EmbeddingModel:     ix.embedder.ModelName(),
		EmbeddingDimension: dim,
		Namespace:          namespace,
	}
	logger.Info("Indexing %d chunks from %d records into %s (model %s, dim %d)",
		len(chunks), len(records), namespace, summary.EmbeddingModel, dim)

	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		batch := chunks[start:end]

		if err := ix.upsertBatch(ctx, batch, namespace, dim); err != nil {
			return summary, fmt.Errorf("batch %d: %w", summary.Batches+1, err)
		}

		summary.Batches++
		summary.Upserted += len(batch)
		logger.Debug("Upserted batch %d (%d vectors) into %s", summary.Batches, len(batch), namespace)
		logger.Event("index.batch",
			zap.Int("batch", summary.Batches),
			zap.Int("batch_size", len(batch)),
			zap.String("namespace", namespace),
		)
	}

	logger.Info("Upserted %d vectors in %d batches", summary.Upserted, summary.Batches)
	return summary, nil
}

func (ix *Indexer) upsertBatch(ctx context.Context, batch []domain.Chunk, namespace string, dim int) error {
	if ix.limiter != nil {
		if err := ix.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed documents: got %d vectors for %d texts", len(vectors), len(batch))
	}

	ingestedAt := ix.now().UTC().Format(time.RFC3339)
	records := make([]driven.VectorRecord, len(batch))
	for i, c := range batch {
		if len(vectors[i]) != dim {
			return fmt.Errorf("%w: chunk %s has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, c.ID, len(vectors[i]), dim)
		}
		records[i] = driven.VectorRecord{
			ID:       VectorID(c),
			Vector:   vectors[i],
			Metadata: VectorMetadata(c, ingestedAt),
		}
	}

	return ix.index.Upsert(ctx, namespace, records)
}

// VectorID returns the stable vector id for a chunk.
func VectorID(c domain.Chunk) string {
	docID := c.DocumentID
	if docID == "" {
		docID = "unknown-doc"
	}
	return docID + ":" + c.ID
}

// VectorMetadata builds the metadata stored with each vector. It carries
// everything retrieval needs to rebuild a RetrievedChunk.
func VectorMetadata(c domain.Chunk, ingestedAt string) map[string]any {
	company := firstNonEmpty(c.Metadata, "company", "ticker")
	if company == "" {
		company = unknownValue
	}
	source := firstNonEmpty(c.Metadata, "source", "source_dataset")
	if source == "" {
		source = unknownValue
	}
	sourceSplit := domain.MetaString(c.Metadata, domain.MetaSourceSplit)
	if sourceSplit == "" {
		sourceSplit = "train"
	}
	section := c.Section
	if section == "" {
		section = domain.SectionTranscript
	}

	return map[string]any{
		domain.MetaCompany:     company,
		domain.MetaSource:      source,
		domain.MetaDocID:       c.DocumentID,
		domain.MetaChunkID:     c.ID,
		domain.MetaSplit:       c.Strategy.String(),
		domain.MetaSection:     section,
		domain.MetaSourceSplit: sourceSplit,
		domain.MetaIngestedAt:  ingestedAt,
		domain.MetaText:        c.Content,
	}
}

func firstNonEmpty(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := domain.MetaString(m, k); v != "" {
			return v
		}
	}
	return ""
}
