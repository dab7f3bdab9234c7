package domain

// DefaultEmbeddingDimensions is the hash embedding dimension when none is set.
const DefaultEmbeddingDimensions = 1536

// EmbeddingSettings selects the embedding model. BaseURL overrides the
// provider endpoint; Dimensions sizes hash vectors and, when changed from
// the default, asks remote models for shortened vectors.
type EmbeddingSettings struct {
	Provider   AIProvider
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
}

// IsConfigured reports whether Provider embeds and has its key.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.Embeds() && (e.APIKey != "" || !e.Provider.RequiresAPIKey())
}

// LLMSettings selects the chat model used for routing and synthesis.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured reports whether Provider chats and has its key.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.Chats() && (l.APIKey != "" || !l.Provider.RequiresAPIKey())
}

// VectorBackend identifies a vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory keeps vectors in process memory.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendSQLite stores vectors in a local SQLite database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendQdrant uses a Qdrant server over REST.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendMongo uses MongoDB Atlas vector search.
	VectorBackendMongo VectorBackend = "mongo"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendQdrant, VectorBackendMongo:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// DefaultNamespace is the vector namespace used when none is given.
const DefaultNamespace = "earnings-call-rag"

// VectorSettings holds vector index configuration.
type VectorSettings struct {
	Backend   VectorBackend
	Namespace string

	// DataDir is the SQLite data directory (default ~/.earnings-rag/data).
	DataDir string

	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	MongoIndex      string
}

// ChunkSettings holds the default chunking configuration.
type ChunkSettings struct {
	Strategy SplitStrategy
	Size     int
	Overlap  int
}

// Params converts the settings into chunk parameters.
func (c ChunkSettings) Params() ChunkParams {
	return ChunkParams{Size: c.Size, Overlap: c.Overlap, Strategy: c.Strategy}
}

// RetrievalSettings holds retrieval defaults.
type RetrievalSettings struct {
	TopK      int
	Diversify bool
}

// DefaultTopK is the number of evidence chunks retrieved per query.
const DefaultTopK = 6

// RouterSettings holds router defaults.
type RouterSettings struct {
	// UseLLM enables the LLM classifier before the heuristic fallback.
	UseLLM bool
}

// LogSettings holds structured log configuration.
type LogSettings struct {
	// File is the JSON event log path. Empty disables event logging.
	File string
}

// AppSettings is the resolved configuration for one run.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Vector    VectorSettings
	Chunking  ChunkSettings
	Retrieval RetrievalSettings
	Router    RouterSettings
	Log       LogSettings
}

// DefaultAppSettings works offline: hash embeddings, a SQLite index and
// no LLM.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHash,
			Dimensions: DefaultEmbeddingDimensions,
		},
		Vector: VectorSettings{
			Backend:          VectorBackendSQLite,
			Namespace:        DefaultNamespace,
			QdrantURL:        "http://localhost:6333",
			QdrantCollection: "earningscall-rag",
			MongoDatabase:    "earnings_rag",
			MongoCollection:  "chunks",
			MongoIndex:       "vector_index",
		},
		Chunking: ChunkSettings{
			Strategy: SplitBaseline,
			Size:     DefaultChunkSize,
			Overlap:  DefaultBaselineOverlap,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
		Router: RouterSettings{
			UseLLM: true,
		},
	}
}
