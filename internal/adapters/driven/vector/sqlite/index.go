package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/vector/sqlite/migrations"
	"github.com/custodia-labs/earnings-rag/internal/adapters/driven/vector/vecmath"
	"github.com/custodia-labs/earnings-rag/internal/core/domain"
	"github.com/custodia-labs/earnings-rag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DBName is the database file name inside the data directory.
const DBName = "vectors.db"

// Index is a SQLite-backed vector index.
type Index struct {
	db   *sql.DB
	path string
}

// NewIndex opens or creates the index in dataDir, which defaults to
// ~/.earnings-rag/data, and migrates it to the current schema.
func NewIndex(dataDir string) (*Index, error) {
	dir, err := resolveDataDir(dataDir)
	if err != nil {
		return nil, err
	}

	file := filepath.Join(dir, DBName)
	db, err := sql.Open("sqlite", file+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file, err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	if err := migrate(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db, path: file}, nil
}

// dsnPragmas enables WAL, waits on a locked file and enforces the
// namespace foreign key.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

func resolveDataDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve data directory: %w", err)
		}
		dir = filepath.Join(home, ".earnings-rag", "data")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

func (x *Index) Close() error { return x.db.Close() }

// Path returns the database file path.
func (x *Index) Path() string { return x.path }

// SchemaVersion returns the number of the last applied migration.
func (x *Index) SchemaVersion() (int, error) {
	return userVersion(context.Background(), x.db)
}

// Upsert inserts or replaces records in one transaction. The first upsert
// into a namespace records its dimension.
func (x *Index) Upsert(ctx context.Context, namespace string, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dim, err := namespaceDimension(ctx, tx, namespace)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := vecmath.CheckDimension(namespace, dim, len(r.Vector)); err != nil {
			return err
		}
		dim = len(r.Vector)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO namespaces (name, dimension) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		namespace, dim); err != nil {
		return fmt.Errorf("registering namespace: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (namespace, id, embedding, metadata, company, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(namespace, id) DO UPDATE SET
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			company = excluded.company,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		company := domain.MetaString(r.Metadata, domain.MetaCompany)
		if _, err := stmt.ExecContext(ctx, namespace, r.ID, vecmath.Encode(r.Vector), string(metadataJSON), company); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Query scans the namespace and ranks by cosine similarity. A company
// filter is pushed into SQL; other keys are matched on metadata.
func (x *Index) Query(
	ctx context.Context, vector []float32, topK int, namespace string, filter map[string]string,
) ([]driven.VectorMatch, error) {
	dim, err := namespaceDimension(ctx, x.db, namespace)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []driven.VectorMatch{}, nil
	}
	if err := vecmath.CheckDimension(namespace, dim, len(vector)); err != nil {
		return nil, err
	}

	query := "SELECT id, embedding, metadata FROM vectors WHERE namespace = ?"
	args := []any{namespace}
	if company, ok := filter[domain.MetaCompany]; ok {
		query += " AND company = ?"
		args = append(args, company)
	}

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	matches := []driven.VectorMatch{}
	for rows.Next() {
		var (
			id           string
			blob         []byte
			metadataJSON string
		)
		if err := rows.Scan(&id, &blob, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}

		var meta map[string]any
		if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata for %s: %w", id, err)
		}
		if !vecmath.MatchesFilter(meta, filter) {
			continue
		}

		matches = append(matches, driven.VectorMatch{
			ID:       id,
			Score:    vecmath.Cosine(vector, vecmath.Decode(blob)),
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return vecmath.Rank(matches, topK), nil
}

// Count returns the number of vectors in a namespace.
func (x *Index) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors WHERE namespace = ?", namespace).Scan(&n)
	return n, err
}

// DeleteNamespace removes a namespace and its vectors.
func (x *Index) DeleteNamespace(ctx context.Context, namespace string) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vectors WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM namespaces WHERE name = ?", namespace); err != nil {
		return fmt.Errorf("deleting namespace: %w", err)
	}
	return tx.Commit()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// namespaceDimension returns 0 for an unknown namespace.
func namespaceDimension(ctx context.Context, q queryRower, namespace string) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, "SELECT dimension FROM namespaces WHERE name = ?", namespace).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading namespace %s: %w", namespace, err)
	}
	return dim, nil
}
