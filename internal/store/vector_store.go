// Package store persists knowledge-base chunks and their embeddings in SQLite
// and answers similarity queries over them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"asha/internal/embedding"
	"asha/internal/logging"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)
)

// DefaultTopK is the number of chunks returned when k <= 0.
const DefaultTopK = 4

// Search modes reported by Stats.
const (
	SearchModeSQLiteVec = "sqlite-vec"
	SearchModeSQLFunc   = "sql-func"
	SearchModeScan      = "scan"
)

// ErrNoEngine is returned when an operation needs embeddings but none is configured.
var ErrNoEngine = errors.New("store: no embedding engine configured")

// =============================================================================
// TYPES
// =============================================================================

// Document is a stored chunk returned by SimilaritySearch.
type Document struct {
	ID       int64             `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"` // cosine similarity, higher is closer
}

// Source returns the document's source file, if recorded.
func (d Document) Source() string {
	return d.Metadata["source"]
}

// Options configures a VectorStore.
type Options struct {
	Driver    string // "sqlite3" (mattn, cgo) or "sqlite" (modernc)
	Path      string // database file, or ":memory:"
	BatchSize int    // texts embedded per EmbedBatch call
}

// Stats summarizes the store contents.
type Stats struct {
	Chunks     int    `json:"chunks"`
	Sources    int    `json:"sources"`
	Driver     string `json:"driver"`
	SearchMode string `json:"search_mode"`
	Engine     string `json:"engine"`
}

// VectorStore is a SQLite-backed chunk store with cosine similarity search.
type VectorStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	engine    embedding.Engine
	driver    string
	path      string
	batchSize int

	// distanceFunc is the SQL function used to rank rows. Empty means rows
	// are scanned and ranked in Go.
	distanceFunc string
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Open creates or opens the store at opts.Path.
func Open(ctx context.Context, opts Options, engine embedding.Engine) (*VectorStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if opts.Driver == "" {
		opts.Driver = "sqlite3"
	}
	if opts.Driver != "sqlite3" && opts.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported sqlite driver: %s", opts.Driver)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}

	logging.Store("Opening vector store at %s (driver=%s)", opts.Path, opts.Driver)

	if opts.Path != ":memory:" {
		dir := filepath.Dir(opts.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(opts.Driver, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			logging.StoreDebug("Failed to apply %q: %v", pragma, err)
		}
	}

	s := &VectorStore{
		db:        db,
		engine:    engine,
		driver:    opts.Driver,
		path:      opts.Path,
		batchSize: opts.BatchSize,
	}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.detectDistanceFunc(ctx)

	logging.Store("Vector store ready (search mode=%s)", s.searchMode())
	return s, nil
}

func (s *VectorStore) initialize(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			dims INTEGER NOT NULL,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_dims ON chunks(dims)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// detectDistanceFunc picks the fastest available ranking path.
func (s *VectorStore) detectDistanceFunc(ctx context.Context) {
	switch s.driver {
	case "sqlite":
		s.distanceFunc = cosineDistanceFunc
	case "sqlite3":
		var version string
		if err := s.db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&version); err == nil {
			logging.Store("sqlite-vec %s detected", version)
			s.distanceFunc = "vec_distance_cosine"
			return
		}
		logging.StoreDebug("sqlite-vec not available; ranking in Go")
	}
}

func (s *VectorStore) searchMode() string {
	switch s.distanceFunc {
	case "":
		return SearchModeScan
	case "vec_distance_cosine":
		return SearchModeSQLiteVec
	default:
		return SearchModeSQLFunc
	}
}

// Close releases the database.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// AddTexts embeds texts in batches and stores them. metas may be nil or must
// have one entry per text. It returns the new row IDs.
func (s *VectorStore) AddTexts(ctx context.Context, texts []string, metas []map[string]string) ([]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "AddTexts")
	defer timer.Stop()

	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := s.embedAll(ctx, texts, metas)
	if err != nil {
		return nil, err
	}
	ids, err := s.write(ctx, "", texts, vecs, metas)
	if err != nil {
		return nil, err
	}
	logging.Store("Stored %d chunks", len(ids))
	return ids, nil
}

// ReplaceSource swaps every chunk of source for texts. All embeddings are
// computed before the delete and insert, which share one transaction, so a
// failure leaves the previous chunks in place. Empty texts clears source.
func (s *VectorStore) ReplaceSource(ctx context.Context, source string, texts []string, metas []map[string]string) ([]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ReplaceSource")
	defer timer.Stop()

	var vecs [][]float32
	if len(texts) > 0 {
		var err error
		if vecs, err = s.embedAll(ctx, texts, metas); err != nil {
			return nil, err
		}
	}
	ids, err := s.write(ctx, source, texts, vecs, metas)
	if err != nil {
		return nil, err
	}
	logging.Store("Replaced %s with %d chunks", source, len(ids))
	return ids, nil
}

func (s *VectorStore) embedAll(ctx context.Context, texts []string, metas []map[string]string) ([][]float32, error) {
	if metas != nil && len(metas) != len(texts) {
		return nil, fmt.Errorf("metas length %d does not match texts length %d", len(metas), len(texts))
	}
	if s.engine == nil {
		return nil, ErrNoEngine
	}

	vecs := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))

		batch, err := s.engine.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("engine returned %d embeddings for %d texts", len(batch), end-start)
		}
		vecs = append(vecs, batch...)
		logging.StoreDebug("Embedded batch %d-%d", start, end)
	}
	return vecs, nil
}

// write inserts rows in one transaction, first deleting replace's chunks
// when replace is set.
func (s *VectorStore) write(ctx context.Context, replace string, texts []string, vecs [][]float32, metas []map[string]string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if replace != "" {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", replace); err != nil {
			return nil, fmt.Errorf("failed to delete source %s: %w", replace, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (source, content, embedding, dims, metadata) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(texts))
	for i, text := range texts {
		var meta map[string]string
		if metas != nil {
			meta = metas[i]
		}
		source := meta["source"]
		if replace != "" {
			source = replace
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		res, err := stmt.ExecContext(ctx, source, text, encodeVector(vecs[i]), len(vecs[i]), string(metaJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to insert chunk: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return ids, nil
}

// DeleteSource removes every chunk recorded for source and returns how many
// rows were deleted.
func (s *VectorStore) DeleteSource(ctx context.Context, source string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, fmt.Errorf("store is closed")
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete source %s: %w", source, err)
	}
	n, _ := res.RowsAffected()
	logging.StoreDebug("Deleted %d chunks for source %s", n, source)
	return n, nil
}

// =============================================================================
// READS
// =============================================================================

// SimilaritySearch returns the k chunks closest to query, best first.
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SimilaritySearch")
	defer timer.Stop()

	if k <= 0 {
		k = DefaultTopK
	}
	if s.engine == nil {
		return nil, ErrNoEngine
	}

	qvec, err := s.engine.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.SearchVector(ctx, qvec, k)
}

// SearchVector ranks stored chunks against an existing query vector.
func (s *VectorStore) SearchVector(ctx context.Context, qvec []float32, k int) ([]Document, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, fmt.Errorf("store is closed")
	}

	var docs []Document
	var err error
	if s.distanceFunc != "" {
		docs, err = s.searchSQL(ctx, qvec, k)
	} else {
		docs, err = s.searchScan(ctx, qvec, k)
	}
	if err != nil {
		return nil, err
	}
	logging.StoreDebug("Similarity search returned %d documents (mode=%s)", len(docs), s.searchMode())
	return docs, nil
}

func (s *VectorStore) searchSQL(ctx context.Context, qvec []float32, k int) ([]Document, error) {
	query := fmt.Sprintf(
		"SELECT id, content, metadata, %s(embedding, ?) AS distance FROM chunks WHERE dims = ? ORDER BY distance ASC, id ASC LIMIT ?",
		s.distanceFunc,
	)
	rows, err := s.db.QueryContext(ctx, query, encodeVector(qvec), len(qvec), k)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc      Document
			metaJSON sql.NullString
			distance float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		doc.Metadata = decodeMeta(metaJSON)
		doc.Score = 1 - distance
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *VectorStore) searchScan(ctx context.Context, qvec []float32, k int) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, content, metadata, embedding FROM chunks WHERE dims = ? ORDER BY id", len(qvec))
	if err != nil {
		return nil, fmt.Errorf("scan query failed: %w", err)
	}
	defer rows.Close()

	var (
		candidates []Document
		corpus     [][]float32
	)
	for rows.Next() {
		var (
			doc      Document
			metaJSON sql.NullString
			blob     []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("Skipping chunk %d: %v", doc.ID, err)
			continue
		}
		doc.Metadata = decodeMeta(metaJSON)
		candidates = append(candidates, doc)
		corpus = append(corpus, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	top := embedding.FindTopK(qvec, corpus, k)
	docs := make([]Document, 0, len(top))
	for _, r := range top {
		doc := candidates[r.Index]
		doc.Score = r.Similarity
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count returns the number of stored chunks.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, fmt.Errorf("store is closed")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Stats reports chunk and source counts plus the active search mode.
func (s *VectorStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return Stats{}, fmt.Errorf("store is closed")
	}

	st := Stats{Driver: s.driver, SearchMode: s.searchMode()}
	if s.engine != nil {
		st.Engine = s.engine.Name()
	}
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT source) FROM chunks").Scan(&st.Chunks, &st.Sources)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	return st, nil
}

func decodeMeta(raw sql.NullString) map[string]string {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(raw.String), &meta); err != nil {
		logging.StoreDebug("Ignoring malformed metadata: %v", err)
		return nil
	}
	return meta
}
