package retrieve

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/fdadevices/openfda-agent/internal/model"
)

// Index is an in-memory SQLite FTS5 table over the documentation corpus,
// used for the BM25 half of the Hybrid Retriever's parallel scoring pass
// (spec §4.6 step 3). The same modernc.org/sqlite + FTS5 + bm25() idiom as
// internal/catalog's device index, applied here to a small static corpus
// instead of a live device catalog.
type Index struct {
	db     *sql.DB
	chunks map[string]model.CorpusChunk
}

// NewIndex builds an in-memory FTS5 index over chunks.
func NewIndex(ctx context.Context, chunks []model.CorpusChunk) (*Index, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("retrieve: open index db: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE VIRTUAL TABLE chunks_fts USING fts5(id UNINDEXED, endpoint UNINDEXED, text);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("retrieve: create fts table: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, `INSERT INTO chunks_fts (id, endpoint, text) VALUES (?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("retrieve: prepare insert: %w", err)
	}
	defer stmt.Close()

	byID := make(map[string]model.CorpusChunk, len(chunks))
	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Endpoint, c.Text); err != nil {
			db.Close()
			return nil, fmt.Errorf("retrieve: index chunk %q: %w", c.ID, err)
		}
		byID[c.ID] = c
	}

	return &Index{db: db, chunks: byID}, nil
}

func (idx *Index) Close() error {
	return idx.db.Close()
}

// BM25Search returns up to topK chunk IDs ranked by bm25() over query,
// restricted to endpoints when non-empty (the prefilter of spec §4.6 step 2).
func (idx *Index) BM25Search(ctx context.Context, query string, endpoints []string, topK int) ([]string, error) {
	ftsQuery := escapeFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	args := []any{ftsQuery}
	sqlQuery := `SELECT id FROM chunks_fts WHERE chunks_fts MATCH ?`
	if len(endpoints) > 0 {
		placeholders := ""
		for i, ep := range endpoints {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, ep)
		}
		sqlQuery += fmt.Sprintf(" AND endpoint IN (%s)", placeholders)
	}
	sqlQuery += ` ORDER BY bm25(chunks_fts) LIMIT ?`
	args = append(args, topK)

	rows, err := idx.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieve: bm25 search: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("retrieve: scan bm25 result: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Chunk returns the full chunk for id.
func (idx *Index) Chunk(id string) (model.CorpusChunk, bool) {
	c, ok := idx.chunks[id]
	return c, ok
}

// All returns every indexed chunk, for building the dense-embedding pool.
func (idx *Index) All() []model.CorpusChunk {
	all := make([]model.CorpusChunk, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		all = append(all, c)
	}
	return all
}

func escapeFTSQuery(q string) string {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(trimmed, `"`, `""`) + `"`
}
