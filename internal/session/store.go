package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fdadevices/openfda-agent/internal/model"
)

// minCleanupInterval is the smallest allowed TTL to prevent degenerate ticker intervals.
const minCleanupInterval = time.Millisecond

// Store is the durable, thread-safe session registry. Every session document
// lives in SQLite; an in-process cache fronts reads and is evicted on a TTL,
// the same cleanup-goroutine shape the teacher used for its pure in-memory
// store, now repurposed to bound cache memory rather than to expire the
// sessions themselves (those persist until an explicit Delete).
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	cache map[string]*Document

	turnsMu   sync.Mutex
	turnsOpen map[string]bool // session IDs with a turn currently in flight

	ttl      time.Duration
	done     chan struct{}
}

// Open creates or attaches to the sqlite database at path (":memory:" for a
// purely in-process store) and starts the cache-eviction goroutine.
func Open(path string, cacheTTL time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	if cacheTTL < minCleanupInterval {
		cacheTTL = minCleanupInterval
	}
	s := &Store{
		db:        db,
		cache:     make(map[string]*Document),
		turnsOpen: make(map[string]bool),
		ttl:       cacheTTL,
		done:      make(chan struct{}),
	}
	go s.cleanupLoop()
	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			messages_json TEXT NOT NULL,
			resolver_context_json TEXT NOT NULL,
			usage_json TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("session: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.db.Close()
}

// Create inserts a new, empty session document. Returns an error if id is
// already in use.
func (s *Store) Create(ctx context.Context, id string) (*Document, error) {
	now := time.Now()
	doc := &Document{ID: id, CreatedAt: now, UpdatedAt: now}

	if err := s.insert(ctx, doc); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[id] = doc
	s.mu.Unlock()
	return doc, nil
}

func (s *Store) insert(ctx context.Context, doc *Document) error {
	messagesJSON, resolverJSON, usageJSON, err := marshalDoc(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at, messages_json, resolver_context_json, usage_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.CreatedAt.Format(time.RFC3339Nano), doc.UpdatedAt.Format(time.RFC3339Nano), messagesJSON, resolverJSON, usageJSON)
	if err != nil {
		return fmt.Errorf("session: insert %q: %w", doc.ID, err)
	}
	return nil
}

// Load returns the session document for id, creating it first if it does
// not yet exist (matching spec §4.9's "create" and "load" as a single
// convenience path for the controller's initial-state read).
func (s *Store) Load(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	if doc, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		return cloneDoc(doc), nil
	}
	s.mu.RUnlock()

	doc, err := s.loadFromDB(ctx, id)
	if err == sql.ErrNoRows {
		return s.Create(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[id] = doc
	s.mu.Unlock()
	return cloneDoc(doc), nil
}

func (s *Store) loadFromDB(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT created_at, updated_at, messages_json, resolver_context_json, usage_json
		FROM sessions WHERE id = ?
	`, id)

	var createdAt, updatedAt, messagesJSON, resolverJSON, usageJSON string
	if err := row.Scan(&createdAt, &updatedAt, &messagesJSON, &resolverJSON, &usageJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("session: load %q: %w", id, err)
	}
	return unmarshalDoc(id, createdAt, updatedAt, messagesJSON, resolverJSON, usageJSON)
}

// Append atomically adds newMessages, merges delta field-wise onto the
// session's ResolverContext (spec §4.9's merge rule: absence leaves prior
// value intact), and accumulates turnUsage into the session total. The
// whole append happens as one SQLite transaction, so a turn either commits
// in full or not at all (spec §5's atomic-per-turn write guarantee).
func (s *Store) Append(ctx context.Context, id string, newMessages []model.Message, delta model.ResolverContext, turnUsage model.Usage) (*Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("session: begin append tx: %w", err)
	}
	defer tx.Rollback()

	doc, err := s.loadForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	doc.Messages = append(doc.Messages, newMessages...)
	doc.ResolverContext.Merge(delta)
	doc.Usage.TotalCostUSD += turnUsage.CostUSD
	doc.Usage.RequestCount++
	doc.UpdatedAt = time.Now()

	messagesJSON, resolverJSON, usageJSON, err := marshalDoc(doc)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET updated_at = ?, messages_json = ?, resolver_context_json = ?, usage_json = ?
		WHERE id = ?
	`, doc.UpdatedAt.Format(time.RFC3339Nano), messagesJSON, resolverJSON, usageJSON, id); err != nil {
		return nil, fmt.Errorf("session: append update %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("session: commit append %q: %w", id, err)
	}

	s.mu.Lock()
	s.cache[id] = doc
	s.mu.Unlock()
	return cloneDoc(doc), nil
}

func (s *Store) loadForUpdate(ctx context.Context, tx *sql.Tx, id string) (*Document, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT created_at, updated_at, messages_json, resolver_context_json, usage_json
		FROM sessions WHERE id = ?
	`, id)

	var createdAt, updatedAt, messagesJSON, resolverJSON, usageJSON string
	if err := row.Scan(&createdAt, &updatedAt, &messagesJSON, &resolverJSON, &usageJSON); err != nil {
		return nil, fmt.Errorf("session: append requires an existing session %q (load or create first): %w", id, err)
	}
	return unmarshalDoc(id, createdAt, updatedAt, messagesJSON, resolverJSON, usageJSON)
}

// Delete removes a session permanently.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("session: delete %q: %w", id, err)
	}
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	return nil
}

// List returns every session's summary, most-recently-updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, updated_at, messages_json, usage_json
		FROM sessions ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var id, createdAt, updatedAt, messagesJSON, usageJSON string
		if err := rows.Scan(&id, &createdAt, &updatedAt, &messagesJSON, &usageJSON); err != nil {
			return nil, fmt.Errorf("session: scan list row: %w", err)
		}
		var messages []model.Message
		if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
			return nil, fmt.Errorf("session: decode messages for %q: %w", id, err)
		}
		var usage SessionUsage
		if err := json.Unmarshal([]byte(usageJSON), &usage); err != nil {
			return nil, fmt.Errorf("session: decode usage for %q: %w", id, err)
		}
		created, _ := time.Parse(time.RFC3339Nano, createdAt)
		updated, _ := time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, Summary{ID: id, CreatedAt: created, UpdatedAt: updated, MessageCount: len(messages), TotalCostUSD: usage.TotalCostUSD})
	}
	return out, rows.Err()
}

// BeginTurn enforces spec §5's serialization rule: concurrent turns on the
// same session are rejected. The returned release func must be called when
// the turn ends (END or cancellation).
func (s *Store) BeginTurn(id string) (release func(), err error) {
	s.turnsMu.Lock()
	defer s.turnsMu.Unlock()
	if s.turnsOpen[id] {
		return nil, fmt.Errorf("session: a turn is already in progress for session %q", id)
	}
	s.turnsOpen[id] = true
	return func() {
		s.turnsMu.Lock()
		delete(s.turnsOpen, id)
		s.turnsMu.Unlock()
	}, nil
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.cache = make(map[string]*Document)
			s.mu.Unlock()
		}
	}
}

func marshalDoc(doc *Document) (messagesJSON, resolverJSON, usageJSON string, err error) {
	m, err := json.Marshal(doc.Messages)
	if err != nil {
		return "", "", "", fmt.Errorf("session: marshal messages: %w", err)
	}
	r, err := json.Marshal(doc.ResolverContext)
	if err != nil {
		return "", "", "", fmt.Errorf("session: marshal resolver context: %w", err)
	}
	u, err := json.Marshal(doc.Usage)
	if err != nil {
		return "", "", "", fmt.Errorf("session: marshal usage: %w", err)
	}
	return string(m), string(r), string(u), nil
}

func unmarshalDoc(id, createdAt, updatedAt, messagesJSON, resolverJSON, usageJSON string) (*Document, error) {
	doc := &Document{ID: id}
	var err error
	if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("session: parse created_at: %w", err)
	}
	if doc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("session: parse updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(messagesJSON), &doc.Messages); err != nil {
		return nil, fmt.Errorf("session: unmarshal messages: %w", err)
	}
	if err := json.Unmarshal([]byte(resolverJSON), &doc.ResolverContext); err != nil {
		return nil, fmt.Errorf("session: unmarshal resolver context: %w", err)
	}
	if err := json.Unmarshal([]byte(usageJSON), &doc.Usage); err != nil {
		return nil, fmt.Errorf("session: unmarshal usage: %w", err)
	}
	return doc, nil
}

func cloneDoc(doc *Document) *Document {
	clone := *doc
	clone.Messages = append([]model.Message(nil), doc.Messages...)
	return &clone
}
