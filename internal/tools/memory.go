package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Memory is one stored note.
type Memory struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// The layout matches an existing ShieldCortex memories database so both
// tools can share one file.
const memorySchema = `
CREATE TABLE IF NOT EXISTS memories (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	type       TEXT NOT NULL DEFAULT 'long_term',
	category   TEXT NOT NULL DEFAULT 'note',
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	project    TEXT,
	salience   REAL NOT NULL DEFAULT 0.5,
	scope      TEXT,
	source     TEXT,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(title, content, tags);
`

const searchLimit = 5

// MemoryStore is a full-text searchable note store in SQLite.
type MemoryStore struct {
	db *sql.DB
}

// OpenMemory opens or creates the store at path.
func OpenMemory(ctx context.Context, path string) (*MemoryStore, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("tools: open memory db: %w", err)
	}
	if _, err := db.ExecContext(ctx, memorySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tools: init memory db: %w", err)
	}
	return &MemoryStore{db: db}, nil
}

// Close closes the database.
func (m *MemoryStore) Close() error { return m.db.Close() }

// Search returns up to five notes matching query, best first.
func (m *MemoryStore) Search(ctx context.Context, query string) ([]Memory, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	rows, err := m.db.QueryContext(ctx, `
		SELECT m.title, m.content, m.category
		FROM memories m
		JOIN memories_fts f ON m.id = f.rowid
		WHERE memories_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("fts query failed: %w", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var mem Memory
		var category sql.NullString
		if err := rows.Scan(&mem.Title, &mem.Content, &category); err != nil {
			return nil, fmt.Errorf("fts query failed: %w", err)
		}
		mem.Category = category.String
		out = append(out, mem)
	}
	return out, rows.Err()
}

// Remember stores a note and indexes it. It returns the new row id.
func (m *MemoryStore) Remember(ctx context.Context, title, content string) (int64, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to save: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO memories (type, category, title, content, project, salience, scope, source)
		VALUES ('long_term', 'note', ?, ?, 'mavoice', 0.6, 'project', 'agent:mavoice')`,
		title, content)
	if err != nil {
		return 0, fmt.Errorf("failed to save: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to save: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memories_fts (rowid, title, content, tags) VALUES (?, ?, ?, '[]')`,
		id, title, content); err != nil {
		return 0, fmt.Errorf("failed to index: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to save: %w", err)
	}
	return id, nil
}

// ftsQuery quotes every whitespace separated term so user text can never be
// parsed as FTS5 syntax. Terms are implicitly ANDed.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// MemoryTools returns search_memory and remember backed by store.
func MemoryTools(store *MemoryStore) []Tool {
	return []Tool{
		{
			Declaration: declSearchMemory,
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var a struct {
					Query string `json:"query"`
				}
				if err := decodeArgs(args, &a, map[string]*string{"query": &a.Query}); err != nil {
					return nil, err
				}
				found, err := store.Search(ctx, a.Query)
				if err != nil {
					return nil, err
				}
				if len(found) == 0 {
					return map[string]any{
						"results": []Memory{},
						"message": "No memories found matching that query.",
					}, nil
				}
				return map[string]any{"results": found}, nil
			},
		},
		{
			Declaration: declRemember,
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var a struct {
					Title   string `json:"title"`
					Content string `json:"content"`
				}
				if err := decodeArgs(args, &a, map[string]*string{"title": &a.Title, "content": &a.Content}); err != nil {
					return nil, err
				}
				id, err := store.Remember(ctx, a.Title, a.Content)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"success": true,
					"message": "Saved memory: " + a.Title,
					"id":      id,
				}, nil
			},
		},
	}
}
