package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/animus-ai/animus/internal/model"
)

// SQLiteStore implements Registry using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id         TEXT PRIMARY KEY,
		persona    TEXT NOT NULL,
		state      TEXT NOT NULL DEFAULT '{}',
		endpoint   TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agents_created ON agents(created_at DESC);

	CREATE TABLE IF NOT EXISTS agent_memories (
		id         TEXT PRIMARY KEY,
		agent_id   TEXT NOT NULL REFERENCES agents(id),
		text       TEXT NOT NULL,
		type       TEXT NOT NULL,
		importance REAL NOT NULL DEFAULT 0.5,
		timestamp  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agent_memories_agent ON agent_memories(agent_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, ag model.Agent) error {
	stateJSON, err := json.Marshal(ag.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (id, persona, state, endpoint, created_at) VALUES (?, ?, ?, ?, ?)`,
		ag.ID, ag.Persona, string(stateJSON), ag.Endpoint, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}

	for _, item := range ag.Memories {
		if err := s.AppendMemory(ctx, ag.ID, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, persona, state, endpoint FROM agents WHERE id = ?`, id)

	ag, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return model.Agent{}, fmt.Errorf("agent not found: %s", id)
	}
	if err != nil {
		return model.Agent{}, err
	}

	memories, err := s.Memories(ctx, id)
	if err != nil {
		return model.Agent{}, err
	}
	ag.Memories = memories
	return ag, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]model.Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, persona, state, endpoint FROM agents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []model.Agent
	for rows.Next() {
		ag, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, ag)
	}
	return agents, rows.Err()
}

func (s *SQLiteStore) SaveState(ctx context.Context, id string, state model.AgentState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET state = ? WHERE id = ?`, string(stateJSON), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("agent not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) AppendMemory(ctx context.Context, agentID string, item model.MemoryItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_memories (id, agent_id, text, type, importance, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, agentID, item.Text, item.Type, item.Importance, item.Timestamp)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Memories(ctx context.Context, agentID string) ([]model.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, type, importance, timestamp FROM agent_memories
		 WHERE agent_id = ? ORDER BY timestamp, id`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.MemoryItem
	for rows.Next() {
		var item model.MemoryItem
		if err := rows.Scan(&item.ID, &item.Text, &item.Type, &item.Importance, &item.Timestamp); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row scanner) (model.Agent, error) {
	var ag model.Agent
	var stateJSON string

	if err := row.Scan(&ag.ID, &ag.Persona, &stateJSON, &ag.Endpoint); err != nil {
		return ag, err
	}
	if err := json.Unmarshal([]byte(stateJSON), &ag.State); err != nil {
		return ag, fmt.Errorf("decode state for %s: %w", ag.ID, err)
	}
	return ag, nil
}
