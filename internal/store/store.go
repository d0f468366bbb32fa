// Package store persists run outcomes and serves the conversation history
// they form.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is who authored a persisted message.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Type classifies a persisted message.
type Type string

const (
	TypeResult Type = "RESULT"
	TypeError  Type = "ERROR"
)

// Fragment is the renderable artifact attached to a RESULT message.
type Fragment struct {
	ID         string            `json:"id"`
	MessageID  string            `json:"message_id"`
	SandboxURL string            `json:"sandbox_url"`
	Title      string            `json:"title"`
	Files      map[string]string `json:"files"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Message is one persisted conversation entry.
type Message struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Fragment  *Fragment `json:"fragment,omitempty"`
}

// ErrNotFound is returned when a message does not exist.
var ErrNotFound = errors.New("message not found")

// Store reads and writes messages and fragments.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database for driver and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch driver {
	case DriverSQLite, "":
		db, err = openSQLite(dsn)
		d = sqliteDialect{}
	case DriverPostgres:
		db, err = openPostgres(dsn)
		d = postgresDialect{}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema()); err != nil {
		return fmt.Errorf("failed to apply %s schema: %w", s.dialect.Name(), err)
	}
	return nil
}

func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// SaveMessage inserts msg and its fragment in one transaction. The insert is
// keyed by msg.ID; if a message with that id already exists nothing is written
// and SaveMessage reports false.
func (s *Store) SaveMessage(ctx context.Context, msg *Message) (bool, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO messages (id, project_id, content, role, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`),
		msg.ID, msg.ProjectID, msg.Content, string(msg.Role), string(msg.Type), msg.CreatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if f := msg.Fragment; f != nil {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		f.MessageID = msg.ID
		f.CreatedAt = msg.CreatedAt
		files, err := json.Marshal(f.Files)
		if err != nil {
			return false, fmt.Errorf("failed to encode fragment files: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO fragments (id, message_id, sandbox_url, title, files, created_at)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6)`),
			f.ID, f.MessageID, f.SandboxURL, f.Title, string(files), f.CreatedAt.UnixMilli()); err != nil {
			return false, fmt.Errorf("failed to insert fragment for %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit message %s: %w", msg.ID, err)
	}
	return true, nil
}

// ListRecent returns up to limit messages of a project, newest first.
// Messages saved in the same millisecond keep their insertion order.
// Fragments are not loaded.
func (s *Store) ListRecent(ctx context.Context, projectID string, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, project_id, content, role, type, created_at
		FROM messages
		WHERE project_id = $1
		ORDER BY created_at DESC, `+s.dialect.InsertOrder()+` DESC
		LIMIT $2`), projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m       Message
			role    string
			typ     string
			created int64
		)
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Content, &role, &typ, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = Role(role)
		m.Type = Type(typ)
		m.CreatedAt = time.UnixMilli(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMessage returns a message with its fragment, if any.
func (s *Store) GetMessage(ctx context.Context, id string) (*Message, error) {
	var (
		m       Message
		role    string
		typ     string
		created int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, project_id, content, role, type, created_at
		FROM messages WHERE id = $1`), id).
		Scan(&m.ID, &m.ProjectID, &m.Content, &role, &typ, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	m.Role = Role(role)
	m.Type = Type(typ)
	m.CreatedAt = time.UnixMilli(created)

	var (
		f     Fragment
		files []byte
	)
	err = s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, message_id, sandbox_url, title, files, created_at
		FROM fragments WHERE message_id = $1`), id).
		Scan(&f.ID, &f.MessageID, &f.SandboxURL, &f.Title, &files, &created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return &m, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get fragment for %s: %w", id, err)
	}
	if err := json.Unmarshal(files, &f.Files); err != nil {
		return nil, fmt.Errorf("failed to decode fragment files: %w", err)
	}
	f.CreatedAt = time.UnixMilli(created)
	m.Fragment = &f
	return &m, nil
}
