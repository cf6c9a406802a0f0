// Package postgres stores submission drafts in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// TableName is the draft table inside the configured schema
const TableName = "publish_draft"

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements simplepublish.DraftStore using PostgreSQL
type Store struct {
	db    DBTX
	table string
}

// New creates a draft store writing to schema.publish_draft.
// An empty schema uses the connection search path.
func New(db DBTX, schema string) *Store {
	ident := pgx.Identifier{TableName}
	if schema != "" {
		ident = pgx.Identifier{schema, TableName}
	}
	return &Store{db: db, table: ident.Sanitize()}
}

// NewWithPool creates a draft store backed by a connection pool
func NewWithPool(pool *pgxpool.Pool, schema string) *Store {
	return New(pool, schema)
}

// Migrate creates the draft table when it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key          TEXT PRIMARY KEY,
			subject_type TEXT NOT NULL,
			fields       JSONB NOT NULL DEFAULT '{}'::jsonb,
			attachments  JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at   TIMESTAMPTZ NOT NULL
		)`, s.table)

	if _, err := s.db.Exec(ctx, query); err != nil {
		return s.handlePostgresError("migrate", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*simplepublish.SubmissionDraft, error) {
	query := fmt.Sprintf(`
		SELECT key, subject_type, fields, attachments, updated_at
		FROM %s WHERE key = $1`, s.table)

	var (
		draft       simplepublish.SubmissionDraft
		fields      []byte
		attachments []byte
	)
	err := s.db.QueryRow(ctx, query, key).Scan(
		&draft.Key, &draft.SubjectType, &fields, &attachments, &draft.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplepublish.ErrDraftNotFound
		}
		return nil, s.handlePostgresError("get draft", err)
	}

	draft.Fields = json.RawMessage(fields)
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &draft.Attachments); err != nil {
			return nil, fmt.Errorf("failed to decode draft attachments: %w", err)
		}
	}
	draft.UpdatedAt = draft.UpdatedAt.UTC()
	return &draft, nil
}

// Set upserts the draft; the latest write replaces earlier ones
func (s *Store) Set(ctx context.Context, draft *simplepublish.SubmissionDraft) error {
	fields := []byte(draft.Fields)
	if len(fields) == 0 {
		fields = []byte("{}")
	}
	attachments, err := json.Marshal(draft.Attachments)
	if err != nil {
		return fmt.Errorf("failed to encode draft attachments: %w", err)
	}
	if draft.Attachments == nil {
		attachments = []byte("[]")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, subject_type, fields, attachments, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			subject_type = EXCLUDED.subject_type,
			fields = EXCLUDED.fields,
			attachments = EXCLUDED.attachments,
			updated_at = EXCLUDED.updated_at`, s.table)

	_, err = s.db.Exec(ctx, query,
		draft.Key, string(draft.SubjectType), string(fields), string(attachments), draft.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("set draft", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.db.Exec(ctx, query, key); err != nil {
		return s.handlePostgresError("clear draft", err)
	}
	return nil
}

// Error handling helper
func (s *Store) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "22P02": // invalid_text_representation
			return fmt.Errorf("draft contains invalid JSON: %s", pgErr.Message)
		case "42P01": // undefined_table
			return fmt.Errorf("table %s does not exist - database migration required", s.table)
		case "3F000": // invalid_schema_name
			return fmt.Errorf("schema for %s does not exist", s.table)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}
