package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/ghostmail/internal/session"
	"github.com/flemzord/ghostmail/pkg/mail"
)

const timeLayout = time.RFC3339Nano

// Store implements session.Store on a SQLite table.
type Store struct {
	db *sql.DB
}

var _ session.Store = (*Store)(nil)

// Get implements session.Store.
func (s *Store) Get(ctx context.Context, chatID string) (mail.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, email_address, email_token, expires_at, created_at
		 FROM sessions WHERE chat_id = ?`, chatID)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mail.Session{}, session.ErrNotFound
	}
	if err != nil {
		return mail.Session{}, fmt.Errorf("sqlite: get session %s: %w", chatID, err)
	}
	return sess, nil
}

// Put implements session.Store.
func (s *Store) Put(ctx context.Context, sess mail.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id, email_address, email_token, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
			email_address = excluded.email_address,
			email_token   = excluded.email_token,
			expires_at    = excluded.expires_at,
			created_at    = excluded.created_at`,
		sess.ChatID, sess.EmailAddress, sess.EmailToken, sess.ExpiresAt,
		sess.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put session %s: %w", sess.ChatID, err)
	}
	return nil
}

// Delete implements session.Store.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("sqlite: delete session %s: %w", chatID, err)
	}
	return nil
}

// List implements session.Store.
func (s *Store) List(ctx context.Context) ([]mail.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, email_address, email_token, expires_at, created_at
		 FROM sessions ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []mail.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Len implements session.Store.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count sessions: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (mail.Session, error) {
	var (
		sess    mail.Session
		created string
	)
	if err := row.Scan(&sess.ChatID, &sess.EmailAddress, &sess.EmailToken, &sess.ExpiresAt, &created); err != nil {
		return mail.Session{}, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return mail.Session{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	sess.CreatedAt = t
	return sess, nil
}
