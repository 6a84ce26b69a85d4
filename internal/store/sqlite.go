package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/aaronzipp/werewolf-gm/internal/models"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteStore persists sessions in a SQLite database. Players are kept as a JSON
// column on the session row; events and chat turns live in their own append-only
// tables ordered by seq.
type SQLiteStore struct {
	db *sqlx.DB
}

type sessionRow struct {
	Code       string         `db:"code"`
	CreatedAt  int64          `db:"created_at"`
	Phase      string         `db:"phase"`
	Players    string         `db:"players"`
	LastKilled sql.NullString `db:"last_killed"`
	HealUsed   bool           `db:"heal_used"`
	PoisonUsed bool           `db:"poison_used"`
	Version    int64          `db:"version"`
}

type eventRow struct {
	Code      string `db:"code"`
	Seq       int    `db:"seq"`
	Timestamp int64  `db:"ts"`
	Type      string `db:"type"`
	Payload   string `db:"payload"`
}

type chatRow struct {
	Code      string `db:"code"`
	Seq       int    `db:"seq"`
	Timestamp int64  `db:"ts"`
	Role      string `db:"role"`
	Content   string `db:"content"`
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens the database at path and ensures the schema exists
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			code TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			phase TEXT NOT NULL,
			players TEXT NOT NULL DEFAULT '[]',
			last_killed TEXT,
			heal_used INTEGER NOT NULL DEFAULT 0,
			poison_used INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			code TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY(code, seq),
			FOREIGN KEY(code) REFERENCES sessions(code) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			code TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY(code, seq),
			FOREIGN KEY(code) REFERENCES sessions(code) ON DELETE CASCADE
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the database handle
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toRow(sess *models.Session) (sessionRow, error) {
	players, err := json.Marshal(sess.Players)
	if err != nil {
		return sessionRow{}, fmt.Errorf("encode players: %w", err)
	}
	row := sessionRow{
		Code:       sess.Code,
		CreatedAt:  toMillis(sess.CreatedAt),
		Phase:      string(sess.Phase),
		Players:    string(players),
		HealUsed:   sess.Potions.HealUsed,
		PoisonUsed: sess.Potions.PoisonUsed,
		Version:    sess.Version,
	}
	if sess.LastKilled != nil {
		row.LastKilled = sql.NullString{String: *sess.LastKilled, Valid: true}
	}
	return row, nil
}

// Create inserts a new session with its initial history
func (s *SQLiteStore) Create(ctx context.Context, sess *models.Session) error {
	row, err := toRow(sess)
	if err != nil {
		return err
	}
	row.Version = 0

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO sessions
		(code, created_at, phase, players, last_killed, heal_used, poison_used, version)
		VALUES (:code, :created_at, :phase, :players, :last_killed, :heal_used, :poison_used, :version)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert session: %w", err)
	}
	if err := insertEvents(ctx, tx, sess.Code, 0, sess.History); err != nil {
		return err
	}
	if err := insertChat(ctx, tx, sess.Code, 0, sess.ChatHistory); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create: %w", err)
	}
	sess.Version = 0
	return nil
}

// Get loads a session with its full history
func (s *SQLiteStore) Get(ctx context.Context, code string) (*models.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `SELECT code, created_at, phase, players, last_killed,
		heal_used, poison_used, version FROM sessions WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess := models.NewSession(row.Code, fromMillis(row.CreatedAt))
	sess.Phase = models.Phase(row.Phase)
	sess.Potions = models.Potions{HealUsed: row.HealUsed, PoisonUsed: row.PoisonUsed}
	sess.Version = row.Version
	if row.LastKilled.Valid {
		id := row.LastKilled.String
		sess.LastKilled = &id
	}
	if err := json.Unmarshal([]byte(row.Players), &sess.Players); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}

	var events []eventRow
	if err := s.db.SelectContext(ctx, &events, `SELECT code, seq, ts, type, payload
		FROM events WHERE code = ? ORDER BY seq`, code); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	for _, e := range events {
		ev := models.Event{Timestamp: fromMillis(e.Timestamp), Type: e.Type}
		if err := json.Unmarshal([]byte(e.Payload), &ev.Payload); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", e.Seq, err)
		}
		sess.History = append(sess.History, ev)
	}

	var chat []chatRow
	if err := s.db.SelectContext(ctx, &chat, `SELECT code, seq, ts, role, content
		FROM chat_messages WHERE code = ? ORDER BY seq`, code); err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	for _, c := range chat {
		sess.ChatHistory = append(sess.ChatHistory, models.ChatMessage{
			Timestamp: fromMillis(c.Timestamp),
			Role:      models.ChatRole(c.Role),
			Content:   c.Content,
		})
	}
	return sess, nil
}

// Save writes the session row if the stored version matches and appends any
// history entries beyond what is already stored
func (s *SQLiteStore) Save(ctx context.Context, sess *models.Session) error {
	row, err := toRow(sess)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, `UPDATE sessions SET
		phase = :phase, players = :players, last_killed = :last_killed,
		heal_used = :heal_used, poison_used = :poison_used, version = version + 1
		WHERE code = :code AND version = :version`, row)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM sessions WHERE code = ?`, sess.Code); err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	var stored int
	if err := tx.GetContext(ctx, &stored, `SELECT COUNT(*) FROM events WHERE code = ?`, sess.Code); err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if stored > len(sess.History) {
		return ErrVersionConflict
	}
	if err := insertEvents(ctx, tx, sess.Code, stored, sess.History[stored:]); err != nil {
		return err
	}

	if err := tx.GetContext(ctx, &stored, `SELECT COUNT(*) FROM chat_messages WHERE code = ?`, sess.Code); err != nil {
		return fmt.Errorf("count chat: %w", err)
	}
	if stored > len(sess.ChatHistory) {
		return ErrVersionConflict
	}
	if err := insertChat(ctx, tx, sess.Code, stored, sess.ChatHistory[stored:]); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	sess.Version++
	return nil
}

// AppendEvent adds one entry to a session's history
func (s *SQLiteStore) AppendEvent(ctx context.Context, code string, e models.Event) error {
	return s.appendTx(ctx, code, func(tx *sqlx.Tx) error {
		var next int
		if err := tx.GetContext(ctx, &next, `SELECT COUNT(*) FROM events WHERE code = ?`, code); err != nil {
			return fmt.Errorf("count events: %w", err)
		}
		return insertEvents(ctx, tx, code, next, []models.Event{e})
	})
}

// AppendChat adds dialogue turns to a session's chat history
func (s *SQLiteStore) AppendChat(ctx context.Context, code string, msgs ...models.ChatMessage) error {
	return s.appendTx(ctx, code, func(tx *sqlx.Tx) error {
		var next int
		if err := tx.GetContext(ctx, &next, `SELECT COUNT(*) FROM chat_messages WHERE code = ?`, code); err != nil {
			return fmt.Errorf("count chat: %w", err)
		}
		return insertChat(ctx, tx, code, next, msgs)
	})
}

// appendTx bumps the session version and runs fn in the same transaction
func (s *SQLiteStore) appendTx(ctx context.Context, code string, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE sessions SET version = version + 1 WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("bump version: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// Exists checks if a session code exists
func (s *SQLiteStore) Exists(ctx context.Context, code string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sessions WHERE code = ?`, code); err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

func insertEvents(ctx context.Context, tx *sqlx.Tx, code string, from int, events []models.Event) error {
	for i, e := range events {
		payload := e.Payload
		if payload == nil {
			payload = map[string]string{}
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		row := eventRow{Code: code, Seq: from + i, Timestamp: toMillis(e.Timestamp), Type: e.Type, Payload: string(raw)}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO events (code, seq, ts, type, payload)
			VALUES (:code, :seq, :ts, :type, :payload)`, row); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

func insertChat(ctx context.Context, tx *sqlx.Tx, code string, from int, msgs []models.ChatMessage) error {
	for i, m := range msgs {
		row := chatRow{Code: code, Seq: from + i, Timestamp: toMillis(m.Timestamp), Role: string(m.Role), Content: m.Content}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO chat_messages (code, seq, ts, role, content)
			VALUES (:code, :seq, :ts, :role, :content)`, row); err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ Store = (*SQLiteStore)(nil)
