package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the reference Store backed by mattn/go-sqlite3, grounded on
// the teacher's pkg/server/internal/db/db.go table-creation style.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a sqlite database at path and
// ensures the append-only schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open sqlite: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hands (
			hand_id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL,
			hand_no INTEGER NOT NULL,
			pot INTEGER NOT NULL,
			aborted BOOLEAN NOT NULL DEFAULT FALSE,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hand_participants (
			hand_id TEXT NOT NULL,
			wallet TEXT NOT NULL,
			seat_index INTEGER NOT NULL,
			starting_stack INTEGER NOT NULL,
			delta INTEGER NOT NULL,
			showed_cards BOOLEAN NOT NULL DEFAULT FALSE,
			hand_description TEXT DEFAULT '',
			PRIMARY KEY (hand_id, wallet)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			wallet TEXT NOT NULL,
			table_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			wallet TEXT NOT NULL,
			table_id TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) RecordHand(rec HandRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO hands (hand_id, table_id, hand_no, pot, aborted, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.HandID, rec.TableID, rec.HandNo, rec.Pot, rec.Aborted, rec.StartedAt, rec.EndedAt,
	)
	return err
}

func (s *SQLiteStore) RecordHandParticipants(rows []ParticipantRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := tx.Exec(
			`INSERT INTO hand_participants
			 (hand_id, wallet, seat_index, starting_stack, delta, showed_cards, hand_description)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.HandID, r.Wallet, r.SeatIndex, r.StartingStack, r.Delta, r.ShowedCards, r.HandDescription,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecordTransaction(row TransactionRow) error {
	_, err := s.db.Exec(
		`INSERT INTO transactions (wallet, table_id, amount, type, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		row.Wallet, row.TableID, row.Amount, row.Type, row.Description, row.At,
	)
	return err
}

func (s *SQLiteStore) CreateSession(wallet, tableID string, at time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, wallet, table_id, started_at) VALUES (?, ?, ?, ?)`,
		id, wallet, tableID, at,
	)
	return id, err
}

func (s *SQLiteStore) EndSession(sessionID string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE session_id = ?`, at, sessionID)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
