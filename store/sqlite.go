package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps records in a SQLite file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveTrial(ctx context.Context, rec TrialRecord) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	rec = prepare(rec)
	payload, err := encodeSummary(rec.Summary)
	if err != nil {
		return "", err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO trials (id, created_at, cat_ai, dog_ai, seed, episodes, wins, interest, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			cat_ai = excluded.cat_ai,
			dog_ai = excluded.dog_ai,
			seed = excluded.seed,
			episodes = excluded.episodes,
			wins = excluded.wins,
			interest = excluded.interest,
			payload = excluded.payload
	`, rec.ID, rec.CreatedAt.UnixNano(), rec.CatAI, rec.DogAI, rec.Seed,
		rec.Summary.Episodes, rec.Summary.Wins, rec.Summary.Interest, payload)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *SQLiteStore) GetTrial(ctx context.Context, id string) (TrialRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return TrialRecord{}, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, created_at, cat_ai, dog_ai, seed, payload FROM trials WHERE id = ?
	`, id)
	rec, err := scanTrial(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TrialRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return TrialRecord{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListTrials(ctx context.Context) ([]TrialRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, created_at, cat_ai, dog_ai, seed, payload FROM trials ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrialRecord
	for rows.Next() {
		rec, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrial(sc scanner) (TrialRecord, error) {
	var (
		rec     TrialRecord
		created int64
		payload []byte
	)
	if err := sc.Scan(&rec.ID, &created, &rec.CatAI, &rec.DogAI, &rec.Seed, &payload); err != nil {
		return TrialRecord{}, err
	}
	rec.CreatedAt = time.Unix(0, created).UTC()

	summary, err := decodeSummary(payload)
	if err != nil {
		return TrialRecord{}, fmt.Errorf("trial %s: %w", rec.ID, err)
	}
	rec.Summary = summary
	return rec, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trials (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			cat_ai TEXT NOT NULL,
			dog_ai TEXT NOT NULL,
			seed INTEGER NOT NULL,
			episodes INTEGER NOT NULL,
			wins INTEGER NOT NULL,
			interest REAL NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
