// Package store persists trial summaries.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/deadend/telemetry"
)

// ErrNotFound is returned by GetTrial for unknown IDs.
var ErrNotFound = errors.New("store: trial not found")

// ErrNotInitialized is returned when a store is used before Init.
var ErrNotInitialized = errors.New("store: not initialized")

// TrialRecord is one persisted batch.
type TrialRecord struct {
	ID        string
	CreatedAt time.Time
	CatAI     string
	DogAI     string
	Seed      int64
	Summary   telemetry.Trial
}

// Store saves and loads trial records.
type Store interface {
	Init(ctx context.Context) error
	// SaveTrial stores rec, assigning an ID and timestamp when unset, and
	// returns the ID.
	SaveTrial(ctx context.Context, rec TrialRecord) (string, error)
	GetTrial(ctx context.Context, id string) (TrialRecord, error)
	// ListTrials returns every record, oldest first.
	ListTrials(ctx context.Context) ([]TrialRecord, error)
	Close() error
}

// New opens the named backend: "memory" (or empty) or "sqlite".
func New(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func prepare(rec TrialRecord) TrialRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec
}

func encodeSummary(t telemetry.Trial) ([]byte, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode trial summary: %w", err)
	}
	return payload, nil
}

func decodeSummary(payload []byte) (telemetry.Trial, error) {
	var t telemetry.Trial
	if err := json.Unmarshal(payload, &t); err != nil {
		return telemetry.Trial{}, fmt.Errorf("decode trial summary: %w", err)
	}
	return t, nil
}
