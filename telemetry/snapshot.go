package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/deadend/geom"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds what is needed to replay one episode: the starting layout,
// the strategies and their seeds. Episodes are deterministic given these.
type Snapshot struct {
	Version int `json:"version"`

	Episode int    `json:"episode"`
	Seed    int64  `json:"seed"`
	CatAI   string `json:"cat_ai"`
	DogAI   string `json:"dog_ai"`

	Field geom.Field `json:"field"`
	Cat   Point      `json:"cat"`
	Dogs  []Point    `json:"dogs"`
	Goal  Point      `json:"goal"`

	// Result as recorded when the snapshot was taken
	Outcome string `json:"outcome"`
	Ticks   int    `json:"ticks"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// Point is the JSON form of a position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointOf converts a position to its JSON form.
func PointOf(v geom.Vec2) Point { return Point{X: v.X, Y: v.Y} }

// Vec2 converts back to a position.
func (p Point) Vec2() geom.Vec2 { return geom.Vec2{X: p.X, Y: p.Y} }

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("episode_%d", snapshot.Episode)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("episode_%d_%s", snapshot.Episode, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
