package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/deadend/config"
)

// EpisodeRecord is one row of episodes.csv.
type EpisodeRecord struct {
	Episode int     `csv:"episode"`
	Seed    int64   `csv:"seed"`
	Outcome string  `csv:"outcome"`
	Won     bool    `csv:"won"`
	Ticks   int     `csv:"ticks"`
	Entropy float64 `csv:"entropy"`
}

// NewEpisodeRecord flattens a sealed episode for CSV output.
func NewEpisodeRecord(index int, seed int64, ep EpisodeStats) EpisodeRecord {
	return EpisodeRecord{
		Episode: index,
		Seed:    seed,
		Outcome: ep.Outcome.String(),
		Won:     ep.Won,
		Ticks:   ep.Ticks,
		Entropy: ep.Entropy(),
	}
}

// csvFile appends gocsv rows, writing the header only once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{f: f}, nil
}

func writeRows[T any](c *csvFile, records []T) error {
	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir string

	episodes  *csvFile
	trials    *csvFile
	perf      *csvFile
	bookmarks *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for _, out := range []struct {
		name string
		dst  **csvFile
	}{
		{"episodes.csv", &om.episodes},
		{"trials.csv", &om.trials},
		{"perf.csv", &om.perf},
		{"bookmarks.csv", &om.bookmarks},
	} {
		c, err := createCSV(dir, out.name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*out.dst = c
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteEpisodes appends rows to episodes.csv.
func (om *OutputManager) WriteEpisodes(records []EpisodeRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if err := writeRows(om.episodes, records); err != nil {
		return fmt.Errorf("writing episodes: %w", err)
	}
	return nil
}

// WriteTrial writes a trial summary to trials.csv.
func (om *OutputManager) WriteTrial(t Trial) error {
	if om == nil {
		return nil
	}
	if err := writeRows(om.trials, []Trial{t}); err != nil {
		return fmt.Errorf("writing trial: %w", err)
	}
	return nil
}

// WritePerf writes a worker's performance stats to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, worker int) error {
	if om == nil {
		return nil
	}
	if err := writeRows(om.perf, []PerfStatsCSV{stats.ToCSV(worker)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := writeRows(om.bookmarks, []Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// SnapshotDir is where replay snapshots for bookmarked episodes go.
func (om *OutputManager) SnapshotDir() string {
	if om == nil {
		return ""
	}
	return filepath.Join(om.dir, "snapshots")
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.episodes, om.trials, om.perf, om.bookmarks} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
