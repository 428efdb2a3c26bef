package telemetry

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/deadend/config"
	"github.com/pthm-cable/deadend/sim"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkInstantCapture BookmarkType = "instant_capture"
	BookmarkLongEscape     BookmarkType = "long_escape"
	BookmarkGoalSprint     BookmarkType = "goal_sprint"
)

// Bookmark marks an episode worth replaying.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Episode     int          `csv:"episode" json:"episode"`
	Tick        int          `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"episode", b.Episode,
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector flags unusual episodes as they are sealed.
type BookmarkDetector struct {
	cfg      config.BookmarksConfig
	minTicks int // fastest possible unopposed run

	// Rolling history of episode lengths (circular buffer)
	history     []int
	historySize int
	historyIdx  int
	historyFull bool
}

// NewBookmarkDetector creates a detector with the given history size.
// minTicks is the number of ticks the cat needs to reach the goal unopposed.
func NewBookmarkDetector(cfg config.BookmarksConfig, minTicks, historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3 // minimum for a meaningful rolling mean
	}
	return &BookmarkDetector{
		cfg:         cfg,
		minTicks:    minTicks,
		history:     make([]int, historySize),
		historySize: historySize,
	}
}

// Check analyzes a sealed episode and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(index int, ep EpisodeStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkInstantCapture(index, ep); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkLongEscape(index, ep); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkGoalSprint(index, ep); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(ep.Ticks)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(ticks int) {
	bd.history[bd.historyIdx] = ticks
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []int {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkInstantCapture(index int, ep EpisodeStats) *Bookmark {
	if ep.Outcome != sim.Captured || ep.Ticks > bd.cfg.InstantCapture.MaxTicks {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkInstantCapture,
		Episode:     index,
		Tick:        ep.Ticks,
		Description: fmt.Sprintf("Cat captured after %d ticks", ep.Ticks),
	}
}

func (bd *BookmarkDetector) checkLongEscape(index int, ep EpisodeStats) *Bookmark {
	if !ep.Won || ep.Ticks < bd.cfg.LongEscape.MinTicks {
		return nil
	}
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(ep.Ticks) > avg*bd.cfg.LongEscape.Multiplier {
		return &Bookmark{
			Type:        BookmarkLongEscape,
			Episode:     index,
			Tick:        ep.Ticks,
			Description: fmt.Sprintf("Win after %d ticks is %.1fx average (%.1f)", ep.Ticks, float64(ep.Ticks)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkGoalSprint(index int, ep EpisodeStats) *Bookmark {
	if ep.Outcome != sim.Reached || bd.minTicks <= 0 {
		return nil
	}
	limit := int(math.Ceil(float64(bd.minTicks) * bd.cfg.GoalSprint.Slack))
	if ep.Ticks > limit {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkGoalSprint,
		Episode:     index,
		Tick:        ep.Ticks,
		Description: fmt.Sprintf("Goal reached in %d ticks (unopposed minimum %d)", ep.Ticks, bd.minTicks),
	}
}
