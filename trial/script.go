package trial

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pthm-cable/deadend/ai"
	"github.com/pthm-cable/deadend/geom"
	"github.com/pthm-cable/deadend/sim"
	"github.com/pthm-cable/deadend/telemetry"
)

// KeyEvent is one press or release in a control script.
type KeyEvent struct {
	Dir   geom.Direction
	Press bool
}

// Script is a list of key events per tick. Line i of a script file holds the
// events applied before tick i+1: "+up" presses, "-up" releases and "." leaves
// the held keys alone. Blank lines and lines starting with # are skipped.
type Script [][]KeyEvent

// ParseScript reads a control script.
func ParseScript(r io.Reader) (Script, error) {
	var s Script
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var events []KeyEvent
		for _, tok := range strings.Fields(text) {
			if tok == "." {
				continue
			}
			if len(tok) < 2 || (tok[0] != '+' && tok[0] != '-') {
				return nil, fmt.Errorf("script line %d: bad token %q", line, tok)
			}
			d, err := geom.ParseDirection(tok[1:])
			if err != nil || d == geom.None {
				return nil, fmt.Errorf("script line %d: bad direction %q", line, tok[1:])
			}
			events = append(events, KeyEvent{Dir: d, Press: tok[0] == '+'})
		}
		s = append(s, events)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Play runs one episode with the cat steered by the script and the dogs by
// opts.DogAI. Once the script runs out the last held keys stay down. onTick,
// when non-nil, sees every state the episode produces.
func (s Script) Play(opts Options, onTick func(sim.State)) (telemetry.EpisodeStats, error) {
	dogF, err := ai.New(opts.DogAI, opts.AI)
	if err != nil {
		return telemetry.EpisodeStats{}, fmt.Errorf("%w: dog: %v", ErrInvalid, err)
	}

	so := capTicks(opts.Sim)
	layout := layoutFor(opts.Seed, opts)
	so.Layout = &layout

	control := ai.NewControl()
	sm, err := sim.New(control, dogF(opts.Seed+dogSeedOffset), so)
	if err != nil {
		return telemetry.EpisodeStats{}, err
	}

	logger := telemetry.NewDataLogger(opts.Interest)
	if err := logger.GameStarted(sm.FieldSize(), sm.CurrentState().Dogs); err != nil {
		return telemetry.EpisodeStats{}, err
	}

	var keys ai.HeldKeys
	for tick := 0; !sm.Over(); tick++ {
		if tick < len(s) {
			for _, ev := range s[tick] {
				if ev.Press {
					keys.Press(ev.Dir)
				} else {
					keys.Release(ev.Dir)
				}
			}
		}
		keys.Apply(control)

		st := sm.Tick()
		if onTick != nil {
			onTick(st)
		}
		if err := logger.GameTicked(st); err != nil {
			return telemetry.EpisodeStats{}, err
		}
	}
	if err := logger.GameEnded(sm.CurrentState().Win); err != nil {
		return telemetry.EpisodeStats{}, err
	}
	return logger.Episodes()[0], nil
}
