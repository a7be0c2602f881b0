package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity. Each level admits scopes up to a bound.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // session events and failures only
	LevelPhase        // + document boundaries
	LevelDetail       // + runs and soft failures
	LevelDebug        // + per-result events
)

var levels = []struct {
	name  string
	level Level
	upTo  Scope
}{
	{"off", LevelOff, 0},
	{"error", LevelError, ScopeSession},
	{"phase", LevelPhase, ScopeDocument},
	{"detail", LevelDetail, ScopeRun},
	{"debug", LevelDebug, ScopeResult},
}

func (l Level) String() string {
	if int(l) < len(levels) {
		return levels[l].name
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(s)
	for _, e := range levels {
		if e.name == s {
			return e.level, nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
}

// ShouldEmit reports whether events of scope pass this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(levels) {
		return false
	}
	return scope != 0 && scope <= levels[l].upTo
}
