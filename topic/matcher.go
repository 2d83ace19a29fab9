// Package topic implements MQTT topic-filter matching.
//
// Matching is pure and stateless: given a concrete topic name and a filter
// that may contain the '+' and '#' wildcards, Match reports whether the
// filter would deliver a message published on that topic.
package topic

import (
	"fmt"
	"strings"
)

// Match reports whether topicName matches filter.
//
// filter levels are split on '/'. A level of "+" matches exactly one
// (possibly empty) level. A level of "#" matches zero or more trailing
// levels and must be the last level of the filter; Match does not itself
// validate filter well-formedness (see ValidateFilter for that) and simply
// treats a non-terminal "#" as a literal level.
//
// Per MQTT-4.7.2-1, a filter whose first level is a wildcard ('+' or '#')
// must never match a topic name whose first level begins with '$' — this is
// how the $SYS boundary is enforced regardless of which concrete system
// prefix a deployment uses.
func Match(topicName, filter string) bool {
	if len(topicName) > 0 && topicName[0] == '$' {
		if len(filter) > 0 && (filter[0] == '+' || filter[0] == '#') {
			return false
		}
	}

	fIdx, tIdx := 0, 0
	fLen, tLen := len(filter), len(topicName)

	for fIdx <= fLen {
		fLevel, fNext := nextLevel(filter, fIdx, fLen)

		if fLevel == "#" && fNext == fLen {
			return true
		}

		if tIdx > tLen {
			return false
		}

		tLevel, tNext := nextLevel(topicName, tIdx, tLen)

		if fLevel != "+" && fLevel != tLevel {
			return false
		}

		fIdx = advance(fNext, fLen)
		tIdx = advance(tNext, tLen)
	}

	return tIdx > tLen
}

// ValidateFilter reports whether filter is a well-formed MQTT topic filter:
// non-empty, with '#' only ever occupying the last level in its entirety
// and '+' only ever occupying a level in its entirety. A filter like
// "a/#/b" (non-terminal '#') or "a/b+" ('+' sharing a level with other
// characters) is rejected rather than silently treated as a literal, which
// is what Match itself would otherwise do.
func ValidateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("topic: filter must not be empty")
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return fmt.Errorf("topic: %q: '#' must be the last level of the filter", filter)
			}
		case strings.Contains(level, "#"):
			return fmt.Errorf("topic: %q: '#' must occupy a whole level", filter)
		case level == "+":
			// whole-level wildcard, permitted anywhere.
		case strings.Contains(level, "+"):
			return fmt.Errorf("topic: %q: '+' must occupy a whole level", filter)
		}
	}
	return nil
}

// IsSysTopic reports whether filter or topicName falls under the given
// system-topic prefix (conventionally "$SYS/"). Callers route to
// subscription.SysTopicIndex instead of the regular indices based on this,
// rather than relying on Match to cross the boundary.
func IsSysTopic(name, sysPrefix string) bool {
	return strings.HasPrefix(name, sysPrefix)
}

func nextLevel(s string, idx, length int) (level string, next int) {
	if i := strings.IndexByte(s[idx:], '/'); i >= 0 {
		next = idx + i
		return s[idx:next], next
	}
	return s[idx:], length
}

func advance(next, length int) int {
	if next == length {
		return length + 1
	}
	return next + 1
}
