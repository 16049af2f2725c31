package engine

import (
	"strconv"
	"strings"
)

// MateSentinel is the centipawn value assigned to any forced mate. It
// dominates every realistic material evaluation, so ordering and loss
// arithmetic keep working without a special case for mate, and two
// opposite sentinels subtract without overflowing int.
const MateSentinel = 100000

// Score is a single engine evaluation, relative to the side to move in
// the position it was produced for.
type Score struct {
	// Mate indicates a forced mate was found. Value then holds the
	// signed mate distance: positive when the side to move mates,
	// negative (or zero) when it is being mated.
	Mate bool

	// Value is the evaluation in centipawns, or the mate distance
	// when Mate is set.
	Value int
}

// Centipawns collapses the score to a single comparable integer.
// Forced mates map to +/-MateSentinel regardless of distance.
func (s Score) Centipawns() int {
	if s.Mate {
		if s.Value > 0 {
			return MateSentinel
		}
		return -MateSentinel
	}
	return s.Value
}

// parseInfo extracts the score and depth from a UCI "info" line.
// Returns ok=false for lines without a final score, including
// lowerbound/upperbound interim reports.
func parseInfo(line string) (score Score, depth int, ok bool) {
	fields := strings.Fields(line)
	for i, field := range fields {
		switch field {
		case "depth":
			if i+1 < len(fields) {
				if d, err := strconv.Atoi(fields[i+1]); err == nil {
					depth = d
				}
			}
		case "lowerbound", "upperbound":
			return Score{}, 0, false
		case "score":
			if i+2 >= len(fields) {
				return Score{}, 0, false
			}
			v, err := strconv.Atoi(fields[i+2])
			if err != nil {
				return Score{}, 0, false
			}
			switch fields[i+1] {
			case "cp":
				score = Score{Value: v}
				ok = true
			case "mate":
				score = Score{Mate: true, Value: v}
				ok = true
			default:
				return Score{}, 0, false
			}
		}
	}
	return score, depth, ok
}
