package exp

import (
	"fmt"
	"io"
	"sort"

	"chessexp/internal/chess"
)

// ShowExp writes a quality-ranked listing of the experience recorded for
// the current position. The extended form adds counts and quality scores.
func (s *Store) ShowExp(pos Position, extended bool, out io.Writer) {
	s.WaitForLoad()

	chain := s.Probe(pos.Key())
	if len(chain) == 0 {
		fmt.Fprintln(out, "No experience data found for this position")
		return
	}

	evalImportance := s.EvalImportance()

	type ranked struct {
		entry   *Entry
		quality int
		draw    bool
	}

	entries := make([]ranked, 0, len(chain))
	for _, e := range chain {
		q, draw := s.Quality(pos, e, evalImportance)
		entries = append(entries, ranked{entry: e, quality: q, draw: draw})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].quality > entries[j].quality
	})

	for i, r := range entries {
		e := r.entry
		line := fmt.Sprintf("%-2d: %-5s, depth: %-2d, eval: %-12s",
			i+1, chess.EncodedMoveString(e.Move), e.Depth, evalString(e.Value))

		if extended {
			line += fmt.Sprintf(", count: %-6d, quality: %-6d", e.Count, r.quality)
			if r.draw {
				line += " (draw?)"
			}
		}

		fmt.Fprintln(out, line)
	}
}

// evalString renders a value as centipawns, annotated with the mate
// distance when the score is in the mate range.
func evalString(v int32) string {
	s := fmt.Sprintf("cp %d", v)

	if v >= ValueMate-MaxPlyDist || v <= -(ValueMate-MaxPlyDist) {
		var plies int32
		if v > 0 {
			plies = ValueMate - v
		} else {
			plies = ValueMate + v
		}
		mate := (plies + 1) / 2
		if v < 0 {
			mate = -mate
		}
		s += fmt.Sprintf(" (mate %d)", mate)
	}

	return s
}
