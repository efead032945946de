package exp

// QualityEvalImportanceMax bounds the eval-importance option.
const QualityEvalImportanceMax = 10

// qualityMovesAhead is how many plies the look-ahead walk may extend.
const qualityMovesAhead = 10

// Quality scores an entry for move selection and reports whether the line
// may run into a draw.
//
// The base score weights the observation count by (10 - evalImportance).
// With a non-zero evalImportance the walk follows best experience moves up
// to ten plies, accumulating per-color evaluation swings, and folds the
// difference back into the score. All applied moves are undone before
// returning.
func (s *Store) Quality(pos Position, e *Entry, evalImportance int) (int, bool) {
	evalImportance = clampImportance(evalImportance)

	maybeDraw := false
	q := int(e.Count) * (QualityEvalImportanceMax - evalImportance)

	if evalImportance == 0 {
		// Shallow draw detection only.
		if pos.DoMove(e.Move) {
			maybeDraw = pos.IsDraw()
			pos.UndoMove()
		}
		return q / QualityEvalImportanceMax, maybeDraw
	}

	us := pos.SideToMove()
	them := 1 - us

	var sum, weight [2]int64
	sum[us] = int64(e.Count)
	weight[us] = 1

	var lastExp [2]*Entry
	me := us
	cur := e
	applied := 0

	for {
		lastExp[me] = cur

		if !pos.DoMove(cur.Move) {
			break
		}
		applied++
		me = 1 - me

		if !maybeDraw {
			maybeDraw = pos.IsDraw()
		}

		if applied >= qualityMovesAhead {
			break
		}

		chain := s.Probe(pos.Key())
		if len(chain) == 0 {
			break
		}

		// Best next experience move, shallow.
		next := chain[0]
		for _, cand := range chain[1:] {
			if cand.Compare(next) > 0 {
				next = cand
			}
		}
		cur = next

		if lastExp[me] != nil {
			sum[me] += int64(next.Value) - int64(lastExp[me].Value)
			weight[me]++
		}
	}

	for i := 0; i < applied; i++ {
		pos.UndoMove()
	}

	total := sum[us]
	w := weight[us]
	if weight[them] > 0 {
		total -= sum[them]
		w += weight[them]
	}

	q += int(total * int64(evalImportance) / w)

	return q / QualityEvalImportanceMax, maybeDraw
}
