package chess

// IsRepetition reports whether the current position occurred earlier in the
// game. A single prior occurrence counts, matching the in-search draw rule
// of the engines this store serves.
func (b *Board) IsRepetition() bool {
	if len(b.history) < 2 {
		return false
	}
	// MakeMove appends the key after the move, so the last history slot is
	// the current position; scan everything before it.
	current := b.Key()
	for i := 0; i < len(b.history)-1; i++ {
		if b.history[i] == current {
			return true
		}
	}
	return false
}

// IsDraw reports whether the position is drawn by the 50-move rule or by
// repetition. Insufficient material is classified separately (see
// InsufficientMaterial) because the importer applies it after each move
// with its own rules.
func (b *Board) IsDraw() bool {
	if b.HalfMoves >= 100 {
		return true
	}
	return b.IsRepetition()
}

// DarkSquares marks the dark squares by index bit.
const DarkSquares uint64 = 0xAA55AA55AA55AA55

// InsufficientMaterial reports draws the experience importer recognizes:
// KvK, KvK plus a single minor piece, and KBvKB with both bishops on the
// same square color.
func (b *Board) InsufficientMaterial() bool {
	n := b.CountPieces()

	switch {
	case n == 2:
		return true
	case n == 3:
		minors := b.CountPiece(WBishop) + b.CountPiece(BBishop) +
			b.CountPiece(WKnight) + b.CountPiece(BKnight)
		return minors == 1
	case n == 4 && b.CountPiece(WBishop) == 1 && b.CountPiece(BBishop) == 1:
		var whiteDark, blackDark bool
		for sq := Square(0); sq < 64; sq++ {
			dark := DarkSquares&(1<<uint(sq)) != 0
			switch b.Squares[sq] {
			case WBishop:
				whiteDark = dark
			case BBishop:
				blackDark = dark
			}
		}
		return whiteDark == blackDark
	}

	return false
}
