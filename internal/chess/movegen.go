package chess

// Direction offsets for piece movement on the 0-63 board.
var (
	rookDirs   = []int{-8, 8, -1, 1}
	bishopDirs = []int{-9, -7, 7, 9}
	kingDirs   = []int{-9, -8, -7, -1, 1, 7, 8, 9}
	knightDirs = []int{-17, -15, -10, -6, 6, 10, 15, 17}
)

// PseudoLegalMoves generates all pseudo-legal moves for the side to move.
// Moves that leave the own king in check are not filtered out.
func (b *Board) PseudoLegalMoves() []Move {
	moves := make([]Move, 0, 40)
	us := b.SideToMove
	them := us.Opponent()

	for sq := Square(0); sq < 64; sq++ {
		p := b.Squares[sq]
		if p == Empty || p.Color() != us {
			continue
		}

		switch p {
		case WPawn, BPawn:
			moves = b.genPawnMoves(sq, us, moves)
		case WKnight, BKnight:
			moves = b.genStepMoves(sq, us, knightDirs, knightReach, moves)
		case WBishop, BBishop:
			moves = b.genSlidingMoves(sq, us, bishopDirs, moves)
		case WRook, BRook:
			moves = b.genSlidingMoves(sq, us, rookDirs, moves)
		case WQueen, BQueen:
			moves = b.genSlidingMoves(sq, us, rookDirs, moves)
			moves = b.genSlidingMoves(sq, us, bishopDirs, moves)
		case WKing, BKing:
			moves = b.genStepMoves(sq, us, kingDirs, kingReach, moves)
			moves = b.genCastleMoves(sq, us, them, moves)
		}
	}

	return moves
}

// LegalMoves generates the legal moves for the side to move.
func (b *Board) LegalMoves() []Move {
	pseudo := b.PseudoLegalMoves()
	legal := make([]Move, 0, len(pseudo))

	for _, m := range pseudo {
		b.MakeMove(&m)
		if !b.IsAttacked(b.KingSquare[b.SideToMove.Opponent()], b.SideToMove) {
			legal = append(legal, m)
		}
		b.UnmakeMove(&m)
	}

	return legal
}

func (b *Board) genPawnMoves(sq Square, c Color, moves []Move) []Move {
	rank := sq.Rank()
	file := sq.File()

	var dir, startRank, promoRank int
	var promoPieces []Piece

	if c == White {
		dir, startRank, promoRank = 8, 1, 7
		promoPieces = []Piece{WQueen, WRook, WBishop, WKnight}
	} else {
		dir, startRank, promoRank = -8, 6, 0
		promoPieces = []Piece{BQueen, BRook, BBishop, BKnight}
	}

	push := func(to Square) []Move {
		if to.Rank() == promoRank {
			for _, promo := range promoPieces {
				moves = append(moves, Move{From: sq, To: to, Promotion: promo})
			}
		} else {
			moves = append(moves, Move{From: sq, To: to})
		}
		return moves
	}

	// Pushes
	to := sq + Square(dir)
	if to.IsValid() && b.IsEmpty(to) {
		moves = push(to)
		if rank == startRank {
			to2 := sq + Square(2*dir)
			if b.IsEmpty(to2) {
				moves = append(moves, Move{From: sq, To: to2})
			}
		}
	}

	// Captures, including en passant
	for _, fd := range []int{-1, 1} {
		tf := file + fd
		if tf < 0 || tf > 7 {
			continue
		}
		to := sq + Square(dir+fd)
		if !to.IsValid() {
			continue
		}
		target := b.PieceAt(to)
		if target != Empty && target.Color() != c {
			moves = push(to)
		} else if to == b.EnPassant {
			moves = append(moves, Move{From: sq, To: to})
		}
	}

	return moves
}

// Step reach predicates guard against file wraparound on the 0-63 board.
func knightReach(from, to Square) bool {
	dr := abs(to.Rank() - from.Rank())
	df := abs(to.File() - from.File())
	return (dr == 2 && df == 1) || (dr == 1 && df == 2)
}

func kingReach(from, to Square) bool {
	return abs(to.Rank()-from.Rank()) <= 1 && abs(to.File()-from.File()) <= 1
}

func (b *Board) genStepMoves(sq Square, c Color, dirs []int, reach func(Square, Square) bool, moves []Move) []Move {
	for _, dir := range dirs {
		to := sq + Square(dir)
		if !to.IsValid() || !reach(sq, to) {
			continue
		}
		target := b.PieceAt(to)
		if target == Empty || target.Color() != c {
			moves = append(moves, Move{From: sq, To: to})
		}
	}
	return moves
}

func (b *Board) genSlidingMoves(sq Square, c Color, dirs []int, moves []Move) []Move {
	for _, dir := range dirs {
		to := sq
		for {
			prev := to
			to += Square(dir)
			if !to.IsValid() || abs(to.Rank()-prev.Rank()) > 1 || abs(to.File()-prev.File()) > 1 {
				break
			}
			target := b.PieceAt(to)
			if target == Empty {
				moves = append(moves, Move{From: sq, To: to})
				continue
			}
			if target.Color() != c {
				moves = append(moves, Move{From: sq, To: to})
			}
			break
		}
	}
	return moves
}

func (b *Board) genCastleMoves(sq Square, us, them Color, moves []Move) []Move {
	if us == White && sq == 4 {
		if b.Castling&CastleWK != 0 && b.IsEmpty(5) && b.IsEmpty(6) {
			if !b.IsAttacked(4, them) && !b.IsAttacked(5, them) && !b.IsAttacked(6, them) {
				moves = append(moves, Move{From: 4, To: 6})
			}
		}
		if b.Castling&CastleWQ != 0 && b.IsEmpty(1) && b.IsEmpty(2) && b.IsEmpty(3) {
			if !b.IsAttacked(4, them) && !b.IsAttacked(3, them) && !b.IsAttacked(2, them) {
				moves = append(moves, Move{From: 4, To: 2})
			}
		}
	} else if us == Black && sq == 60 {
		if b.Castling&CastleBK != 0 && b.IsEmpty(61) && b.IsEmpty(62) {
			if !b.IsAttacked(60, them) && !b.IsAttacked(61, them) && !b.IsAttacked(62, them) {
				moves = append(moves, Move{From: 60, To: 62})
			}
		}
		if b.Castling&CastleBQ != 0 && b.IsEmpty(57) && b.IsEmpty(58) && b.IsEmpty(59) {
			if !b.IsAttacked(60, them) && !b.IsAttacked(59, them) && !b.IsAttacked(58, them) {
				moves = append(moves, Move{From: 60, To: 58})
			}
		}
	}
	return moves
}

// IsAttacked reports whether the square is attacked by the given color.
func (b *Board) IsAttacked(sq Square, by Color) bool {
	var pawnDir int
	var pawn, knight, king, rook, bishop, queen Piece
	if by == White {
		pawnDir = -8
		pawn, knight, king = WPawn, WKnight, WKing
		rook, bishop, queen = WRook, WBishop, WQueen
	} else {
		pawnDir = 8
		pawn, knight, king = BPawn, BKnight, BKing
		rook, bishop, queen = BRook, BBishop, BQueen
	}

	for _, fd := range []int{-1, 1} {
		from := sq + Square(pawnDir+fd)
		if from.IsValid() && abs(from.File()-sq.File()) == 1 && b.PieceAt(from) == pawn {
			return true
		}
	}

	for _, dir := range knightDirs {
		from := sq + Square(dir)
		if from.IsValid() && knightReach(sq, from) && b.PieceAt(from) == knight {
			return true
		}
	}

	for _, dir := range kingDirs {
		from := sq + Square(dir)
		if from.IsValid() && kingReach(sq, from) && b.PieceAt(from) == king {
			return true
		}
	}

	for _, dir := range rookDirs {
		if b.slidingAttack(sq, dir, rook, queen) {
			return true
		}
	}

	for _, dir := range bishopDirs {
		if b.slidingAttack(sq, dir, bishop, queen) {
			return true
		}
	}

	return false
}

func (b *Board) slidingAttack(sq Square, dir int, slider1, slider2 Piece) bool {
	to := sq
	for {
		prev := to
		to += Square(dir)
		if !to.IsValid() || abs(to.Rank()-prev.Rank()) > 1 || abs(to.File()-prev.File()) > 1 {
			return false
		}
		p := b.PieceAt(to)
		if p == Empty {
			continue
		}
		return p == slider1 || p == slider2
	}
}
