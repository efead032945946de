// Package chess provides the board-side collaborators of the experience
// store: position setup from FEN, a legal-move oracle, do/undo of moves,
// draw detection, and 64-bit Zobrist position keys.
package chess

// Color identifies a player.
type Color uint8

const (
	White Color = iota
	Black
)

// Opponent returns the other color.
func (c Color) Opponent() Color {
	return 1 - c
}

// Piece is a chess piece with color encoded.
type Piece uint8

const (
	Empty Piece = iota
	WPawn
	WKnight
	WBishop
	WRook
	WQueen
	WKing
	BPawn
	BKnight
	BBishop
	BRook
	BQueen
	BKing
)

// Color returns the color of a piece.
func (p Piece) Color() Color {
	if p >= BPawn {
		return Black
	}
	return White
}

// IsWhite reports whether the piece is white.
func (p Piece) IsWhite() bool {
	return p >= WPawn && p <= WKing
}

// IsBlack reports whether the piece is black.
func (p Piece) IsBlack() bool {
	return p >= BPawn && p <= BKing
}

// Type returns the piece type without color (1=pawn .. 6=king, 0=empty).
func (p Piece) Type() int {
	if p == Empty {
		return 0
	}
	if p >= BPawn {
		return int(p - BPawn + 1)
	}
	return int(p)
}

// Castling right flags.
const (
	CastleWK uint8 = 1 << iota
	CastleWQ
	CastleBK
	CastleBQ
)

// Square is a board square index 0-63 (a1=0, h1=7, a8=56).
type Square int8

// NoSquare marks an absent square (no en passant target).
const NoSquare Square = -1

// Rank returns the rank 0-7 (0 is rank 1).
func (sq Square) Rank() int { return int(sq) / 8 }

// File returns the file 0-7 (0 is file a).
func (sq Square) File() int { return int(sq) % 8 }

// SquareAt builds a square from rank and file.
func SquareAt(rank, file int) Square {
	return Square(rank*8 + file)
}

// IsValid reports whether the square is on the board.
func (sq Square) IsValid() bool {
	return sq >= 0 && sq < 64
}

const (
	fileChars = "abcdefgh"
	rankChars = "12345678"
)

// String returns the square in algebraic form ("e4").
func (sq Square) String() string {
	if !sq.IsValid() {
		return "-"
	}
	return string([]byte{fileChars[sq.File()], rankChars[sq.Rank()]})
}

// Move is a chess move together with the state needed to undo it.
// The undo fields are filled in by MakeMove.
type Move struct {
	From      Square
	To        Square
	Promotion Piece // Empty if not a promotion

	captured  Piece
	oldCastle uint8
	oldEP     Square
	oldHalf   int
}

// IsNull reports whether this is the zero move.
func (m Move) IsNull() bool {
	return m.From == m.To && m.From == 0
}

// String returns the move in long algebraic form ("e2e4", "e7e8q").
func (m Move) String() string {
	if m.IsNull() {
		return "0000"
	}
	s := m.From.String() + m.To.String()
	if m.Promotion != Empty {
		switch m.Promotion.Type() {
		case WQueen.Type():
			s += "q"
		case WRook.Type():
			s += "r"
		case WBishop.Type():
			s += "b"
		case WKnight.Type():
			s += "n"
		}
	}
	return s
}

// Board is a chess position. The zero value is not usable; construct with
// NewBoard or ParseFEN.
type Board struct {
	Squares    [64]Piece
	SideToMove Color
	Castling   uint8
	EnPassant  Square
	HalfMoves  int // half-move clock for the 50-move rule
	FullMoves  int
	KingSquare [2]Square

	// history holds the Zobrist key of each position reached by a move, the
	// last one being the current position; the setup position itself is not
	// recorded. Used for repetition detection. MakeMove appends, UnmakeMove
	// pops.
	history []uint64
}

// NewBoard returns the standard starting position.
func NewBoard() *Board {
	b := &Board{
		SideToMove: White,
		Castling:   CastleWK | CastleWQ | CastleBK | CastleBQ,
		EnPassant:  NoSquare,
		FullMoves:  1,
	}

	backRank := []Piece{WRook, WKnight, WBishop, WQueen, WKing, WBishop, WKnight, WRook}
	for i, p := range backRank {
		b.Squares[i] = p
		b.Squares[56+i] = p + (BPawn - WPawn)
	}
	for i := 0; i < 8; i++ {
		b.Squares[8+i] = WPawn
		b.Squares[48+i] = BPawn
	}

	b.KingSquare[White] = 4  // e1
	b.KingSquare[Black] = 60 // e8

	return b
}

// Copy returns a deep copy of the board.
func (b *Board) Copy() *Board {
	nb := *b
	if len(b.history) > 0 {
		nb.history = make([]uint64, len(b.history))
		copy(nb.history, b.history)
	}
	return &nb
}

// PieceAt returns the piece on a square, Empty for off-board squares.
func (b *Board) PieceAt(sq Square) Piece {
	if !sq.IsValid() {
		return Empty
	}
	return b.Squares[sq]
}

// IsEmpty reports whether the square holds no piece.
func (b *Board) IsEmpty(sq Square) bool {
	return b.PieceAt(sq) == Empty
}

// GamePly returns the number of half-moves played so far.
func (b *Board) GamePly() int {
	return len(b.history)
}

// MakeMove applies a move in place, recording undo state into m.
func (b *Board) MakeMove(m *Move) {
	m.captured = b.PieceAt(m.To)
	m.oldCastle = b.Castling
	m.oldEP = b.EnPassant
	m.oldHalf = b.HalfMoves

	piece := b.Squares[m.From]
	us := b.SideToMove

	// En passant capture removes the pawn behind the target square.
	if piece == WPawn || piece == BPawn {
		if m.To == b.EnPassant {
			if us == White {
				b.Squares[m.To-8] = Empty
			} else {
				b.Squares[m.To+8] = Empty
			}
			m.captured = Empty
		}
	}

	b.Squares[m.To] = piece
	b.Squares[m.From] = Empty

	if m.Promotion != Empty {
		b.Squares[m.To] = m.Promotion
	}

	if piece == WKing || piece == BKing {
		b.KingSquare[us] = m.To

		switch {
		case m.From == 4 && m.To == 6:
			b.Squares[5] = WRook
			b.Squares[7] = Empty
		case m.From == 4 && m.To == 2:
			b.Squares[3] = WRook
			b.Squares[0] = Empty
		case m.From == 60 && m.To == 62:
			b.Squares[61] = BRook
			b.Squares[63] = Empty
		case m.From == 60 && m.To == 58:
			b.Squares[59] = BRook
			b.Squares[56] = Empty
		}
	}

	if m.From == 4 {
		b.Castling &^= CastleWK | CastleWQ
	}
	if m.From == 60 {
		b.Castling &^= CastleBK | CastleBQ
	}
	if m.From == 0 || m.To == 0 {
		b.Castling &^= CastleWQ
	}
	if m.From == 7 || m.To == 7 {
		b.Castling &^= CastleWK
	}
	if m.From == 56 || m.To == 56 {
		b.Castling &^= CastleBQ
	}
	if m.From == 63 || m.To == 63 {
		b.Castling &^= CastleBK
	}

	b.EnPassant = NoSquare
	if piece == WPawn && m.To-m.From == 16 {
		b.EnPassant = m.From + 8
	} else if piece == BPawn && m.From-m.To == 16 {
		b.EnPassant = m.From - 8
	}

	if m.captured != Empty || piece == WPawn || piece == BPawn {
		b.HalfMoves = 0
	} else {
		b.HalfMoves++
	}

	if us == Black {
		b.FullMoves++
	}

	b.SideToMove = us.Opponent()

	b.history = append(b.history, b.Key())
}

// UnmakeMove reverses a move previously applied with MakeMove.
func (b *Board) UnmakeMove(m *Move) {
	them := b.SideToMove
	us := them.Opponent()
	b.SideToMove = us

	piece := b.Squares[m.To]

	if m.Promotion != Empty {
		if us == White {
			piece = WPawn
		} else {
			piece = BPawn
		}
	}

	b.Squares[m.From] = piece
	b.Squares[m.To] = m.captured

	if (piece == WPawn || piece == BPawn) && m.To == m.oldEP {
		if us == White {
			b.Squares[m.To-8] = BPawn
		} else {
			b.Squares[m.To+8] = WPawn
		}
	}

	if piece == WKing || piece == BKing {
		b.KingSquare[us] = m.From

		switch {
		case m.From == 4 && m.To == 6:
			b.Squares[7] = WRook
			b.Squares[5] = Empty
		case m.From == 4 && m.To == 2:
			b.Squares[0] = WRook
			b.Squares[3] = Empty
		case m.From == 60 && m.To == 62:
			b.Squares[63] = BRook
			b.Squares[61] = Empty
		case m.From == 60 && m.To == 58:
			b.Squares[56] = BRook
			b.Squares[59] = Empty
		}
	}

	b.Castling = m.oldCastle
	b.EnPassant = m.oldEP
	b.HalfMoves = m.oldHalf
	if us == Black {
		b.FullMoves--
	}

	if len(b.history) > 0 {
		b.history = b.history[:len(b.history)-1]
	}
}

// InCheck reports whether the side to move is in check.
func (b *Board) InCheck() bool {
	return b.IsAttacked(b.KingSquare[b.SideToMove], b.SideToMove.Opponent())
}

// IsCheckmate reports whether the side to move is checkmated.
func (b *Board) IsCheckmate() bool {
	if !b.InCheck() {
		return false
	}
	return len(b.LegalMoves()) == 0
}

// IsStalemate reports whether the side to move is stalemated.
func (b *Board) IsStalemate() bool {
	if b.InCheck() {
		return false
	}
	return len(b.LegalMoves()) == 0
}

// CountPieces returns the total number of pieces on the board.
func (b *Board) CountPieces() int {
	n := 0
	for _, p := range b.Squares {
		if p != Empty {
			n++
		}
	}
	return n
}

// CountPiece returns how many pieces of the exact kind are on the board.
func (b *Board) CountPiece(p Piece) int {
	n := 0
	for _, q := range b.Squares {
		if q == p {
			n++
		}
	}
	return n
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
