package exp

import "chessexp/internal/chess"

// Position is the board surface the store needs from the engine: a stable
// 64-bit key, do/undo of encoded moves, and draw detection. The experience
// core never inspects squares or pieces.
type Position interface {
	Key() uint64
	SideToMove() int
	DoMove(move uint32) bool
	UndoMove()
	IsDraw() bool
}

// GamePosition adapts a chess.Board to the Position interface, tracking the
// moves it applied so look-ahead walks can unwind LIFO.
type GamePosition struct {
	board *chess.Board
	stack []chess.Move
}

// NewGamePosition wraps a board. The board is mutated in place by DoMove
// and restored by matching UndoMove calls.
func NewGamePosition(b *chess.Board) *GamePosition {
	return &GamePosition{board: b}
}

// Board returns the underlying board.
func (p *GamePosition) Board() *chess.Board {
	return p.board
}

// Key returns the Zobrist key of the current position.
func (p *GamePosition) Key() uint64 {
	return p.board.Key()
}

// SideToMove returns 0 for white, 1 for black.
func (p *GamePosition) SideToMove() int {
	return int(p.board.SideToMove)
}

// DoMove applies an encoded move if it is legal in the current position.
func (p *GamePosition) DoMove(move uint32) bool {
	m, ok := p.board.FindEncoded(move)
	if !ok {
		return false
	}
	p.board.MakeMove(&m)
	p.stack = append(p.stack, m)
	return true
}

// UndoMove reverses the most recent DoMove.
func (p *GamePosition) UndoMove() {
	if len(p.stack) == 0 {
		return
	}
	m := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.board.UnmakeMove(&m)
}

// IsDraw reports whether the current position is drawn by repetition or
// the 50-move rule.
func (p *GamePosition) IsDraw() bool {
	return p.board.IsDraw()
}
