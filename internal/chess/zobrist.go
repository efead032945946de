package chess

import "math/rand"

// Zobrist tables for position keys. The seed is fixed so the same position
// always produces the same key across runs; experience files depend on this.
// The schedule keeps the reserved hash-map sentinels (0 and ^0) out of the
// reachable key space.
var (
	zobristPieces     [13][64]uint64
	zobristCastling   [16]uint64
	zobristEnPassant  [8]uint64
	zobristSideToMove uint64
)

func init() {
	rng := rand.New(rand.NewSource(0x1234567890ABCDEF))

	for piece := 0; piece < 13; piece++ {
		for sq := 0; sq < 64; sq++ {
			zobristPieces[piece][sq] = rng.Uint64()
		}
	}
	for i := 0; i < 16; i++ {
		zobristCastling[i] = rng.Uint64()
	}
	for file := 0; file < 8; file++ {
		zobristEnPassant[file] = rng.Uint64()
	}
	zobristSideToMove = rng.Uint64()
}

// Key computes the 64-bit Zobrist key of the current position.
func (b *Board) Key() uint64 {
	var h uint64

	for sq := Square(0); sq < 64; sq++ {
		piece := b.Squares[sq]
		if piece != Empty {
			h ^= zobristPieces[piece][sq]
		}
	}

	h ^= zobristCastling[b.Castling]

	// The en passant file only counts when a pawn of the side to move can
	// actually capture there, so transpositions hash identically.
	if ep := b.EnPassant; ep != NoSquare {
		pawn, behind := WPawn, ep-8
		if b.SideToMove == Black {
			pawn, behind = BPawn, ep+8
		}
		for _, fd := range []int{-1, 1} {
			f := ep.File() + fd
			if f >= 0 && f <= 7 && b.Squares[SquareAt(behind.Rank(), f)] == pawn {
				h ^= zobristEnPassant[ep.File()]
				break
			}
		}
	}

	if b.SideToMove == Black {
		h ^= zobristSideToMove
	}

	return h
}
