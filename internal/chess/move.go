package chess

import (
	"fmt"
	"strings"
)

// Encoded move layout (uint32):
//   bits 0-5:   from square (0-63)
//   bits 6-11:  to square (0-63)
//   bits 12-14: promotion piece (0=none, 1=Q, 2=R, 3=B, 4=N)
//   bits 15-31: reserved
const (
	moveFromMask   = 0x3F
	moveToMask     = 0xFC0
	movePromoMask  = 0x7000
	moveToShift    = 6
	movePromoShift = 12
)

// Promotion codes inside an encoded move.
const (
	PromoNone   = 0
	PromoQueen  = 1
	PromoRook   = 2
	PromoBishop = 3
	PromoKnight = 4
)

var promoCodes = map[int]uint32{
	WQueen.Type():  PromoQueen,
	WRook.Type():   PromoRook,
	WBishop.Type(): PromoBishop,
	WKnight.Type(): PromoKnight,
}

// Encoded packs the move into the opaque uint32 form stored in experience
// entries. Only from, to and promotion survive; undo state does not.
func (m Move) Encoded() uint32 {
	v := uint32(m.From) | uint32(m.To)<<moveToShift
	if m.Promotion != Empty {
		v |= promoCodes[m.Promotion.Type()] << movePromoShift
	}
	return v
}

// EncodedMoveString renders an encoded move in long algebraic form.
func EncodedMoveString(enc uint32) string {
	from := Square(enc & moveFromMask)
	to := Square((enc & moveToMask) >> moveToShift)
	s := from.String() + to.String()
	switch (enc & movePromoMask) >> movePromoShift {
	case PromoQueen:
		s += "q"
	case PromoRook:
		s += "r"
	case PromoBishop:
		s += "b"
	case PromoKnight:
		s += "n"
	}
	return s
}

// ParseMove resolves long algebraic notation ("e2e4", "e7e8q") against the
// legal moves of the current position. This is the legality oracle the
// experience importer relies on: illegal or malformed input fails.
func (b *Board) ParseMove(s string) (Move, bool) {
	if len(s) < 4 {
		return Move{}, false
	}

	fromFile := int(s[0] - 'a')
	fromRank := int(s[1] - '1')
	toFile := int(s[2] - 'a')
	toRank := int(s[3] - '1')

	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 ||
		toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return Move{}, false
	}

	from := SquareAt(fromRank, fromFile)
	to := SquareAt(toRank, toFile)

	promo := Empty
	if len(s) >= 5 {
		white := b.SideToMove == White
		switch s[4] {
		case 'q':
			promo = pick(white, WQueen, BQueen)
		case 'r':
			promo = pick(white, WRook, BRook)
		case 'b':
			promo = pick(white, WBishop, BBishop)
		case 'n':
			promo = pick(white, WKnight, BKnight)
		default:
			return Move{}, false
		}
	}

	for _, m := range b.LegalMoves() {
		if m.From == from && m.To == to && m.Promotion == promo {
			return m, true
		}
	}

	return Move{}, false
}

// FindEncoded returns the legal move whose encoded form matches enc.
func (b *Board) FindEncoded(enc uint32) (Move, bool) {
	for _, m := range b.LegalMoves() {
		if m.Encoded() == enc {
			return m, true
		}
	}
	return Move{}, false
}

func pick(cond bool, a, b Piece) Piece {
	if cond {
		return a
	}
	return b
}

// CleanMoveToken strips check/mate markers and line endings from a move
// token as found in game logs.
func CleanMoveToken(tok string) string {
	return strings.TrimRight(tok, "+#\r\n")
}

// MustParseFEN parses a FEN string and panics on error. Test helper.
func MustParseFEN(fen string) *Board {
	b, err := ParseFEN(fen)
	if err != nil {
		panic(fmt.Sprintf("bad fen %q: %v", fen, err))
	}
	return b
}
