package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var fenPieces = map[byte]Piece{
	'K': WKing, 'Q': WQueen, 'R': WRook, 'B': WBishop, 'N': WKnight, 'P': WPawn,
	'k': BKing, 'q': BQueen, 'r': BRook, 'b': BBishop, 'n': BKnight, 'p': BPawn,
}

var pieceFEN = map[Piece]byte{
	WKing: 'K', WQueen: 'Q', WRook: 'R', WBishop: 'B', WKnight: 'N', WPawn: 'P',
	BKing: 'k', BQueen: 'q', BRook: 'r', BBishop: 'b', BKnight: 'n', BPawn: 'p',
}

// ParseFEN builds a board from a FEN string. The half-move clock and full
// move number fields are optional and default to 0 and 1.
func ParseFEN(fen string) (*Board, error) {
	fields := strings.Fields(strings.TrimSpace(fen))
	if len(fields) < 4 {
		return nil, fmt.Errorf("fen: expected at least 4 fields, got %d", len(fields))
	}

	b := &Board{
		EnPassant:  NoSquare,
		FullMoves:  1,
		KingSquare: [2]Square{NoSquare, NoSquare},
	}

	// Piece placement, rank 8 down to rank 1
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("fen: expected 8 ranks, got %d", len(ranks))
	}
	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(rankStr); j++ {
			ch := rankStr[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			p, ok := fenPieces[ch]
			if !ok {
				return nil, fmt.Errorf("fen: invalid piece %q", ch)
			}
			if file > 7 {
				return nil, fmt.Errorf("fen: rank %d overflows", rank+1)
			}
			sq := SquareAt(rank, file)
			b.Squares[sq] = p
			if p == WKing {
				b.KingSquare[White] = sq
			} else if p == BKing {
				b.KingSquare[Black] = sq
			}
			file++
		}
		if file != 8 {
			return nil, fmt.Errorf("fen: rank %d has %d files", rank+1, file)
		}
	}
	if b.KingSquare[White] == NoSquare || b.KingSquare[Black] == NoSquare {
		return nil, fmt.Errorf("fen: missing king")
	}

	// Side to move
	switch fields[1] {
	case "w":
		b.SideToMove = White
	case "b":
		b.SideToMove = Black
	default:
		return nil, fmt.Errorf("fen: invalid side to move %q", fields[1])
	}

	// Castling rights
	if fields[2] != "-" {
		for j := 0; j < len(fields[2]); j++ {
			switch fields[2][j] {
			case 'K':
				b.Castling |= CastleWK
			case 'Q':
				b.Castling |= CastleWQ
			case 'k':
				b.Castling |= CastleBK
			case 'q':
				b.Castling |= CastleBQ
			default:
				return nil, fmt.Errorf("fen: invalid castling %q", fields[2])
			}
		}
	}

	// En passant target
	if fields[3] != "-" {
		if len(fields[3]) != 2 {
			return nil, fmt.Errorf("fen: invalid en passant %q", fields[3])
		}
		file := int(fields[3][0] - 'a')
		rank := int(fields[3][1] - '1')
		if file < 0 || file > 7 || rank < 0 || rank > 7 {
			return nil, fmt.Errorf("fen: invalid en passant %q", fields[3])
		}
		b.EnPassant = SquareAt(rank, file)
	}

	// Optional clocks
	if len(fields) >= 5 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("fen: invalid half-move clock %q", fields[4])
		}
		b.HalfMoves = n
	}
	if len(fields) >= 6 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("fen: invalid move number %q", fields[5])
		}
		b.FullMoves = n
	}

	return b, nil
}

// ToFEN renders the position as a FEN string.
func (b *Board) ToFEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := b.Squares[SquareAt(rank, file)]
			if p == Empty {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(pieceFEN[p])
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	if b.SideToMove == White {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}

	castling := ""
	if b.Castling&CastleWK != 0 {
		castling += "K"
	}
	if b.Castling&CastleWQ != 0 {
		castling += "Q"
	}
	if b.Castling&CastleBK != 0 {
		castling += "k"
	}
	if b.Castling&CastleBQ != 0 {
		castling += "q"
	}
	if castling == "" {
		castling = "-"
	}
	sb.WriteString(castling)

	sb.WriteByte(' ')
	if b.EnPassant == NoSquare {
		sb.WriteByte('-')
	} else {
		sb.WriteString(b.EnPassant.String())
	}

	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.HalfMoves))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.FullMoves))

	return sb.String()
}
