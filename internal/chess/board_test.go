package chess_test

import (
	"testing"

	"chessexp/internal/chess"
)

func TestStartingPositionHasTwentyMoves(t *testing.T) {
	b := chess.NewBoard()
	moves := b.LegalMoves()
	if len(moves) != 20 {
		t.Errorf("got %d legal moves, want 20", len(moves))
	}
}

func TestMakeUnmakeRestoresPosition(t *testing.T) {
	b := chess.NewBoard()
	fen := b.ToFEN()
	key := b.Key()

	for _, m := range b.LegalMoves() {
		b.MakeMove(&m)
		b.UnmakeMove(&m)

		if got := b.ToFEN(); got != fen {
			t.Fatalf("unmake %s left board at %s", m, got)
		}
		if got := b.Key(); got != key {
			t.Fatalf("unmake %s changed key", m)
		}
	}
}

func TestMakeUnmakeDeepLine(t *testing.T) {
	b := chess.NewBoard()
	line := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5a4", "g8f6", "e1g1"}

	var made []chess.Move
	fens := []string{b.ToFEN()}

	for _, lan := range line {
		m, ok := b.ParseMove(lan)
		if !ok {
			t.Fatalf("move %s not legal at %s", lan, b.ToFEN())
		}
		b.MakeMove(&m)
		made = append(made, m)
		fens = append(fens, b.ToFEN())
	}

	for i := len(made) - 1; i >= 0; i-- {
		b.UnmakeMove(&made[i])
		if got := b.ToFEN(); got != fens[i] {
			t.Fatalf("unwind at %d: got %s want %s", i, got, fens[i])
		}
	}
}

func TestParseMoveRejectsIllegal(t *testing.T) {
	b := chess.NewBoard()
	for _, lan := range []string{"e2e5", "e7e5", "d1d4", "xxxx", "e2"} {
		if _, ok := b.ParseMove(lan); ok {
			t.Errorf("move %q should be illegal at start", lan)
		}
	}
}

func TestParseMovePromotion(t *testing.T) {
	b := chess.MustParseFEN("4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	m, ok := b.ParseMove("a7a8q")
	if !ok {
		t.Fatal("promotion should be legal")
	}
	if m.Promotion != chess.WQueen {
		t.Errorf("got promotion %v, want queen", m.Promotion)
	}
	b.MakeMove(&m)
	if b.PieceAt(chess.SquareAt(7, 0)) != chess.WQueen {
		t.Error("promoted piece missing after make")
	}
}

func TestCastlingMove(t *testing.T) {
	b := chess.MustParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	m, ok := b.ParseMove("e1g1")
	if !ok {
		t.Fatal("white kingside castle should be legal")
	}
	b.MakeMove(&m)
	if b.PieceAt(6) != chess.WKing || b.PieceAt(5) != chess.WRook {
		t.Errorf("castle did not move king and rook: %s", b.ToFEN())
	}
	b.UnmakeMove(&m)
	if got := b.ToFEN(); got != "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1" {
		t.Errorf("castle unmake left %s", got)
	}
}

func TestEnPassantCapture(t *testing.T) {
	b := chess.MustParseFEN("4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 2")
	m, ok := b.ParseMove("e5d6")
	if !ok {
		t.Fatal("en passant capture should be legal")
	}
	b.MakeMove(&m)
	if b.PieceAt(chess.SquareAt(4, 3)) != chess.Empty {
		t.Error("captured pawn still on d5")
	}
	b.UnmakeMove(&m)
	if b.PieceAt(chess.SquareAt(4, 3)) != chess.BPawn {
		t.Error("captured pawn not restored")
	}
}

func TestCheckmateDetection(t *testing.T) {
	// Fool's mate.
	b := chess.NewBoard()
	for _, lan := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		m, ok := b.ParseMove(lan)
		if !ok {
			t.Fatalf("move %s not legal", lan)
		}
		b.MakeMove(&m)
	}
	if !b.InCheck() {
		t.Error("white should be in check")
	}
	if !b.IsCheckmate() {
		t.Error("white should be checkmated")
	}
}

func TestMoveEncodingRoundTrip(t *testing.T) {
	b := chess.NewBoard()
	for _, m := range b.LegalMoves() {
		enc := m.Encoded()
		got, ok := b.FindEncoded(enc)
		if !ok {
			t.Fatalf("encoded move %s not found", m)
		}
		if got.From != m.From || got.To != m.To || got.Promotion != m.Promotion {
			t.Errorf("round-trip mismatch: %s vs %s", m, got)
		}
		if chess.EncodedMoveString(enc) != m.String() {
			t.Errorf("string mismatch: %s vs %s", chess.EncodedMoveString(enc), m)
		}
	}
}

func TestCleanMoveToken(t *testing.T) {
	cases := map[string]string{
		"e2e4":    "e2e4",
		"d8h4+":   "d8h4",
		"f7f8q#":  "f7f8q",
		"e2e4\r":  "e2e4",
		"e2e4+\n": "e2e4",
	}
	for in, want := range cases {
		if got := chess.CleanMoveToken(in); got != want {
			t.Errorf("CleanMoveToken(%q) = %q, want %q", in, got, want)
		}
	}
}
