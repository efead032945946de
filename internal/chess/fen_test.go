package chess_test

import (
	"testing"

	"chessexp/internal/chess"
)

func TestStartPositionRoundTrip(t *testing.T) {
	b, err := chess.ParseFEN(chess.StartFEN)
	if err != nil {
		t.Fatalf("parse start FEN: %v", err)
	}
	if got := b.ToFEN(); got != chess.StartFEN {
		t.Errorf("round-trip mismatch:\n got %s\nwant %s", got, chess.StartFEN)
	}
}

func TestParseFENRoundTrip(t *testing.T) {
	fens := []string{
		"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
		"8/8/8/4k3/8/8/4P3/4K3 w - - 0 1",
		"rnbq1rk1/ppp1bppp/4pn2/3p4/2PP4/5NP1/PP2PPBP/RNBQ1RK1 w - - 4 6",
		"4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 2",
		"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 10 20",
	}
	for _, fen := range fens {
		b, err := chess.ParseFEN(fen)
		if err != nil {
			t.Fatalf("parse %q: %v", fen, err)
		}
		if got := b.ToFEN(); got != fen {
			t.Errorf("round-trip mismatch:\n got %s\nwant %s", got, fen)
		}
	}
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",         // missing fields
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",     // 7 ranks
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", // rank overflow
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1", // bad side
		"8/8/8/8/8/8/8/8 w - - 0 1",                           // no kings
	}
	for _, fen := range bad {
		if _, err := chess.ParseFEN(fen); err == nil {
			t.Errorf("expected error for %q", fen)
		}
	}
}

func TestParseFENDefaultsClocks(t *testing.T) {
	b, err := chess.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - -")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.HalfMoves != 0 || b.FullMoves != 1 {
		t.Errorf("got clocks %d/%d, want 0/1", b.HalfMoves, b.FullMoves)
	}
}
