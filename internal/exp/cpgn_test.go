package exp_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"chessexp/internal/chess"
	"chessexp/internal/exp"
)

// ruyLine is a 20-ply closed Ruy Lopez; every move is legal from the
// standard starting position.
var ruyLine = []string{
	"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5a4", "g8f6",
	"e1g1", "f8e7", "f1e1", "b7b5", "a4b3", "d7d6", "c2c3", "e8g8",
	"h2h3", "c6a5", "b3c2", "c7c5",
}

// gameLine renders a compact-PGN line. scoreFor maps the ply index to the
// score from the side to move's perspective; a nil scoreFor omits scores.
func gameLine(result string, moves []string, scoreFor func(ply int) int, depth int) string {
	tokens := []string{chess.StartFEN, result}
	for i, m := range moves {
		if scoreFor == nil {
			tokens = append(tokens, m)
		} else {
			tokens = append(tokens, fmt.Sprintf("%s:%d:%d", m, scoreFor(i), depth))
		}
	}
	return "{" + strings.Join(tokens, ",") + "}"
}

// whiteWinning scores +700 for white to move and -700 for black to move.
func whiteWinning(ply int) int {
	if ply%2 == 0 {
		return 700
	}
	return -700
}

func drawish(ply int) int { return 0 }

func runImport(t *testing.T, lines []string, opts exp.ImportOptions) (*exp.ImportStats, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "games.cpgn")
	dst := filepath.Join(dir, "out.exp")

	if err := os.WriteFile(src, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stats, err := exp.ImportCPGN(src, dst, opts, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return stats, dst
}

func TestImportAcceptsDecisiveGame(t *testing.T) {
	stats, dst := runImport(t, []string{gameLine("w", ruyLine, whiteWinning, 10)}, exp.ImportOptions{})

	if stats.Games != 1 || stats.GamesWithErrors != 0 || stats.GamesIgnored != 0 {
		t.Fatalf("stats = %+v", *stats)
	}
	if stats.WBD[0] != 1 {
		t.Errorf("white wins = %d, want 1", stats.WBD[0])
	}
	if stats.MovesWithScores != 20 {
		t.Errorf("moves with scores = %d, want 20", stats.MovesWithScores)
	}

	s := loadFresh(t, dst)
	b := chess.NewBoard()
	chain := s.Probe(b.Key())
	if len(chain) != 1 {
		t.Fatalf("start position chain length = %d, want 1", len(chain))
	}
	e := chain[0]
	m, _ := b.ParseMove("e2e4")
	if e.Move != m.Encoded() || e.Value != 700 || e.Depth != 10 || e.Count != 1 {
		t.Errorf("start entry = %+v", *e)
	}

	if got := fileEntries(t, dst); len(got) != 20 {
		t.Errorf("output holds %d entries, want 20", len(got))
	}
}

func TestImportAcceptsDrawGame(t *testing.T) {
	stats, dst := runImport(t, []string{gameLine("d", ruyLine, drawish, 10)}, exp.ImportOptions{})

	if stats.GamesIgnored != 0 || stats.GamesWithErrors != 0 {
		t.Fatalf("stats = %+v", *stats)
	}
	if stats.WBD[2] != 1 {
		t.Errorf("draws = %d, want 1", stats.WBD[2])
	}
	if got := fileEntries(t, dst); len(got) != 20 {
		t.Errorf("output holds %d entries, want 20", len(got))
	}
}

func TestImportRejectsResultMismatch(t *testing.T) {
	// Scores say white is winning; the header claims black won.
	stats, _ := runImport(t, []string{gameLine("b", ruyLine, whiteWinning, 10)}, exp.ImportOptions{})

	if stats.GamesIgnored != 1 {
		t.Errorf("ignored = %d, want 1", stats.GamesIgnored)
	}
	if stats.WBD[1] != 0 {
		t.Error("a rejected game must not enter the WBD tally")
	}
}

func TestImportRejectsShortGame(t *testing.T) {
	stats, _ := runImport(t, []string{gameLine("w", ruyLine[:10], whiteWinning, 10)}, exp.ImportOptions{})
	if stats.GamesIgnored != 1 {
		t.Errorf("ignored = %d, want 1 for a %d-ply game", stats.GamesIgnored, 10)
	}
}

func TestImportRejectsIllegalMove(t *testing.T) {
	moves := append([]string{}, ruyLine...)
	moves[2] = "e2e5" // no white pawn can do this after 1. e4 e5
	stats, _ := runImport(t, []string{gameLine("w", moves, whiteWinning, 10)}, exp.ImportOptions{})

	if stats.GamesWithErrors != 1 {
		t.Errorf("errors = %d, want 1", stats.GamesWithErrors)
	}
}

func TestImportRejectsMalformedLines(t *testing.T) {
	lines := []string{
		"{only-a-fen}",
		"{" + chess.StartFEN + ",x," + strings.Join(ruyLine, ",") + "}",
		"{" + chess.StartFEN + ",w,e2e4:1:2:3}",
		"not a game line at all",
		"",
	}
	stats, _ := runImport(t, lines, exp.ImportOptions{})

	// The free-text and blank lines are skipped before parsing.
	if stats.Games != 3 {
		t.Errorf("games = %d, want 3", stats.Games)
	}
	if stats.GamesWithErrors != 3 {
		t.Errorf("errors = %d, want 3", stats.GamesWithErrors)
	}
}

func TestImportDepthFilter(t *testing.T) {
	stats, dst := runImport(t,
		[]string{gameLine("w", ruyLine, whiteWinning, 10)},
		exp.ImportOptions{MinDepth: 12})

	// Depth 10 observations fail the raised floor but still drive the
	// result guessing, so the game itself is accepted.
	if stats.GamesIgnored != 0 || stats.GamesWithErrors != 0 {
		t.Fatalf("stats = %+v", *stats)
	}
	if stats.MovesWithScoresIgnored != 20 || stats.MovesWithScores != 0 {
		t.Errorf("scored/ignored = %d/%d, want 0/20",
			stats.MovesWithScores, stats.MovesWithScoresIgnored)
	}
	if _, err := os.Stat(dst); err == nil {
		if got := fileEntries(t, dst); len(got) != 0 {
			t.Errorf("output holds %d entries, want 0", len(got))
		}
	}
}

func TestImportMaxPlyTruncatesStaging(t *testing.T) {
	stats, dst := runImport(t,
		[]string{gameLine("w", ruyLine, whiteWinning, 10)},
		exp.ImportOptions{MaxPly: 16})

	if stats.GamesIgnored != 0 {
		t.Fatalf("stats = %+v", *stats)
	}
	if stats.MovesWithScores != 16 {
		t.Errorf("moves with scores = %d, want 16", stats.MovesWithScores)
	}
	if got := fileEntries(t, dst); len(got) != 16 {
		t.Errorf("output holds %d entries, want 16", len(got))
	}
}

func TestImportMergesRepeatedGames(t *testing.T) {
	line := gameLine("w", ruyLine, whiteWinning, 10)
	_, dst := runImport(t, []string{line, line}, exp.ImportOptions{})

	got := fileEntries(t, dst)
	if len(got) != 20 {
		t.Fatalf("output holds %d entries, want 20 after defrag", len(got))
	}
	for _, e := range got {
		if e.Count != 2 {
			t.Errorf("entry %+v should have count 2", e)
			break
		}
	}
}

func TestImportZstdInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "games.cpgn.zst")
	dst := filepath.Join(dir, "out.exp")

	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte(gameLine("w", ruyLine, whiteWinning, 10) + "\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	stats, err := exp.ImportCPGN(src, dst, exp.ImportOptions{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if stats.MovesWithScores != 20 {
		t.Errorf("moves with scores = %d, want 20", stats.MovesWithScores)
	}
	if got := fileEntries(t, dst); len(got) != 20 {
		t.Errorf("output holds %d entries, want 20", len(got))
	}
}

func TestImportMovesWithoutScores(t *testing.T) {
	stats, _ := runImport(t, []string{gameLine("w", ruyLine, nil, 0)}, exp.ImportOptions{})

	if stats.MovesWithoutScores != 20 {
		t.Errorf("moves without scores = %d, want 20", stats.MovesWithoutScores)
	}
	// No scores means no weight evidence: the declared win is rejected.
	if stats.GamesIgnored != 1 {
		t.Errorf("ignored = %d, want 1", stats.GamesIgnored)
	}
}

func TestImportStripsCheckMarkers(t *testing.T) {
	moves := append([]string{}, ruyLine...)
	moves[4] = "f1b5+" // marker is stripped before the legality check
	stats, _ := runImport(t, []string{gameLine("w", moves, whiteWinning, 10)}, exp.ImportOptions{})

	if stats.GamesWithErrors != 0 {
		t.Errorf("errors = %d, want 0 after stripping the marker", stats.GamesWithErrors)
	}
}
