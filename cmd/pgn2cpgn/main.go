// Command pgn2cpgn converts standard PGN game collections into the
// compact-PGN line format the experience importer consumes:
//
//	{fen, result, move, move, ...}
//
// Moves come out in long algebraic form; scores and depths can be filled
// in afterwards with cpgn-annotate. Games with a setup position, an unknown
// result, or unreplayable moves are skipped.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/freeeve/pgn/v3"
	"github.com/klauspost/compress/zstd"

	"chessexp/internal/chess"
	"chessexp/internal/logx"
)

func main() {
	var (
		inputPath  = flag.String("pgn", "", "Path to PGN file (supports .zst)")
		outputPath = flag.String("out", "", "Output compact PGN file (.cpgn or .cpgn.zst)")
		maxGames   = flag.Int("max-games", 0, "Maximum games to convert (0 = unlimited)")
	)
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: pgn2cpgn --pgn <file.pgn[.zst]> --out <file.cpgn[.zst]>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := logx.NewLoggerTo(os.Stderr)
	logger.Info().Str("pgn", *inputPath).Str("out", *outputPath).Msg("starting conversion")

	outFile, err := os.Create(*outputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("create output")
	}
	defer outFile.Close()

	var out *bufio.Writer
	var zw *zstd.Encoder
	if filepath.Ext(*outputPath) == ".zst" {
		zw, err = zstd.NewWriter(outFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("zstd writer")
		}
		out = bufio.NewWriterSize(zw, 1<<20)
	} else {
		out = bufio.NewWriterSize(outFile, 1<<20)
	}

	var converted, skipped int64
	startTime := time.Now()
	lastLog := time.Now()

	parser := pgn.Games(*inputPath)

gameLoop:
	for game := range parser.Games {
		if *maxGames > 0 && converted >= int64(*maxGames) {
			parser.Stop()
			break gameLoop
		}

		line, ok := convertGame(game)
		if !ok {
			skipped++
			continue
		}

		fmt.Fprintln(out, line)
		converted++

		if time.Since(lastLog) > 10*time.Second {
			gps := float64(converted) / time.Since(startTime).Seconds()
			logger.Info().
				Int64("converted", converted).
				Int64("skipped", skipped).
				Float64("games_per_sec", gps).
				Msg("conversion progress")
			lastLog = time.Now()
		}
	}

	if err := parser.Err(); err != nil {
		logger.Error().Err(err).Msg("parser error")
	}

	if err := out.Flush(); err != nil {
		logger.Fatal().Err(err).Msg("flush output")
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			logger.Fatal().Err(err).Msg("close zstd stream")
		}
	}

	logger.Info().
		Int64("converted", converted).
		Int64("skipped", skipped).
		Dur("elapsed", time.Since(startTime)).
		Msg("conversion complete")
}

// convertGame replays one PGN game and renders it as a compact-PGN line.
func convertGame(game *pgn.Game) (string, bool) {
	// Setup positions are not supported: the compact line would need the
	// custom FEN, and the replay below starts from the standard position.
	if game.Tags["FEN"] != "" || game.Tags["SetUp"] == "1" {
		return "", false
	}

	var result string
	switch game.Tags["Result"] {
	case "1-0":
		result = "w"
	case "0-1":
		result = "b"
	case "1/2-1/2":
		result = "d"
	default:
		return "", false
	}

	pos := pgn.NewStartingPosition()
	board := chess.NewBoard()

	var sb strings.Builder
	sb.WriteByte('{')
	sb.WriteString(chess.StartFEN)
	sb.WriteByte(',')
	sb.WriteString(result)

	for _, mv := range game.Moves {
		if err := pgn.ApplyMove(pos, mv); err != nil {
			return "", false
		}

		// The pgn library exposes no move text, so recover the long
		// algebraic form by matching the resulting position against the
		// legal moves of the shadow board.
		lan, ok := resolveMove(board, pos.ToFEN())
		if !ok {
			return "", false
		}

		sb.WriteByte(',')
		sb.WriteString(lan)
	}

	sb.WriteByte('}')
	return sb.String(), true
}

// resolveMove finds the legal move on board that leads to targetFEN, plays
// it, and returns its long algebraic form. Only piece placement and side to
// move are compared; clock and en-passant conventions differ between
// implementations.
func resolveMove(board *chess.Board, targetFEN string) (string, bool) {
	target := placementAndSide(targetFEN)

	for _, m := range board.LegalMoves() {
		board.MakeMove(&m)
		got := placementAndSide(board.ToFEN())
		if got == target {
			return m.String(), true
		}
		board.UnmakeMove(&m)
	}

	return "", false
}

func placementAndSide(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return fen
	}
	return fields[0] + " " + fields[1]
}
