// Command cpgn-annotate fills in missing score:depth fields of compact-PGN
// lines by evaluating each position with a UCI engine. Annotated logs pass
// the experience importer's depth and score filters instead of being
// counted as moves without scores.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/freeeve/uci"

	"chessexp/internal/chess"
	"chessexp/internal/exp"
	"chessexp/internal/logx"
)

func main() {
	var (
		inputPath  = flag.String("cpgn", "", "Compact PGN file to annotate")
		outputPath = flag.String("out", "", "Annotated output file")
		enginePath = flag.String("engine", "stockfish", "UCI engine binary")
		depth      = flag.Int("depth", 12, "Evaluation depth")
		hashMB     = flag.Int("hash", 256, "Engine hash size in MB")
		threads    = flag.Int("threads", 1, "Engine threads")
	)
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: cpgn-annotate --cpgn <in.cpgn> --out <out.cpgn> [--engine <path>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := logx.NewLoggerTo(os.Stderr)

	engine, err := uci.NewEngine(*enginePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("create engine")
	}
	defer engine.Close()

	opts := uci.Options{
		Hash:    *hashMB,
		Threads: *threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := engine.SetOptions(opts); err != nil {
		logger.Fatal().Err(err).Msg("set engine options")
	}

	in, err := os.Open(*inputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open input")
	}
	defer in.Close()

	outFile, err := os.Create(*outputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("create output")
	}
	defer outFile.Close()
	out := bufio.NewWriterSize(outFile, 1<<20)

	var games, annotated, failed int64
	startTime := time.Now()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1<<20), 64<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] != '{' || line[len(line)-1] != '}' {
			continue
		}
		games++

		annotatedLine, n, err := annotateGame(engine, line[1:len(line)-1], *depth)
		if err != nil {
			failed++
			logger.Warn().Err(err).Int64("game", games).Msg("annotation failed, keeping original line")
			fmt.Fprintln(out, line)
			continue
		}

		annotated += n
		fmt.Fprintln(out, "{"+annotatedLine+"}")
	}

	if err := scanner.Err(); err != nil {
		logger.Fatal().Err(err).Msg("read input")
	}
	if err := out.Flush(); err != nil {
		logger.Fatal().Err(err).Msg("flush output")
	}

	logger.Info().
		Int64("games", games).
		Int64("failed", failed).
		Int64("moves_annotated", annotated).
		Dur("elapsed", time.Since(startTime)).
		Msg("annotation complete")
}

// annotateGame replays one compact game and evaluates every move token
// that lacks a score or depth. Returns the rewritten line and the number
// of moves annotated.
func annotateGame(engine *uci.Engine, game string, depth int) (string, int64, error) {
	tokens := strings.Split(game, ",")
	if len(tokens) < 3 {
		return "", 0, fmt.Errorf("expected fen, result and moves")
	}

	board, err := chess.ParseFEN(tokens[0])
	if err != nil {
		return "", 0, fmt.Errorf("bad fen: %w", err)
	}

	outTokens := make([]string, 0, len(tokens))
	outTokens = append(outTokens, tokens[:2]...)
	var annotated int64

	for _, moveTok := range tokens[2:] {
		parts := strings.Split(moveTok, ":")
		moveStr := chess.CleanMoveToken(parts[0])

		m, ok := board.ParseMove(moveStr)
		if !ok {
			return "", 0, fmt.Errorf("illegal move %q", moveStr)
		}

		if len(parts) >= 3 && parts[1] != "" && parts[2] != "" {
			// Already annotated.
			outTokens = append(outTokens, moveTok)
		} else {
			score, err := evaluate(engine, board.ToFEN(), depth)
			if err != nil {
				return "", 0, err
			}
			outTokens = append(outTokens, fmt.Sprintf("%s:%d:%d", moveStr, score, depth))
			annotated++
		}

		board.MakeMove(&m)
	}

	return strings.Join(outTokens, ","), annotated, nil
}

// evaluate scores a position from the side to move's perspective. Mate
// scores are mapped into the engine mate range so the importer's
// result-guessing sees them as proven wins.
func evaluate(engine *uci.Engine, fen string, depth int) (int, error) {
	if err := engine.SetFEN(fen); err != nil {
		return 0, fmt.Errorf("set fen: %w", err)
	}

	results, err := engine.GoDepth(depth, uci.HighestDepthOnly)
	if err != nil {
		return 0, fmt.Errorf("engine eval: %w", err)
	}
	if len(results.Results) == 0 {
		return 0, fmt.Errorf("no results from engine")
	}

	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}

	if best.Mate {
		if best.Score >= 0 {
			return exp.ValueMate - 2*best.Score, nil
		}
		return -exp.ValueMate - 2*best.Score, nil
	}

	return best.Score, nil
}
