// Command expctl operates on experience files: defragment, merge, import
// compact-PGN game logs, bootstrap empty files, and inspect positions.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"chessexp/internal/chess"
	"chessexp/internal/exp"
	"chessexp/internal/logx"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: expctl [options] <command> [args]

Commands:
  defrag [file.exp]                 rewrite a file in canonical form
  merge <target.exp> <src.exp>...   n-way union into target
  import <src.cpgn[.zst]>           import compact PGN into --exp
  cpgn-to-exp <src.cpgn> <dst.exp>  import compact PGN into an explicit target
  touch                             create --exp with signature only
  show                              list experience for --fen (--extended adds counts, quality)

Options:`)
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	var (
		expFile        = flag.String("exp", "", "Experience file")
		fen            = flag.String("fen", chess.StartFEN, "Position for the show command")
		extended       = flag.Bool("extended", false, "Extended show output (counts, quality)")
		readonly       = flag.Bool("readonly", false, "Open the experience store readonly")
		evalImportance = flag.Int("eval-importance", 5, "Look-ahead weight for quality scores (0-10)")
		maxPly         = flag.Int("max-ply", 0, "Import: ignore moves past this ply")
		maxValue       = flag.Int("max-value", 0, "Import: ignore scores above this absolute value")
		minDepth       = flag.Int("min-depth", 0, "Import: ignore moves below this depth")
		maxDepth       = flag.Int("max-depth", 0, "Import: ignore moves above this depth")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
	}

	logger := logx.NewLoggerTo(os.Stderr)

	importOpts := exp.ImportOptions{
		MaxPly:   *maxPly,
		MaxValue: int32(*maxValue),
		MinDepth: int32(*minDepth),
		MaxDepth: int32(*maxDepth),
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]

	switch cmd {
	case "defrag":
		path := *expFile
		if len(args) >= 1 {
			path = args[0]
		}
		if path == "" {
			usage()
		}
		if err := exp.Defrag(path, logger); err != nil {
			logger.Fatal().Err(err).Msg("defrag failed")
		}

	case "merge":
		if len(args) < 2 {
			usage()
		}
		if err := exp.MergeFiles(logger, args[0], args[1:]...); err != nil {
			logger.Fatal().Err(err).Msg("merge failed")
		}

	case "import":
		if len(args) != 1 || *expFile == "" {
			usage()
		}
		stats, err := exp.ImportCPGN(args[0], *expFile, importOpts, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("import failed")
		}
		reportImport(stats, logger)

	case "cpgn-to-exp":
		if len(args) != 2 {
			usage()
		}
		stats, err := exp.ImportCPGN(args[0], args[1], importOpts, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("import failed")
		}
		reportImport(stats, logger)

	case "touch":
		if *expFile == "" {
			usage()
		}
		s := exp.NewStore(exp.Config{File: *expFile, Enabled: true, Logger: logger})
		s.Touch()

	case "show":
		if *expFile == "" {
			usage()
		}
		board, err := chess.ParseFEN(*fen)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid FEN")
		}

		s := exp.NewStore(exp.Config{
			File:           *expFile,
			Enabled:        true,
			ReadOnly:       *readonly,
			EvalImportance: *evalImportance,
			Logger:         logger,
		})
		if !s.Load(*expFile, true) {
			logger.Fatal().Str("file", *expFile).Msg("could not load experience file")
		}

		s.ShowExp(exp.NewGamePosition(board), *extended, os.Stdout)

	default:
		usage()
	}
}

func reportImport(stats *exp.ImportStats, logger zerolog.Logger) {
	logger.Info().
		Int64("games", stats.Games).
		Int64("errors", stats.GamesWithErrors).
		Int64("ignored", stats.GamesIgnored).
		Str("wbd", fmt.Sprintf("%d/%d/%d", stats.WBD[0], stats.WBD[1], stats.WBD[2])).
		Int64("moves", stats.Moves()).
		Int64("with_scores", stats.MovesWithScores).
		Msg("import complete")
}
