package exp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"chessexp/internal/chess"
)

// Compact PGN: one game per line, wrapped in braces, comma separated:
//
//	{fen, result, move[:score:depth], move[:score:depth], ...}
//
// result is w, b or d; moves are long algebraic; score and depth are
// optional integers (engine evaluation from the side to move, search depth
// in plies).

// Result-guessing thresholds. Declared PGN results are not trusted: the
// importer derives a believed result from the move scores and only accepts
// games where both agree.
const (
	goodScore    = 3 * PawnValue
	okScore      = goodScore / 2
	maxDrawScore = 50

	minWeightForDraw = 8
	minWeightForWin  = 16
	minPliesPerGame  = 16
)

// Result indices into weight and WBD arrays.
const (
	resultWhite = 0
	resultBlack = 1
	resultDraw  = 2
	resultNone  = -1
)

// ImportOptions filter which moves of a compact game become entries.
type ImportOptions struct {
	MaxPly   int   // stage no moves past this ply (default 1000)
	MaxValue int32 // stage no moves with |score| above this (default ValueMate)
	MinDepth int32 // raised to MinDepth if lower
	MaxDepth int32 // default MaxPlyDist
}

func (o ImportOptions) withDefaults() ImportOptions {
	if o.MaxPly == 0 {
		o.MaxPly = 1000
	}
	if o.MaxValue == 0 {
		o.MaxValue = ValueMate
	}
	if o.MinDepth < MinDepth {
		o.MinDepth = MinDepth
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = MaxPlyDist
	}
	return o
}

// ImportStats summarizes a compact-PGN import run.
type ImportStats struct {
	Games           int64
	GamesWithErrors int64
	GamesIgnored    int64

	MovesWithScores        int64
	MovesWithScoresIgnored int64
	MovesWithoutScores     int64

	WBD [3]int64 // accepted games by white win / black win / draw

	OutputBytes int64
}

// Moves returns the total number of move tokens seen.
func (st *ImportStats) Moves() int64 {
	return st.MovesWithScores + st.MovesWithScoresIgnored + st.MovesWithoutScores
}

// countingReader tracks how many bytes were consumed from the underlying
// stream, for progress reporting through compression.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type cpgnImporter struct {
	opts ImportOptions
	log  zerolog.Logger

	stats ImportStats

	out     *os.File
	buffer  []byte
	tempBuf []byte

	inputSize int64
	consumed  *countingReader
}

// ImportCPGN converts a compact-PGN game log into experience entries
// appended to dst, then defragments dst. Input files ending in .zst are
// decompressed on the fly. Progress is reported on every buffer flush.
func ImportCPGN(src, dst string, opts ImportOptions, log zerolog.Logger) (*ImportStats, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}

	imp := &cpgnImporter{
		opts:      opts.withDefaults(),
		log:       log,
		inputSize: info.Size(),
		consumed:  &countingReader{r: in},
	}

	var lines io.Reader = imp.consumed
	if filepath.Ext(src) == ".zst" {
		dec, err := zstd.NewReader(imp.consumed)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		lines = dec
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dst, err)
	}
	imp.out = out

	outInfo, err := out.Stat()
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("stat %s: %w", dst, err)
	}
	if outInfo.Size() == 0 {
		if _, err := out.WriteString(SignatureV2); err != nil {
			out.Close()
			return nil, fmt.Errorf("write signature: %w", err)
		}
	}

	log.Info().
		Str("cpgn", src).
		Str("exp", dst).
		Int("max_ply", imp.opts.MaxPly).
		Int32("max_value", imp.opts.MaxValue).
		Int32("min_depth", imp.opts.MinDepth).
		Int32("max_depth", imp.opts.MaxDepth).
		Msg("building experience from compact PGN")

	scanner := bufio.NewScanner(lines)
	scanner.Buffer(make([]byte, 1<<20), 64<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] != '{' || line[len(line)-1] != '}' {
			continue
		}

		if imp.importGame(line[1 : len(line)-1]) {
			if err := imp.flush(false); err != nil {
				out.Close()
				return &imp.stats, err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		out.Close()
		return &imp.stats, fmt.Errorf("read %s: %w", src, err)
	}

	if err := imp.flush(true); err != nil {
		out.Close()
		return &imp.stats, err
	}
	if err := out.Close(); err != nil {
		return &imp.stats, fmt.Errorf("close %s: %w", dst, err)
	}

	// Rewrite the target canonically so repeated observations collapse.
	if imp.stats.MovesWithScores > 0 {
		log.Info().Str("file", dst).Msg("conversion complete, defragmenting")
		if err := Defrag(dst, log); err != nil {
			return &imp.stats, err
		}
	}

	return &imp.stats, nil
}

// importGame parses and validates one compact game. It returns true when
// the game's staged entries were accepted into the output buffer.
func (imp *cpgnImporter) importGame(game string) bool {
	imp.stats.Games++

	tokens := strings.Split(game, ",")
	if len(tokens) < 3 {
		imp.stats.GamesWithErrors++
		return false
	}

	board, err := chess.ParseFEN(tokens[0])
	if err != nil {
		imp.stats.GamesWithErrors++
		return false
	}

	var declared int
	switch strings.TrimSpace(tokens[1]) {
	case "w":
		declared = resultWhite
	case "b":
		declared = resultBlack
	case "d":
		declared = resultDraw
	default:
		imp.stats.GamesWithErrors++
		return false
	}

	detected := resultNone
	drawDetected := false
	var weights [3]int

	imp.tempBuf = imp.tempBuf[:0]
	gamePly := 0

	for _, moveTok := range tokens[2:] {
		gamePly++

		parts := strings.Split(moveTok, ":")
		if len(parts) >= 4 {
			imp.stats.GamesWithErrors++
			return false
		}

		moveStr := chess.CleanMoveToken(parts[0])
		if moveStr == "" {
			imp.stats.GamesWithErrors++
			return false
		}

		m, ok := board.ParseMove(moveStr)
		if !ok {
			imp.stats.GamesWithErrors++
			return false
		}

		hasScore := len(parts) >= 2 && parts[1] != ""
		hasDepth := len(parts) >= 3 && parts[2] != ""

		if hasScore && hasDepth {
			score64, err1 := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
			depth64, err2 := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 32)
			if err1 != nil || err2 != nil {
				imp.stats.GamesWithErrors++
				return false
			}
			score := int32(score64)
			depth := int32(depth64)
			absScore := score
			if absScore < 0 {
				absScore = -absScore
			}

			if depth >= imp.opts.MinDepth && depth <= imp.opts.MaxDepth &&
				absScore <= imp.opts.MaxValue && gamePly <= imp.opts.MaxPly {
				imp.stats.MovesWithScores++

				e := Entry{
					Key:   board.Key(),
					Move:  m.Encoded(),
					Value: score,
					Depth: depth,
					Count: 1,
				}
				var buf [EntrySize]byte
				e.encode(buf[:])
				imp.tempBuf = append(imp.tempBuf, buf[:]...)
			} else {
				imp.stats.MovesWithScoresIgnored++
			}

			// Guess the game result; PGN scores are not trusted blindly.
			stm := int(board.SideToMove)
			if absScore >= ValueTBWinInMaxPly {
				winnerByMove := stm
				if score < 0 {
					winnerByMove = 1 - stm
				}
				if detected == resultNone {
					detected = winnerByMove
					if detected != declared {
						imp.stats.GamesIgnored++
						return false
					}
				} else if detected != winnerByMove {
					imp.stats.GamesIgnored++
					return false
				}
			} else if board.IsDraw() {
				drawDetected = true
			}

			posSide := stm
			if score < 0 {
				posSide = 1 - stm
			}
			negSide := 1 - posSide

			switch {
			case absScore >= goodScore:
				weights[resultDraw] = 0
				if score < 0 {
					weights[posSide] += 4
				} else {
					weights[posSide] += 2
				}
				weights[negSide] = 0
			case absScore >= okScore:
				weights[resultDraw] /= 2
				if score < 0 {
					weights[posSide] += 2
				} else {
					weights[posSide]++
				}
				weights[negSide] /= 2
			case absScore <= maxDrawScore:
				weights[resultDraw] += 2
				weights[resultWhite] = 0
				weights[resultBlack] = 0
			default:
				weights[resultDraw]++
				weights[resultWhite] /= 2
				weights[resultBlack] /= 2
			}
		} else {
			imp.stats.MovesWithoutScores++
		}

		board.MakeMove(&m)

		if !drawDetected && board.InsufficientMaterial() {
			drawDetected = true
		}

		// A detected draw contradicting a detected win rejects the game.
		if drawDetected && detected != resultNone {
			imp.stats.GamesIgnored++
			return false
		}
	}

	if gamePly < minPliesPerGame {
		imp.stats.GamesIgnored++
		return false
	}

	if detected == resultNone {
		if weights[resultWhite] >= minWeightForWin {
			detected = resultWhite
		} else if weights[resultBlack] >= minWeightForWin {
			detected = resultBlack
		}
	}

	effective := detected
	if effective == resultNone {
		effective = resultDraw
	}

	if effective != declared ||
		(declared != resultDraw && weights[declared] < minWeightForWin) ||
		(declared == resultDraw && !drawDetected && weights[resultDraw] < minWeightForDraw) {
		imp.stats.GamesIgnored++
		return false
	}

	imp.stats.WBD[declared]++
	imp.buffer = append(imp.buffer, imp.tempBuf...)
	return true
}

// flush writes the accumulated entry buffer once it crosses the write
// buffer size (or unconditionally when forced) and reports progress.
func (imp *cpgnImporter) flush(force bool) error {
	if !force && len(imp.buffer) < WriteBufferSize {
		return nil
	}

	if len(imp.buffer) > 0 {
		if _, err := imp.out.Write(imp.buffer); err != nil {
			return fmt.Errorf("write experience data: %w", err)
		}
		imp.stats.OutputBytes += int64(len(imp.buffer))
		imp.buffer = imp.buffer[:0]
	}

	percent := 100.0
	if imp.inputSize > 0 {
		percent = 100.0 * float64(imp.consumed.n) / float64(imp.inputSize)
	}

	imp.log.Info().
		Str("progress", fmt.Sprintf("%6.2f%%", percent)).
		Int64("games", imp.stats.Games).
		Int64("errors", imp.stats.GamesWithErrors).
		Int64("ignored", imp.stats.GamesIgnored).
		Str("wbd", fmt.Sprintf("%d/%d/%d", imp.stats.WBD[resultWhite], imp.stats.WBD[resultBlack], imp.stats.WBD[resultDraw])).
		Int64("moves", imp.stats.Moves()).
		Int64("with_scores", imp.stats.MovesWithScores).
		Int64("without_scores", imp.stats.MovesWithoutScores).
		Int64("ignored_scores", imp.stats.MovesWithScoresIgnored).
		Str("exp_size", formatBytes(imp.stats.OutputBytes)).
		Msg("import progress")

	return nil
}

// formatBytes renders a byte count in human units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
