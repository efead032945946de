package exp

import (
	"fmt"
	"io"
	"strings"
)

// Dispatch executes one experience command line as surfaced through the
// enclosing UCI layer. pos is the current board for exp/expex. It reports
// whether the command was recognized; failures are logged and never
// terminate the caller.
func (s *Store) Dispatch(line string, pos Position, out io.Writer) bool {
	args := splitArgs(line)
	if len(args) == 0 {
		return false
	}

	cmd, args := args[0], args[1:]

	switch cmd {
	case "exp":
		s.ShowExp(pos, false, out)

	case "expex":
		s.ShowExp(pos, true, out)

	case "defrag":
		s.WaitForLoad()
		path := s.filename
		if len(args) >= 1 {
			path = args[0]
		}
		if len(args) > 1 || path == "" {
			fmt.Fprintln(out, "Syntax: defrag [filename]")
			return true
		}
		if err := Defrag(path, s.log); err != nil {
			s.log.Info().Err(err).Msg("defrag failed")
		}

	case "merge":
		s.WaitForLoad()
		var target string
		var sources []string
		switch {
		case len(args) >= 2:
			target, sources = args[0], args[1:]
		case len(args) == 1 && s.filename != "":
			// Single argument merges into the configured experience file.
			target, sources = s.filename, args
		default:
			fmt.Fprintln(out, "Syntax: merge <target.exp> <file1.exp> [file2.exp] ...")
			return true
		}
		if err := MergeFiles(s.log, target, sources...); err != nil {
			s.log.Info().Err(err).Msg("merge failed")
		}

	case "import_cpgn":
		s.WaitForLoad()
		if len(args) < 1 {
			fmt.Fprintln(out, "Syntax: import_cpgn <source.cpgn>")
			return true
		}
		if s.filename == "" {
			fmt.Fprintln(out, "No experience file set; configure one before importing")
			return true
		}
		s.importInto(args[0], s.filename, args[1:])

	case "cpgn_to_exp":
		s.WaitForLoad()
		if len(args) < 2 {
			fmt.Fprintln(out, "Syntax: cpgn_to_exp <source.cpgn> <dest.exp>")
			return true
		}
		s.importInto(args[0], args[1], args[2:])

	case "import_pgn":
		s.WaitForLoad()
		if len(args) < 1 {
			fmt.Fprintln(out, "Syntax: import_pgn <source.pgn>")
			return true
		}
		fmt.Fprintln(out, "import_pgn is not supported; convert with pgn2cpgn first, then use import_cpgn")

	case "pgn_to_exp":
		s.WaitForLoad()
		if len(args) < 2 {
			fmt.Fprintln(out, "Syntax: pgn_to_exp <source.pgn> <dest.exp>")
			return true
		}
		fmt.Fprintln(out, "pgn_to_exp is not supported; convert with pgn2cpgn first, then use cpgn_to_exp")

	case "pause_learning":
		s.PauseLearning()

	case "resume_learning":
		s.ResumeLearning()

	default:
		return false
	}

	return true
}

// importInto runs a CPGN import with optional numeric filter arguments:
// [maxPly [maxValue [minDepth [maxDepth]]]].
func (s *Store) importInto(src, dst string, extra []string) {
	var opts ImportOptions
	nums := make([]int, 0, 4)
	for _, a := range extra {
		var n int
		if _, err := fmt.Sscanf(a, "%d", &n); err != nil {
			s.log.Info().Str("arg", a).Msg("ignoring non-numeric import argument")
			continue
		}
		nums = append(nums, n)
	}
	if len(nums) >= 1 {
		opts.MaxPly = nums[0]
	}
	if len(nums) >= 2 {
		opts.MaxValue = int32(nums[1])
	}
	if len(nums) >= 3 {
		opts.MinDepth = int32(nums[2])
	}
	if len(nums) >= 4 {
		opts.MaxDepth = int32(nums[3])
	}

	if _, err := ImportCPGN(src, dst, opts, s.log); err != nil {
		s.log.Info().Err(err).Msg("cpgn import failed")
	}

	// Reload if the import touched the active experience file.
	if dst == s.filename {
		s.index.Clear()
		s.arenas = nil
		s.loadResult.Store(false)
		s.Init()
	}
}

// splitArgs tokenizes a command line, honoring double-quoted arguments so
// paths with spaces survive.
func splitArgs(line string) []string {
	var args []string
	var cur strings.Builder
	inQuote := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case ch == ' ' || ch == '\t':
			if inQuote {
				cur.WriteByte(ch)
			} else if cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(ch)
		}
	}
	if cur.Len() > 0 {
		args = append(args, cur.String())
	}

	return args
}
