package exp

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Defrag rewrites an experience file in canonical form: every (key, move)
// pair appears exactly once, chains merged and count-scaled, keys sorted.
// The previous file is kept as <path>.bak.
func Defrag(path string, log zerolog.Logger) error {
	log.Info().Str("file", path).Msg("defragmenting experience file")

	s := NewStore(Config{File: path, Enabled: true, Logger: log})
	if !s.Load(path, true) {
		return fmt.Errorf("defrag: load %s failed", path)
	}

	return s.Save(path, true, false)
}

// MergeFiles unions experience files into target. Sources are loaded into
// one store, chain-merging duplicate (key, move) pairs at link time, then
// the union is written as a canonical full save. The target file, if it
// exists, participates in the merge.
func MergeFiles(log zerolog.Logger, target string, sources ...string) error {
	if target == "" || len(sources) == 0 {
		return fmt.Errorf("merge: need a target and at least one source")
	}

	log.Info().Str("target", target).Strs("sources", sources).Msg("merging experience files")

	s := NewStore(Config{File: target, Enabled: true, Logger: log})

	for _, fn := range append([]string{target}, sources...) {
		// A missing target is fine: the merge then creates it.
		s.Load(fn, true)
	}

	if s.index.Positions() == 0 {
		return fmt.Errorf("merge: no experience data loaded")
	}

	return s.Save(target, true, false)
}
