package exp

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// WriteBufferSize is the flush granularity for entry writes.
const WriteBufferSize = 16 * 1024 * 1024

// Config configures a Store.
type Config struct {
	File           string // experience file path
	Enabled        bool
	ReadOnly       bool
	EvalImportance int // 0-10, weight of look-ahead eval in quality scores
	Logger         zerolog.Logger
}

// Store owns the experience lifecycle: one background loader, one index,
// per-kind staging of new observations, and the save/backup discipline.
//
// Concurrency model: exactly one background goroutine (the loader) may touch
// the index at a time, and only until it signals completion. All other entry
// points wait for the load to finish before reading or writing, so the index,
// arenas and staging slices need no further locking.
type Store struct {
	log zerolog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	loading bool

	filename string
	index    *Index
	arenas   [][]Entry // one contiguous allocation per loaded file

	stagingPV      []*Entry
	stagingMultiPV []*Entry

	abortLoading atomic.Bool
	loadResult   atomic.Bool

	evalImportance atomic.Int32

	gates gates
}

// NewStore creates a store from cfg without loading anything yet.
// Call Init to begin loading the configured file.
func NewStore(cfg Config) *Store {
	s := &Store{
		log:      cfg.Logger,
		filename: cfg.File,
		index:    NewIndex(),
	}
	s.cond = sync.NewCond(&s.mu)
	s.gates.enabled.Store(cfg.Enabled)
	s.gates.readOnly.Store(cfg.ReadOnly)
	s.evalImportance.Store(int32(clampImportance(cfg.EvalImportance)))
	return s
}

func clampImportance(v int) int {
	if v < 0 {
		return 0
	}
	if v > QualityEvalImportanceMax {
		return QualityEvalImportanceMax
	}
	return v
}

// Filename returns the current experience file path.
func (s *Store) Filename() string {
	return s.filename
}

// EvalImportance returns the configured look-ahead weight.
func (s *Store) EvalImportance() int {
	return int(s.evalImportance.Load())
}

// SetEvalImportance updates the look-ahead weight, clamped to [0, 10].
func (s *Store) SetEvalImportance(v int) {
	s.evalImportance.Store(int32(clampImportance(v)))
}

// Init starts loading the configured file. Idempotent: if the same file
// already loaded successfully nothing happens. When the store is disabled
// it unloads instead.
func (s *Store) Init() {
	if !s.Enabled() {
		s.Unload()
		return
	}

	s.mu.Lock()
	alreadyLoaded := !s.loading && s.loadResult.Load()
	s.mu.Unlock()

	if alreadyLoaded {
		return
	}

	s.Load(s.filename, false)
}

// SetFile switches the store to a different experience file: current state
// is saved and released, then the new file loads in the background.
func (s *Store) SetFile(path string) {
	if path == s.filename {
		return
	}
	s.Unload()
	s.filename = path
	s.Init()
}

// Load begins loading path into the index. Any in-flight load is waited out
// first. With synchronous set, Load blocks and returns the load result;
// otherwise it returns true immediately.
func (s *Store) Load(path string, synchronous bool) bool {
	s.WaitForLoad()

	s.filename = path
	s.loadResult.Store(false)
	s.abortLoading.Store(false)

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	go func() {
		result := s.load(path)
		s.loadResult.Store(result)

		s.mu.Lock()
		s.loading = false
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	if !synchronous {
		return true
	}
	return s.WaitForLoad()
}

// WaitForLoad blocks until no load is in progress and returns the result of
// the most recent load.
func (s *Store) WaitForLoad() bool {
	s.mu.Lock()
	for s.loading {
		s.cond.Wait()
	}
	s.mu.Unlock()
	return s.loadResult.Load()
}

// AbortLoad asks the loader to stop at the next entry. Partial results stay
// linked in the index.
func (s *Store) AbortLoad() {
	s.abortLoading.Store(true)
}

// load runs on the loader goroutine.
func (s *Store) load(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		s.log.Info().Str("file", path).Msg("could not open experience file")
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.log.Info().Err(err).Str("file", path).Msg("could not stat experience file")
		return false
	}
	if info.Size() == 0 {
		s.log.Info().Str("file", path).Msg("experience file is empty")
		return false
	}

	reader, entryCount, err := probeFormat(f, info.Size())
	if err != nil {
		s.log.Info().Err(err).Str("file", path).Msg("could not probe experience file")
		return false
	}
	if reader == nil {
		s.log.Info().Str("file", path).Msg("not a valid experience file")
		return false
	}

	if reader.version() != CurrentVersion {
		s.log.Info().
			Int("version", reader.version()).
			Str("file", path).
			Msg("importing legacy experience version")
	}

	// One contiguous arena per file; chains point into it and the GC keeps
	// it alive for as long as any entry stays linked.
	arena := make([]Entry, entryCount)
	s.arenas = append(s.arenas, arena)

	prevPositions := s.index.Positions()

	br := bufio.NewReaderSize(f, 1<<20)
	var duplicates int64

	for i := int64(0); i < entryCount; i++ {
		if s.abortLoading.Load() {
			break
		}

		e := &arena[i]
		if err := reader.read(br, e); err != nil {
			s.log.Info().
				Err(err).
				Int64("entry", i+1).
				Int64("of", entryCount).
				Msg("failed to read experience entry")
			return false
		}

		if !s.index.Link(e) {
			duplicates++
		}
	}

	if s.abortLoading.Load() {
		return false
	}

	if reader.version() != CurrentVersion {
		s.log.Info().
			Str("file", filepath.Base(path)).
			Int("from", reader.version()).
			Int("to", CurrentVersion).
			Msg("upgrading experience file")
		if err := s.Save(path, true, true); err != nil {
			s.log.Info().Err(err).Str("file", path).Msg("upgrade rewrite failed")
		}
	}

	if s.abortLoading.Load() {
		return false
	}

	if prevPositions > 0 {
		s.log.Info().
			Str("file", filepath.Base(path)).
			Int64("new_moves", entryCount).
			Int("new_positions", s.index.Positions()-prevPositions).
			Int64("duplicate_moves", duplicates).
			Msg("experience loaded")
	} else {
		frag := 0.0
		if entryCount > 0 {
			frag = 100.0 * float64(duplicates) / float64(entryCount)
		}
		s.log.Info().
			Str("file", filepath.Base(path)).
			Int64("moves", entryCount).
			Int("positions", s.index.Positions()).
			Int64("duplicate_moves", duplicates).
			Str("fragmentation", fmt.Sprintf("%.2f%%", frag)).
			Msg("experience loaded")
	}

	return true
}

// HasNewExperience reports whether unsaved observations are staged.
func (s *Store) HasNewExperience() bool {
	return len(s.stagingPV) > 0 || len(s.stagingMultiPV) > 0
}

// Save persists experience to path. With saveAll the whole index is
// rewritten canonically (count-scaled, key-sorted, existing file renamed to
// .bak and restored on failure); otherwise only staged entries are appended.
// ignoreLoadingCheck is reserved for the loader's own upgrade rewrite.
func (s *Store) Save(path string, saveAll, ignoreLoadingCheck bool) error {
	if ignoreLoadingCheck {
		// Writers wait for load, so while a load is in progress no writer
		// can run concurrently with the loader's rewrite.
		s.mu.Lock()
		inLoad := s.loading
		s.mu.Unlock()
		if !inLoad {
			panic("exp: Save with ignoreLoadingCheck outside a load")
		}
	} else {
		s.WaitForLoad()
	}

	if !s.HasNewExperience() && (!saveAll || s.index.Positions() == 0) {
		return nil
	}

	var backup string
	if saveAll {
		if _, err := os.Stat(path); err == nil {
			backup = path + ".bak"

			if _, err := os.Stat(backup); err == nil {
				if err := os.Remove(backup); err != nil {
					s.log.Info().Err(err).Str("file", backup).Msg("could not delete existing backup")
					backup = ""
				}
			}

			if backup != "" {
				if err := os.Rename(path, backup); err != nil {
					s.log.Info().Err(err).Str("file", path).Msg("could not create backup of experience file")
					backup = ""
				}
			}
		}
	}

	if err := s.save(path, saveAll); err != nil {
		s.log.Info().Err(err).Str("file", path).Msg("failed to save experience file")
		if backup != "" {
			if restoreErr := os.Rename(backup, path); restoreErr != nil {
				s.log.Info().Err(restoreErr).Str("file", backup).Msg("could not restore backup experience file")
			}
		}
		return err
	}

	return nil
}

func (s *Store) save(path string, saveAll bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open for writing: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	w := bufio.NewWriterSize(f, WriteBufferSize)

	if info.Size() == 0 {
		if _, err := w.WriteString(SignatureV2); err != nil {
			return fmt.Errorf("write signature: %w", err)
		}
	}

	var buf [EntrySize]byte
	writeEntry := func(e *Entry) error {
		e.encode(buf[:])
		_, err := w.Write(buf[:])
		return err
	}

	if saveAll {
		// Staged entries are already linked at add time, so the index is
		// complete; relinking here would double-merge them.
		var allMoves, allPositions int64

		for _, key := range s.index.SortedKeys() {
			chain := s.index.Probe(key)
			allPositions++

			// Scale counts down to keep them bounded across rewrites.
			var maxCount uint16
			for _, e := range chain {
				maxCount = max(maxCount, e.Count)
			}
			scale := 1 + uint16(maxCount/128)
			for _, e := range chain {
				e.Count = max(e.Count/scale, 1)
			}
			// Scaling can change ranks; keep the chain sorted by Compare.
			slices.SortStableFunc(chain, func(a, b *Entry) int { return b.Compare(a) })

			for _, e := range chain {
				if e.Depth < MinDepth {
					continue
				}
				allMoves++
				if err := writeEntry(e); err != nil {
					return fmt.Errorf("write entry: %w", err)
				}
			}
		}

		s.log.Info().
			Int64("positions", allPositions).
			Int64("moves", allMoves).
			Str("file", path).
			Msg("saved experience")
	} else {
		// Deduplicate (key, move) pairs within this incremental batch.
		seen := make(map[uint64]struct{}, len(s.stagingPV)+len(s.stagingMultiPV))
		kmHash := func(e *Entry) uint64 {
			return e.Key ^ uint64(e.Move)*0x9E3779B185EBCA87
		}

		var pvWritten, multiPVWritten int64
		for listIdx, list := range [][]*Entry{s.stagingPV, s.stagingMultiPV} {
			for _, e := range list {
				if e.Depth < MinDepth {
					continue
				}
				sig := kmHash(e)
				if _, dup := seen[sig]; dup {
					continue
				}
				seen[sig] = struct{}{}

				if err := writeEntry(e); err != nil {
					return fmt.Errorf("write entry: %w", err)
				}
				if listIdx == 0 {
					pvWritten++
				} else {
					multiPVWritten++
				}
			}
		}

		s.log.Info().
			Int64("pv", pvWritten).
			Int64("multipv", multiPVWritten).
			Str("file", path).
			Msg("saved experience entries")
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	// Drained staging entries stay reachable through the index until unload.
	s.stagingPV = s.stagingPV[:0]
	s.stagingMultiPV = s.stagingMultiPV[:0]

	return nil
}

// Probe returns the move chain recorded for a position key, or nil.
// Callers must have waited for loading to finish.
func (s *Store) Probe(key uint64) []*Entry {
	return s.index.Probe(key)
}

// FindBestEntry returns the highest pseudo-quality entry for a key, or nil.
func (s *Store) FindBestEntry(key uint64) *Entry {
	chain := s.index.Probe(key)
	if len(chain) == 0 {
		return nil
	}
	best := chain[0]
	for _, e := range chain[1:] {
		if e.Compare(best) > 0 {
			best = e
		}
	}
	return best
}

// AddPV records a principal-variation observation. Dropped when the store
// is disabled, paused or readonly; in bench mode at most one PV entry is
// accepted per single-shot token.
func (s *Store) AddPV(key uint64, move uint32, value, depth int32) {
	if !s.writable() {
		return
	}

	if s.gates.benchMode.Load() {
		if !s.gates.benchSingleShot.Swap(false) {
			return
		}
	}

	s.WaitForLoad()
	e := NewEntry(key, move, value, depth)
	s.stagingPV = append(s.stagingPV, e)
	s.index.Link(e)
}

// AddMultiPV records a multi-line observation. Dropped outright in bench
// mode, and under the same gates as AddPV.
func (s *Store) AddMultiPV(key uint64, move uint32, value, depth int32) {
	if !s.writable() || s.gates.benchMode.Load() {
		return
	}

	s.WaitForLoad()
	e := NewEntry(key, move, value, depth)
	s.stagingMultiPV = append(s.stagingMultiPV, e)
	s.index.Link(e)
}

// SaveStaged appends staged observations to the current file, honoring the
// readonly gate. Used on game boundaries and shutdown.
func (s *Store) SaveStaged() {
	if s.ReadOnly() || !s.HasNewExperience() {
		return
	}
	_ = s.Save(s.filename, false, false)
}

// Touch creates the experience file with just the V2 signature if it does
// not exist yet. No-op when disabled or when no file is configured.
func (s *Store) Touch() {
	if !s.Enabled() || s.filename == "" {
		return
	}

	f, err := os.OpenFile(s.filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		f.WriteString(SignatureV2)
	}
}

// NewGame flushes staged experience and resumes learning; called on game
// boundaries.
func (s *Store) NewGame() {
	s.SaveStaged()
	s.ResumeLearning()
}

// Unload saves staged entries and releases the index and all loaded data.
func (s *Store) Unload() {
	s.AbortLoad()
	s.WaitForLoad()

	s.SaveStaged()

	s.index.Clear()
	s.arenas = nil
	s.stagingPV = nil
	s.stagingMultiPV = nil
	s.loadResult.Store(false)
	s.abortLoading.Store(false)
}

// Close saves and releases everything; the store must not be used after.
func (s *Store) Close() {
	s.Unload()
}

func (s *Store) writable() bool {
	return s.Enabled() && !s.IsLearningPaused() && !s.ReadOnly()
}
