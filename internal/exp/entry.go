// Package exp implements the experience store: a persistent, append-optimized
// knowledge base that remembers, per position key, which moves were searched
// together with their evaluations, depths and observation counts. It serves
// both as a write-through learning log and as a read-only probing oracle.
package exp

import (
	"encoding/binary"
	"math"
)

// EntrySize is the fixed on-disk record size for both format versions.
// File validity checks divide (filesize - signature) by it.
const EntrySize = 24

// MinDepth is the minimum search depth an entry needs to be persisted.
const MinDepth int32 = 4

// Engine value constants shared with the importer and the inspector.
const (
	ValueMate  = 32000
	MaxPlyDist = 246 // maximum search distance used by mate scoring

	// ValueTBWinInMaxPly is the lowest score treated as a proven
	// (mate or tablebase) win when guessing game results.
	ValueTBWinInMaxPly = ValueMate - 2*MaxPlyDist - 1

	// PawnValue is the engine's pawn anchor in internal units.
	PawnValue = 208
)

// Entry is one experience record: a position key tied to a single move with
// its last-known evaluation, search depth and observation count.
type Entry struct {
	Key   uint64
	Move  uint32
	Value int32
	Depth int32
	Count uint16
}

// NewEntry returns a fresh single-observation entry.
func NewEntry(key uint64, move uint32, value, depth int32) *Entry {
	return &Entry{Key: key, Move: move, Value: value, Depth: depth, Count: 1}
}

// Merge folds another observation of the same (key, move) pair into e.
// Counts saturate; value and depth follow the deeper observation, or are
// averaged when depths are equal.
func (e *Entry) Merge(o *Entry) {
	if e.Key != o.Key || e.Move != o.Move {
		panic("exp: merge of entries with different key or move")
	}

	e.Count = saturatingAdd16(e.Count, o.Count)

	if e.Depth == o.Depth {
		e.Value = (e.Value + o.Value) / 2
	} else if e.Depth < o.Depth {
		e.Value = o.Value
		e.Depth = o.Depth
	}
}

// Compare orders entries by pseudo-quality; positive means e is better.
// Used for chain ordering and best-move selection.
func (e *Entry) Compare(o *Entry) int {
	const depthScale = 10
	const countScale = 3

	scaled := func(v, d, c int) int {
		return v * max(d/depthScale, 1) * max(c/countScale, 1)
	}

	v := scaled(int(e.Value), int(e.Depth), int(e.Count)) -
		scaled(int(o.Value), int(o.Depth), int(o.Count))
	if v != 0 {
		return v
	}

	if v = int(e.Count) - int(o.Count); v != 0 {
		return v
	}

	return int(e.Depth) - int(o.Depth)
}

// encode writes the 24-byte V2 wire form of e into buf.
func (e *Entry) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], e.Key)
	binary.LittleEndian.PutUint32(buf[8:12], e.Move)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(e.Value))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(e.Depth))
	binary.LittleEndian.PutUint16(buf[20:22], e.Count)
	buf[22] = 0
	buf[23] = 0
}

// decode fills e from a 24-byte V2 wire record.
func (e *Entry) decode(buf []byte) {
	e.Key = binary.LittleEndian.Uint64(buf[0:8])
	e.Move = binary.LittleEndian.Uint32(buf[8:12])
	e.Value = int32(binary.LittleEndian.Uint32(buf[12:16]))
	e.Depth = int32(binary.LittleEndian.Uint32(buf[16:20]))
	e.Count = binary.LittleEndian.Uint16(buf[20:22])
}

// saturatingAdd16 adds two uint16 values, capping at 65535.
func saturatingAdd16(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)
	if sum > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(sum)
}
