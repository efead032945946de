package exp

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeV2File(t *testing.T, path string, entries []Entry) {
	t.Helper()
	var buf [EntrySize]byte
	data := []byte(SignatureV2)
	for i := range entries {
		entries[i].encode(buf[:])
		data = append(data, buf[:]...)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func writeV1File(t *testing.T, path string, entries []Entry) {
	t.Helper()
	data := []byte(SignatureV1)
	for _, e := range entries {
		var buf [EntrySize]byte
		binary.LittleEndian.PutUint64(buf[0:8], e.Key)
		binary.LittleEndian.PutUint32(buf[8:12], e.Move)
		binary.LittleEndian.PutUint32(buf[12:16], uint32(e.Value))
		binary.LittleEndian.PutUint32(buf[16:20], uint32(e.Depth))
		buf[20], buf[21], buf[22], buf[23] = 0x00, 0xFF, 0x00, 0xFF
		data = append(data, buf[:]...)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func openForProbe(t *testing.T, path string) (*os.File, int64) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	return f, info.Size()
}

func TestProbeFormatDetectsV2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.exp")
	writeV2File(t, path, []Entry{
		{Key: 1, Move: 2, Value: 3, Depth: 8, Count: 1},
		{Key: 2, Move: 3, Value: 4, Depth: 9, Count: 5},
	})

	f, size := openForProbe(t, path)
	r, entries, err := probeFormat(f, size)
	if err != nil {
		t.Fatal(err)
	}
	if r == nil || r.version() != VersionV2 {
		t.Fatal("expected V2 reader")
	}
	if entries != 2 {
		t.Errorf("entries = %d, want 2", entries)
	}

	var e Entry
	br := bufio.NewReader(f)
	if err := r.read(br, &e); err != nil {
		t.Fatal(err)
	}
	want := Entry{Key: 1, Move: 2, Value: 3, Depth: 8, Count: 1}
	if e != want {
		t.Errorf("first entry = %+v, want %+v", e, want)
	}
}

func TestProbeFormatDetectsV1AndDefaultsCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.exp")
	writeV1File(t, path, []Entry{{Key: 42, Move: 7, Value: -20, Depth: 8}})

	f, size := openForProbe(t, path)
	r, entries, err := probeFormat(f, size)
	if err != nil {
		t.Fatal(err)
	}
	if r == nil || r.version() != VersionV1 {
		t.Fatal("expected V1 reader")
	}
	if entries != 1 {
		t.Errorf("entries = %d, want 1", entries)
	}

	var e Entry
	br := bufio.NewReader(f)
	if err := r.read(br, &e); err != nil {
		t.Fatal(err)
	}
	if e.Count != 1 {
		t.Errorf("upgraded count = %d, want 1", e.Count)
	}
	if e.Key != 42 || e.Move != 7 || e.Value != -20 || e.Depth != 8 {
		t.Errorf("unexpected fields: %+v", e)
	}
}

func TestProbeFormatRejectsUnknownSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.exp")
	if err := os.WriteFile(path, make([]byte, len(SignatureV2)+EntrySize), 0644); err != nil {
		t.Fatal(err)
	}

	f, size := openForProbe(t, path)
	r, _, err := probeFormat(f, size)
	if err != nil {
		t.Fatal(err)
	}
	if r != nil {
		t.Error("zero-filled file must not match any signature")
	}
}

func TestProbeFormatRejectsPartialTrailingRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.exp")
	data := append([]byte(SignatureV2), make([]byte, EntrySize-1)...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	f, size := openForProbe(t, path)
	r, _, err := probeFormat(f, size)
	if err != nil {
		t.Fatal(err)
	}
	if r != nil {
		t.Error("file with a partial record must be rejected")
	}
}
