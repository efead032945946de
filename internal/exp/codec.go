package exp

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// On-disk signatures. Records start immediately after the signature bytes;
// there is no terminator.
const (
	SignatureV2 = "SugaR Experience version 2"
	SignatureV1 = "SugaR"

	VersionV1 = 1
	VersionV2 = 2

	// CurrentVersion is the version written by every save path.
	CurrentVersion = VersionV2
)

// formatReader decodes one on-disk format version into current entries.
// Readers are probed most-recent first; checkSignature leaves the file
// positioned at the first record on a match and rewound otherwise.
type formatReader interface {
	version() int
	signature() string
	checkSignature(f *os.File, size int64) (entries int64, ok bool, err error)
	read(r io.Reader, e *Entry) error
}

// checkSignature validates that the file starts with sig and that the
// remaining length is a whole number of EntrySize records.
func checkSignature(f *os.File, size int64, sig string) (int64, bool, error) {
	dataLen := size - int64(len(sig))
	if dataLen < 0 || dataLen%EntrySize != 0 {
		return 0, false, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, false, err
	}

	buf := make([]byte, len(sig))
	if _, err := io.ReadFull(f, buf); err != nil {
		return 0, false, fmt.Errorf("read signature: %w", err)
	}

	if string(buf) != sig {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}

	return dataLen / EntrySize, true, nil
}

// readerV2 reads the current format: 24-byte little-endian records.
type readerV2 struct{}

func (readerV2) version() int      { return VersionV2 }
func (readerV2) signature() string { return SignatureV2 }

func (readerV2) checkSignature(f *os.File, size int64) (int64, bool, error) {
	return checkSignature(f, size, SignatureV2)
}

func (readerV2) read(r io.Reader, e *Entry) error {
	var buf [EntrySize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	e.decode(buf[:])
	return nil
}

// readerV1 reads the legacy format: same 24-byte record without a count
// field; the trailing four bytes are 00 FF 00 FF padding. Count defaults
// to 1 on upgrade.
type readerV1 struct{}

func (readerV1) version() int      { return VersionV1 }
func (readerV1) signature() string { return SignatureV1 }

func (readerV1) checkSignature(f *os.File, size int64) (int64, bool, error) {
	return checkSignature(f, size, SignatureV1)
}

func (readerV1) read(r io.Reader, e *Entry) error {
	var buf [EntrySize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	e.Key = binary.LittleEndian.Uint64(buf[0:8])
	e.Move = binary.LittleEndian.Uint32(buf[8:12])
	e.Value = int32(binary.LittleEndian.Uint32(buf[12:16]))
	e.Depth = int32(binary.LittleEndian.Uint32(buf[16:20]))
	e.Count = 1
	return nil
}

// probeFormat tries all known readers, most recent first, and returns the
// matching reader with its entry count, or nil if no signature matches.
func probeFormat(f *os.File, size int64) (formatReader, int64, error) {
	for _, r := range []formatReader{readerV2{}, readerV1{}} {
		entries, ok, err := r.checkSignature(f, size)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			return r, entries, nil
		}
	}
	return nil, 0, nil
}
