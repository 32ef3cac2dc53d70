package match

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"
)

// SnapshotMetadata holds the global metadata for a snapshot, stored as
// metadata.json alongside snapshot.bin.
type SnapshotMetadata struct {
	SchemaVersion    int    `json:"schema_version"`
	Timestamp        int64  `json:"timestamp"` // Unix Nano
	EngineVersion    string `json:"engine_version"`
	SnapshotChecksum uint32 `json:"snapshot_checksum"` // CRC32 of the entire snapshot.bin file
}

// SnapshotFileFooter is the footer stored at the end of snapshot.bin.
// Layout: [BinaryData...][FooterJSON][FooterLength(4 bytes, big-endian)].
type SnapshotFileFooter struct {
	Symbols []SymbolSegment `json:"symbols"`
}

// SymbolSegment locates one symbol's snapshot inside snapshot.bin.
type SymbolSegment struct {
	Symbol   string `json:"symbol"`
	Offset   int64  `json:"offset"`
	Length   int64  `json:"length"`
	Checksum uint32 `json:"checksum"`
}

// symbolSnapshotRecord is the on-disk shape of one symbol's segment:
// BookSnapshot plus the symbol name it belongs to, since BookSnapshot
// itself doesn't know its own symbol.
type symbolSnapshotRecord struct {
	Symbol string       `json:"symbol"`
	Book   BookSnapshot `json:"book"`
}

// TakeSnapshot captures a consistent snapshot of every symbol in e and
// writes it to outputDir as snapshot.bin (binary data, JSON-encoded
// per-symbol segments) plus metadata.json. Like the teacher's
// TakeSnapshot, writes go to a temp directory first and the final
// directory swap is an atomic rename.
//
// This is a live hand-off mechanism between process instances, not a
// durable recovery log: a restart after an unclean exit loses whatever
// was never captured (see DESIGN.md's persistence decision).
func TakeSnapshot[L Ladder](e *Engine[L], outputDir string) (*SnapshotMetadata, error) {
	tmpDir := outputDir + ".tmp"
	if err := os.RemoveAll(tmpDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, err
	}

	binPath := filepath.Join(tmpDir, "snapshot.bin")
	binFile, err := os.Create(binPath)
	if err != nil {
		return nil, err
	}

	segments := make([]SymbolSegment, 0, len(e.Symbols()))
	var offset int64

	for _, symbol := range e.Symbols() {
		book := e.Book(symbol)
		if book == nil {
			continue
		}
		rec := symbolSnapshotRecord{Symbol: symbol, Book: book.Snapshot()}
		data, err := json.Marshal(rec)
		if err != nil {
			binFile.Close()
			return nil, err
		}
		n, err := binFile.Write(data)
		if err != nil {
			binFile.Close()
			return nil, err
		}

		segments = append(segments, SymbolSegment{
			Symbol:   symbol,
			Offset:   offset,
			Length:   int64(n),
			Checksum: crc32.ChecksumIEEE(data),
		})
		offset += int64(n)
	}

	footer := SnapshotFileFooter{Symbols: segments}
	footerData, err := json.Marshal(footer)
	if err != nil {
		binFile.Close()
		return nil, err
	}
	if _, err := binFile.Write(footerData); err != nil {
		binFile.Close()
		return nil, err
	}
	if len(footerData) > 4294967295 {
		binFile.Close()
		return nil, errors.New("snapshot footer too large")
	}
	//nolint:gosec // length bounded above
	footerLen := uint32(len(footerData))
	if err := binary.Write(binFile, binary.BigEndian, footerLen); err != nil {
		binFile.Close()
		return nil, err
	}
	if err := binFile.Sync(); err != nil {
		binFile.Close()
		return nil, err
	}
	if err := binFile.Close(); err != nil {
		return nil, err
	}

	snapshotChecksum, err := calculateFileCRC32(binPath)
	if err != nil {
		return nil, err
	}

	meta := &SnapshotMetadata{
		SchemaVersion:    SnapshotSchemaVersion,
		Timestamp:        time.Now().UnixNano(),
		EngineVersion:    EngineVersion,
		SnapshotChecksum: snapshotChecksum,
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "metadata.json"), metaBytes, 0o600); err != nil {
		return nil, err
	}

	if err := os.RemoveAll(outputDir); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpDir, outputDir); err != nil {
		return nil, err
	}

	return meta, nil
}

// RestoreSnapshot restores every symbol captured in inputDir into e via
// Engine.RestoreSymbol, verifying the whole-file checksum and every
// per-segment checksum before restoring anything.
func RestoreSnapshot[L Ladder](e *Engine[L], inputDir string) (*SnapshotMetadata, error) {
	metaBytes, err := os.ReadFile(filepath.Join(inputDir, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta SnapshotMetadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, err
	}

	binPath := filepath.Join(inputDir, "snapshot.bin")
	binFile, err := os.Open(binPath)
	if err != nil {
		return nil, err
	}
	defer binFile.Close()

	fileChecksum, err := calculateFileCRC32(binPath)
	if err != nil {
		return nil, err
	}
	if fileChecksum != meta.SnapshotChecksum {
		return nil, errors.New("snapshot.bin checksum mismatch")
	}

	stat, err := binFile.Stat()
	if err != nil {
		return nil, err
	}
	fileSize := stat.Size()

	footerLenBytes := make([]byte, 4)
	if _, err := binFile.ReadAt(footerLenBytes, fileSize-4); err != nil {
		return nil, err
	}
	footerLen := binary.BigEndian.Uint32(footerLenBytes)

	footerOffset := fileSize - 4 - int64(footerLen)
	footerBytes := make([]byte, footerLen)
	if _, err := binFile.ReadAt(footerBytes, footerOffset); err != nil {
		return nil, err
	}
	var footer SnapshotFileFooter
	if err := json.Unmarshal(footerBytes, &footer); err != nil {
		return nil, err
	}

	for _, seg := range footer.Symbols {
		segData := make([]byte, seg.Length)
		if _, err := binFile.ReadAt(segData, seg.Offset); err != nil {
			return nil, err
		}
		if crc32.ChecksumIEEE(segData) != seg.Checksum {
			return nil, errors.New("checksum mismatch for symbol " + seg.Symbol)
		}

		var rec symbolSnapshotRecord
		if err := json.Unmarshal(segData, &rec); err != nil {
			return nil, err
		}
		if err := e.RestoreSymbol(rec.Symbol, rec.Book); err != nil {
			return nil, err
		}
	}

	return &meta, nil
}

// calculateFileCRC32 streams f through a CRC32 hash without loading it
// fully into memory, matching the teacher's approach for verifying a
// snapshot's whole-file checksum.
func calculateFileCRC32(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
	}
	return h.Sum32(), nil
}
