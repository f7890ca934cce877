package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
)

// Persisted layout per corpus: chunks.json and vectors.bin written
// first, manifest.json last. Each file goes to a temp path and is
// renamed into place, so a crash mid-rebuild leaves either the previous
// valid generation or a missing/stale manifest — never a manifest that
// vouches for half-written data.
const (
	manifestFile = "manifest.json"
	chunksFile   = "chunks.json"
	vectorsFile  = "vectors.bin"
)

func (ix *Index) persist(snap *Snapshot) error {
	if err := os.MkdirAll(ix.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	chunksData, err := json.Marshal(snap.Chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	if err := writeAtomic(filepath.Join(ix.dir, chunksFile), chunksData); err != nil {
		return err
	}

	if err := writeAtomic(filepath.Join(ix.dir, vectorsFile), vectorsToBytes(snap.Vectors)); err != nil {
		return err
	}

	manifestData, err := json.Marshal(snap.Manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeAtomic(filepath.Join(ix.dir, manifestFile), manifestData)
}

// loadPersisted returns the stored snapshot when the manifest hash
// matches the current source hash. Any read or consistency failure is
// treated as a corrupted cache: log and rebuild.
func (ix *Index) loadPersisted(hash string) (*Snapshot, bool) {
	manifestData, err := os.ReadFile(filepath.Join(ix.dir, manifestFile))
	if err != nil {
		return nil, false
	}

	var manifest domain.IndexManifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		ix.logger.Warn("Corrupted index manifest, rebuilding", zap.Error(err))
		return nil, false
	}
	if manifest.ContentHash != hash || manifest.Corpus != ix.corpus {
		return nil, false
	}

	chunksData, err := os.ReadFile(filepath.Join(ix.dir, chunksFile))
	if err != nil {
		ix.logger.Warn("Missing chunk list despite valid manifest, rebuilding", zap.Error(err))
		return nil, false
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(chunksData, &chunks); err != nil {
		ix.logger.Warn("Corrupted chunk list, rebuilding", zap.Error(err))
		return nil, false
	}

	vectorData, err := os.ReadFile(filepath.Join(ix.dir, vectorsFile))
	if err != nil {
		ix.logger.Warn("Missing vectors despite valid manifest, rebuilding", zap.Error(err))
		return nil, false
	}
	vectors, err := bytesToVectors(vectorData, manifest.Dimensions)
	if err != nil {
		ix.logger.Warn("Corrupted vector file, rebuilding", zap.Error(err))
		return nil, false
	}

	if len(chunks) != manifest.ChunkCount || len(vectors) != manifest.ChunkCount {
		ix.logger.Warn("Index cache count mismatch, rebuilding",
			zap.Int("manifest", manifest.ChunkCount),
			zap.Int("chunks", len(chunks)),
			zap.Int("vectors", len(vectors)),
		)
		return nil, false
	}

	return &Snapshot{Manifest: manifest, Chunks: chunks, Vectors: vectors}, true
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func vectorsToBytes(vectors [][]float32) []byte {
	var total int
	for _, v := range vectors {
		total += len(v) * 4
	}
	buf := make([]byte, 0, total)
	for _, v := range vectors {
		for _, f := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf
}

func bytesToVectors(data []byte, dims int) ([][]float32, error) {
	if dims <= 0 {
		if len(data) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("vector data present but manifest has no dimensions")
	}
	stride := dims * 4
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("vector data length %d not a multiple of %d", len(data), stride)
	}
	vectors := make([][]float32, len(data)/stride)
	for i := range vectors {
		v := make([]float32, dims)
		base := i * stride
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[base+j*4:]))
		}
		vectors[i] = v
	}
	return vectors, nil
}
