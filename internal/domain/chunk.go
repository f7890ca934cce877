package domain

// Corpus identifies which source file a chunk was indexed from.
type Corpus string

const (
	// CorpusPolicy is the compliance policy document.
	CorpusPolicy Corpus = "policy"
	// CorpusEmail is the corporate email dump.
	CorpusEmail Corpus = "email"
)

// Chunk is the smallest retrievable unit of indexed text.
// Identity is (Corpus, Seq); a chunk is never mutated after indexing.
type Chunk struct {
	ID           string            `json:"id"`
	Text         string            `json:"text"`
	SectionTitle string            `json:"section_title"`
	Corpus       Corpus            `json:"corpus"`
	Seq          int               `json:"seq"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// IndexManifest is the persisted fingerprint of a corpus index.
// A stored index is valid if and only if ContentHash matches the
// hash of the current source file.
type IndexManifest struct {
	Corpus      Corpus `json:"corpus"`
	ContentHash string `json:"content_hash"`
	ChunkCount  int    `json:"chunk_count"`
	Dimensions  int    `json:"dimensions"`
	BuiltAt     int64  `json:"built_at"` // unix millis
}

// ScoredChunk is a chunk with its retrieval score.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
