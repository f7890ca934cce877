package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/index"
)

// Section delimiter in the policy document: a full line of '=' characters.
var sectionSeparator = regexp.MustCompile(`(?m)^={70,}[ \t]*$`)

// ChunkingParams controls how policy sections are split.
type ChunkingParams struct {
	MaxChars     int // window size for oversized sections
	OverlapChars int // carried between adjacent windows
	MinChars     int // sections shorter than this are dropped
}

// Chunker returns the chunking function for the policy corpus. Sections
// are split on delimiter lines, short sections dropped, and oversized
// sections windowed with overlap. The first line of a section becomes
// the SectionTitle on every chunk cut from it.
func Chunker(p ChunkingParams) index.ChunkFunc {
	return func(content string) []domain.Chunk {
		var chunks []domain.Chunk
		seq := 0

		for i, section := range sectionSeparator.Split(content, -1) {
			section = strings.TrimSpace(section)
			if len(section) <= p.MinChars {
				continue
			}

			title := section
			if nl := strings.IndexByte(section, '\n'); nl >= 0 {
				title = section[:nl]
			}
			title = strings.TrimSpace(title)

			for j, text := range splitWithOverlap(section, p.MaxChars, p.OverlapChars) {
				chunks = append(chunks, domain.Chunk{
					ID:           fmt.Sprintf("policy_%d_%d", i, j),
					Text:         text,
					SectionTitle: title,
					Corpus:       domain.CorpusPolicy,
					Seq:          seq,
				})
				seq++
			}
		}
		return chunks
	}
}

// splitWithOverlap cuts text into windows of at most maxChars, carrying
// overlap characters between adjacent windows. Each window prefers to
// end at the last newline, then the last sentence boundary, inside the
// window rather than mid-word.
func splitWithOverlap(text string, maxChars, overlap int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}

	var out []string
	start := 0

	for start < len(text) {
		end := start + maxChars

		if end < len(text) {
			breakPoint := strings.LastIndex(text[start:end], "\n")
			if breakPoint <= 0 {
				breakPoint = strings.LastIndex(text[start:end], ". ")
			}
			if breakPoint > 0 {
				end = start + breakPoint + 1
			}
		} else {
			end = len(text)
		}

		if piece := strings.TrimSpace(text[start:end]); piece != "" {
			out = append(out, piece)
		}

		if end == len(text) {
			break
		}
		next := end - overlap
		if next <= start {
			// Degenerate break point, step forward without overlap.
			next = end
		}
		start = next
	}
	return out
}
