package chunker

import (
	"strings"
	"unicode/utf8"
)

var DefaultSeparators = []string{"\n\n", "\n", " "}

// OverlapDivisor derives the overlap from the chunk size.
const OverlapDivisor = 15

// RecursiveSplitter splits text on the first separator present, merges
// the pieces back up to ChunkSize characters, and recurses with the
// remaining separators into pieces that are still too long. Pieces
// with no separator left are cut every ChunkSize characters.
type RecursiveSplitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewRecursiveSplitter(chunkSize, overlap int, separators ...string) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &RecursiveSplitter{chunkSize: chunkSize, overlap: overlap, separators: separators}
}

// ForChunkSize builds the splitter used at ingestion time.
func ForChunkSize(chunkSize int) *RecursiveSplitter {
	return NewRecursiveSplitter(chunkSize, chunkSize/OverlapDivisor)
}

func (s *RecursiveSplitter) ChunkSize() int {
	return s.chunkSize
}

func (s *RecursiveSplitter) Overlap() int {
	return s.overlap
}

func (s *RecursiveSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	found := false
	for i, sep := range separators {
		if sep != "" && strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			found = true
			break
		}
	}
	if !found {
		return s.hardSplit(text)
	}

	var final []string
	var good []string
	for _, piece := range strings.Split(text, separator) {
		if length(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		final = append(final, s.split(piece, rest)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}
	return final
}

func (s *RecursiveSplitter) merge(pieces []string, separator string) []string {
	sepLen := length(separator)
	var docs []string
	var current []string
	total := 0
	for _, piece := range pieces {
		pieceLen := length(piece)
		if total+pieceLen+joinCost(len(current), sepLen) > s.chunkSize && len(current) > 0 {
			if doc := join(current, separator); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+pieceLen+joinCost(len(current), sepLen) > s.chunkSize && total > 0) {
				drop := length(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		current = append(current, piece)
		if len(current) > 1 {
			total += sepLen
		}
		total += pieceLen
	}
	if doc := join(current, separator); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func (s *RecursiveSplitter) hardSplit(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= s.chunkSize {
		return []string{trimmed}
	}
	step := s.chunkSize - s.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

func joinCost(count, sepLen int) int {
	if count > 0 {
		return sepLen
	}
	return 0
}

func join(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
