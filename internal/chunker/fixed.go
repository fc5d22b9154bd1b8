package chunker

import "strings"

// FixedSplit cuts text every size characters with no overlap and no
// separator handling. Slices are kept as cut; whitespace-only slices are
// dropped.
func FixedSplit(text string, size int) []string {
	if size <= 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		piece := string(runes[start:end])
		if strings.TrimSpace(piece) == "" {
			continue
		}
		out = append(out, piece)
	}
	return out
}
