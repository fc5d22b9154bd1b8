package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSplit_ParagraphsStayWhole(t *testing.T) {
	s := ForChunkSize(20)
	chunks := s.Split("cats are great\n\ndogs are loyal\n\nfish swim")
	require.Equal(t, []string{"cats are great", "dogs are loyal", "fish swim"}, chunks)
}

func TestSplit_MergesWithOverlap(t *testing.T) {
	s := NewRecursiveSplitter(15, 5, " ")
	chunks := s.Split("aa bb cc dd ee ff")
	require.Equal(t, []string{"aa bb cc dd ee", "dd ee ff"}, chunks)
}

func TestSplit_HardSplitWithoutSeparators(t *testing.T) {
	s := NewRecursiveSplitter(10, 0)
	chunks := s.Split("abcdefghijklmnopqrstuvwxy")
	require.Equal(t, []string{"abcdefghij", "klmnopqrst", "uvwxy"}, chunks)
}

func TestSplit_EmptyInput(t *testing.T) {
	s := ForChunkSize(100)
	require.Nil(t, s.Split(""))
	require.Nil(t, s.Split(" \n\n "))
}

func TestSplit_ChunksAreBounded(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("lorem ipsum dolor sit amet")
		if i%7 == 0 {
			b.WriteString("\n\n")
		} else if i%3 == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString(strings.Repeat("x", 300))
	for _, size := range []int{30, 100, 500} {
		s := ForChunkSize(size)
		chunks := s.Split(b.String())
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			require.NotEmpty(t, c)
			require.LessOrEqual(t, utf8.RuneCountInString(c), size)
		}
	}
}

func TestForChunkSize_Overlap(t *testing.T) {
	require.Equal(t, 33, ForChunkSize(500).Overlap())
	require.Equal(t, 0, ForChunkSize(10).Overlap())
	require.Equal(t, 500, ForChunkSize(500).ChunkSize())
}

func TestSplit_CountsRunes(t *testing.T) {
	s := NewRecursiveSplitter(4, 0)
	require.Equal(t, []string{"日本語の", "文章"}, s.Split("日本語の文章"))
}

func TestFixedSplit(t *testing.T) {
	require.Equal(t, []string{"abc", "def", "g"}, FixedSplit("abcdefg", 3))
	require.Equal(t, []string{"cats ", "dogs"}, FixedSplit("cats dogs", 5))
	require.Equal(t, []string{"ab", " c"}, FixedSplit("ab   c", 2))
	require.Equal(t, []string{"日本", "語"}, FixedSplit("日本語", 2))
	require.Nil(t, FixedSplit("  \n ", 3))
	require.Nil(t, FixedSplit("abc", 0))

	text := strings.Repeat("x", 1001)
	chunks := FixedSplit(text, 500)
	require.Len(t, chunks, 3)
	require.Equal(t, text, strings.Join(chunks, ""))
}
