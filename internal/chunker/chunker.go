// Package chunker splits text into fixed-size word or sentence windows.
package chunker

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strings"

	"resume-matcher/internal/models"
)

// sentence ends at . ! or ? followed by whitespace
var sentenceEndRe = regexp.MustCompile(`[.!?]+["')\]]*\s+`)

// Words yields windows of size words, each starting size-overlap words after the
// previous one. The sequence ends with the first window that reaches the end of
// the text, which may be shorter than size. It can be ranged over any number of
// times.
func Words(text string, size, overlap int) (iter.Seq[string], error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return windows(strings.Fields(text), size, overlap), nil
}

// Sentences works like Words but the unit is a sentence
func Sentences(text string, size, overlap int) (iter.Seq[string], error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return windows(SplitSentences(text), size, overlap), nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}
	return nil
}

func windows(units []string, size, overlap int) iter.Seq[string] {
	step := size - overlap
	return func(yield func(string) bool) {
		for i := 0; i < len(units); i += step {
			end := min(i+size, len(units))
			if !yield(strings.Join(units[i:end], " ")) || end == len(units) {
				return
			}
		}
	}
}

// SplitSentences breaks text on sentence punctuation. Whitespace inside a
// sentence is collapsed.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		if s := strings.Join(strings.Fields(text[start:loc[1]]), " "); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if s := strings.Join(strings.Fields(text[start:]), " "); s != "" {
		out = append(out, s)
	}
	return out
}

// Collect materialises a window sequence
func Collect(seq iter.Seq[string]) []string {
	return slices.Collect(seq)
}

// Split turns text into word-window chunks linked to source
func Split(source, text string, size, overlap int) ([]models.Chunk, error) {
	seq, err := Words(text, size, overlap)
	if err != nil {
		return nil, err
	}
	return toChunks(source, seq), nil
}

// SplitSentenceWindows turns text into sentence-window chunks linked to source
func SplitSentenceWindows(source, text string, size, overlap int) ([]models.Chunk, error) {
	seq, err := Sentences(text, size, overlap)
	if err != nil {
		return nil, err
	}
	return toChunks(source, seq), nil
}

func toChunks(source string, seq iter.Seq[string]) []models.Chunk {
	var chunks []models.Chunk
	for text := range seq {
		chunks = append(chunks, models.Chunk{
			Text:       text,
			SourceID:   source,
			ChunkIndex: len(chunks),
		})
	}
	return chunks
}
