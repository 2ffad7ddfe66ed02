package scanner

import (
	"bytes"
	"strings"
)

// LineIndex maps byte offsets to 1-based line and column numbers and back
// to line text. Built in one pass and reused for every candidate in the
// same file, which keeps position reporting out of the per-match hot path.
type LineIndex struct {
	content []byte
	starts  []uint32 // byte offset of each line start
}

func NewLineIndex(content []byte) *LineIndex {
	starts := make([]uint32, 1, 64)
	starts[0] = 0
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return &LineIndex{content: content, starts: starts}
}

// Locate returns the 1-based line and byte column of offset.
func (li *LineIndex) Locate(offset uint32) (line, col int) {
	// Binary search for the last line start at or before offset.
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, int(offset-li.starts[lo]) + 1
}

// OffsetOf converts a 1-based line and byte column to a byte offset.
// It reports false when the position falls outside the file.
func (li *LineIndex) OffsetOf(line, col int) (uint32, bool) {
	if line < 1 || line > len(li.starts) || col < 1 {
		return 0, false
	}
	off := li.starts[line-1] + uint32(col-1)
	if off >= uint32(len(li.content)) {
		return 0, false
	}
	return off, true
}

// Line returns the text of the 1-based line, without its newline.
func (li *LineIndex) Line(line int) string {
	if line < 1 || line > len(li.starts) {
		return ""
	}
	start := li.starts[line-1]
	end := uint32(len(li.content))
	if line < len(li.starts) {
		end = li.starts[line] - 1
	}
	text := li.content[start:end]
	text = bytes.TrimSuffix(text, []byte("\r"))
	return string(text)
}

// Snippet returns the trimmed text of the line containing offset.
func (li *LineIndex) Snippet(offset uint32) string {
	line, _ := li.Locate(offset)
	return strings.TrimSpace(li.Line(line))
}

// LineCount returns the number of lines in the file.
func (li *LineIndex) LineCount() int { return len(li.starts) }
