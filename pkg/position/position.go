package position

import (
	"fmt"
	"strings"
)

// Place is a zero-based line and column. The column unit is decided by the
// Encoding the caller addresses the document with.
type Place struct {
	Line      int
	Character int
}

type Range struct {
	Start Place
	End   Place
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Before reports whether p sorts strictly before o.
func (p Place) Before(o Place) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Character < o.Character
}

// Contains reports whether the place falls inside the half-open range.
func (r Range) Contains(p Place) bool {
	return !p.Before(r.Start) && p.Before(r.End)
}

// Lines indexes the line starts of a document so callers can address it by
// line number. Line text never includes the terminator (\n or \r\n).
type Lines struct {
	content string
	starts  []int
}

func NewLines(content string) *Lines {
	starts := make([]int, 1, strings.Count(content, "\n")+1)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Lines{content: content, starts: starts}
}

func (l *Lines) Content() string {
	return l.content
}

func (l *Lines) LineCount() int {
	return len(l.starts)
}

// LineText returns the text of line i without its terminator. Out of range
// lines are empty.
func (l *Lines) LineText(i int) string {
	if i < 0 || i >= len(l.starts) {
		return ""
	}
	end := len(l.content)
	if i+1 < len(l.starts) {
		end = l.starts[i+1] - 1
	}
	line := l.content[l.starts[i]:end]
	return strings.TrimSuffix(line, "\r")
}

// Offset converts a place addressed in enc into a byte offset into the
// content. Lines past the end clamp to the end of the content and columns
// past the end of a line clamp to the end of that line.
func (l *Lines) Offset(p Place, enc Encoding) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(l.starts) {
		return len(l.content)
	}
	return l.starts[p.Line] + enc.ToByteOffset(l.LineText(p.Line), p.Character)
}

// ApplyEdit replaces the text covered by r (addressed in enc) with text.
func ApplyEdit(content string, r Range, text string, enc Encoding) string {
	lines := NewLines(content)
	start := lines.Offset(r.Start, enc)
	end := lines.Offset(r.End, enc)
	if end < start {
		start, end = end, start
	}
	return content[:start] + text + content[end:]
}
