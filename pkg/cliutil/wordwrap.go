package cliutil

import (
	"strings"
)

// Wrap wraps the string s to a maximum width w.  Pass w == 0 to do no
// wrapping.
//
// To leave some slop and avoid a short word ending up on a line by itself,
// lines are actually wrapped to w-5.
func Wrap(w int, s string) string {
	return wrap(0, w, s)
}

// WrapIndent is Wrap with a leading indent of i spaces on every line but the
// first; indenting the first line is left to the caller.
func WrapIndent(i, w int, s string) string {
	return wrap(i, w, s)
}

func wrap(indent, width int, str string) string {
	if width <= 0 {
		return str
	}
	limit := width - 5
	if limit <= indent {
		return str
	}
	prefix := strings.Repeat(" ", indent)

	var out strings.Builder
	for i, paragraph := range strings.Split(str, "\n\n") {
		if i > 0 {
			out.WriteString("\n" + prefix + "\n" + prefix)
		}
		lineLen := indent
		for j, word := range strings.Fields(paragraph) {
			switch {
			case j == 0:
				// nothing
			case lineLen+1+len(word) > limit:
				out.WriteString("\n" + prefix)
				lineLen = indent
			default:
				out.WriteString(" ")
				lineLen++
			}
			out.WriteString(word)
			lineLen += len(word)
		}
	}
	return out.String()
}
