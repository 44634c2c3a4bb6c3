package cliutil

import (
	"os"
	"strconv"

	"golang.org/x/term"
)

// GetTerminalWidth returns the width that help text should be wrapped to, or
// 0 for "don't wrap".
func GetTerminalWidth() int {
	// Obey COLUMNS if the shell or the user set it.
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil {
		return cols
	}
	if cols, _, err := term.GetSize(1); err == nil {
		return cols
	}
	// stdout is a terminal but we couldn't size it.
	if term.IsTerminal(1) {
		return 80
	}
	return 0
}
