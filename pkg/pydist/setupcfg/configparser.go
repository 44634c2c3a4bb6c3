// Package setupcfg reads project metadata from a setup.cfg file, the
// declarative half of a setuptools project.
package setupcfg

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// File is a parsed INI-style file: section name -> option name -> value.
type File map[string]Section

type Section map[string]string

// Get returns the option's value, or "" when the section or option is absent.
func (f File) Get(section, option string) string {
	return f[section][strings.ToLower(option)]
}

// parse mimics Python's configparser with its setuptools-relevant defaults:
// "=" and ":" delimiters, "#" and ";" comments, indented continuation lines
// folding into multi-line values, case-folded option names, duplicate
// sections and options rejected.
func parse(fp io.Reader) (File, error) {
	config := make(File)

	var (
		curIndentLevel int
		curSection     Section
		curKey         string
		curVal         []string
	)

	flushKV := func() {
		if curVal != nil {
			curSection[curKey] = strings.TrimRight(strings.Join(curVal, "\n"), "\n")
			curKey = ""
			curVal = nil
		}
	}

	lines := bufio.NewReader(fp)
	lineno := 0
	keepGoing := true
	for keepGoing {
		line, err := lines.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			keepGoing = false
		}
		lineno++

		isComment := false
		for _, commentPrefix := range []string{"#", ";"} {
			if strings.HasPrefix(strings.TrimSpace(line), commentPrefix) {
				isComment = true
				break
			}
		}
		if isComment {
			continue
		}
		value := strings.TrimSpace(line)
		if value == "" {
			// a blank line inside a value stays part of the value
			if curVal != nil {
				curVal = append(curVal, value)
			}
			continue
		}

		lineIndentLevel := 0
		for i, r := range line {
			if !unicode.IsSpace(r) {
				lineIndentLevel = i
				break
			}
		}
		switch {
		case curVal != nil && lineIndentLevel > curIndentLevel:
			curVal = append(curVal, value)
		case strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]"):
			flushKV()
			curIndentLevel = lineIndentLevel
			sectName := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
			if _, exists := config[sectName]; exists {
				return nil, fmt.Errorf("line %d: duplicate section name %q", lineno, sectName)
			}
			config[sectName] = make(Section)
			curSection = config[sectName]
		default:
			flushKV()
			curIndentLevel = lineIndentLevel
			if curSection == nil {
				return nil, fmt.Errorf("line %d: no section header", lineno)
			}
			sepPos := len(value)
			sepLen := 0
			for _, sep := range []string{"=", ":"} {
				if index := strings.Index(value, sep); index >= 0 && index < sepPos {
					sepPos = index
					sepLen = len(sep)
				}
			}
			if sepPos == len(value) {
				return nil, fmt.Errorf("line %d: invalid line: %q", lineno, value)
			}
			curKey = strings.ToLower(strings.TrimSpace(value[:sepPos]))
			curVal = []string{strings.TrimSpace(value[sepPos+sepLen:])}
			if _, exists := curSection[curKey]; exists {
				return nil, fmt.Errorf("line %d: duplicate option name %q", lineno, curKey)
			}
		}
	}
	flushKV()

	return config, nil
}
