package main

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

// LineIndex is the set of distinct, non-empty lines found in the data file
// at build time. It answers full-line membership queries in O(1) expected
// time and is immutable once built.
type LineIndex struct {
	lines map[string]struct{}
}

// BuildLineIndex reads path in binary mode with a bufSize buffer, splits it
// on '\n', strips one trailing '\r' per record, discards empty records, and
// collapses duplicates into a set.
func BuildLineIndex(path string, bufSize int) (*LineIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Reason: "cannot open data_path: " + err.Error()}
	}
	defer f.Close()

	idx := &LineIndex{lines: make(map[string]struct{})}

	reader := bufio.NewReaderSize(f, bufSize)
	for {
		raw, err := reader.ReadBytes('\n')
		if len(raw) > 0 {
			line := normalizeLine(raw)
			if len(line) > 0 {
				idx.lines[string(line)] = struct{}{}
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, &ConfigError{Reason: "error reading data_path: " + err.Error()}
		}
	}

	return idx, nil
}

// Contains reports whether query matches a full line in the index,
// byte-for-byte, after the caller has already stripped a trailing '\r'.
func (idx *LineIndex) Contains(query []byte) bool {
	_, ok := idx.lines[string(query)]
	return ok
}

// Len returns the number of distinct non-empty lines in the index.
func (idx *LineIndex) Len() int { return len(idx.lines) }

// normalizeLine strips one trailing '\n' and an optional trailing '\r' from
// a raw record read off disk or a socket.
func normalizeLine(raw []byte) []byte {
	line := bytes.TrimSuffix(raw, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line
}
