package main

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

// DataSource is the abstraction over "where lines come from for a query".
// There are exactly two implementations, selected once at startup from
// Config.RereadOnQuery: fastDataSource (index-backed, cacheable) and
// rereadDataSource (fresh scan per query, never cacheable).
type DataSource interface {
	Contains(query []byte) (bool, error)
}

// fastDataSource answers from a pre-built, immutable LineIndex.
type fastDataSource struct {
	index *LineIndex
}

func newFastDataSource(index *LineIndex) *fastDataSource {
	return &fastDataSource{index: index}
}

func (d *fastDataSource) Contains(query []byte) (bool, error) {
	return d.index.Contains(query), nil
}

// rereadDataSource answers by streaming the data file fresh on every call.
// It never caches and never holds the file open between queries, since the
// backing file may have been rewritten between one query and the next.
type rereadDataSource struct {
	path       string
	bufferSize int
}

func newRereadDataSource(path string, bufferSize int) *rereadDataSource {
	return &rereadDataSource{path: path, bufferSize: bufferSize}
}

func (d *rereadDataSource) Contains(query []byte) (bool, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return false, &IoError{Op: "open data_path", Err: err}
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, d.bufferSize)
	for {
		raw, err := reader.ReadBytes('\n')
		if len(raw) > 0 {
			line := normalizeLine(raw)
			if len(line) > 0 && bytes.Equal(line, query) {
				return true, nil
			}
		}
		if err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, &IoError{Op: "read data_path", Err: err}
		}
	}
}
