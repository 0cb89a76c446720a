package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlerServer(t *testing.T, maxQueryBytes int) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxQueryBytes = maxQueryBytes
	return &Server{
		config:   cfg,
		bytePool: NewBytePool(),
	}
}

func TestReadQueryStripsNewlineAndCR(t *testing.T) {
	s := newTestHandlerServer(t, 1024)
	reader := bufio.NewReader(strings.NewReader("hello world\r\n"))

	_, q, err := s.readQuery(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(q))
}

func TestReadQueryOversizeReturnsNilWithoutError(t *testing.T) {
	s := newTestHandlerServer(t, 4)
	reader := bufio.NewReader(strings.NewReader("way too long to fit\n"))

	_, q, err := s.readQuery(reader)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestReadQueryPropagatesEOFOnUnterminatedClosedStream(t *testing.T) {
	s := newTestHandlerServer(t, 1024)
	reader := bufio.NewReader(strings.NewReader("no newline here"))

	_, _, err := s.readQuery(reader)
	assert.Error(t, err)
}
