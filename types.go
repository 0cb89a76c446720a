package main

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Response lines written back to the client. Each is sent verbatim followed
// by a single '\n'.
const (
	respExists      = "STRING EXISTS"
	respNotFound    = "STRING NOT FOUND"
	respRateLimited = "RATE LIMIT EXCEEDED"
	respError       = "ERROR"
)

// BytePool reuses read buffers across connections instead of allocating one
// per connection, sized for this protocol's single buffer per connection
// rather than many small per-command buffers.
type BytePool struct {
	pool sync.Pool
}

// Server is the main server structure. It owns the listener, the line index
// (fast mode only, behind dataSource), the lookup cache, the rate limiter
// and the TLS material, and hands connections to a fixed-size pool of
// workers.
type Server struct {
	config *Config
	logger *logrus.Logger

	dataSource DataSource
	cache      *LookupCache
	limiter    *RateLimiter
	tlsMat     *TLSMaterial

	stats    *ServerStats
	bytePool *BytePool

	listener net.Listener
	connCh   chan net.Conn

	running atomic.Bool
	wg      sync.WaitGroup

	activeConns sync.Map // net.Conn -> struct{}
	activeCount atomic.Int64

	metricsSrv *metricsServer

	// fatalCh carries a runtime-fatal error out of acceptLoop (e.g. Accept
	// failing repeatedly with no sign of recovery) so the CLI layer can
	// exit(2) instead of the server silently wedging.
	fatalCh chan error
}
