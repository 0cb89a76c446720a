package main

import "sync/atomic"

// ServerStats holds the running counters mirrored into Prometheus. Every
// field is an atomic so the hot request path never takes a lock just to
// bump a counter.
type ServerStats struct {
	existsTotal      atomic.Uint64
	notFoundTotal    atomic.Uint64
	rateLimitedTotal atomic.Uint64
	oversizeTotal    atomic.Uint64
	errorsTotal      atomic.Uint64

	cacheHitsTotal   atomic.Uint64
	cacheMissesTotal atomic.Uint64

	droppedTotal          atomic.Uint64
	tlsHandshakeFailTotal atomic.Uint64

	activeConnections atomic.Int64
}

func (s *ServerStats) incExists()      { s.existsTotal.Add(1) }
func (s *ServerStats) incNotFound()    { s.notFoundTotal.Add(1) }
func (s *ServerStats) incRateLimited() { s.rateLimitedTotal.Add(1) }
func (s *ServerStats) incOversize()    { s.oversizeTotal.Add(1) }
func (s *ServerStats) incErrors()      { s.errorsTotal.Add(1) }

func (s *ServerStats) incCacheHit()  { s.cacheHitsTotal.Add(1) }
func (s *ServerStats) incCacheMiss() { s.cacheMissesTotal.Add(1) }

func (s *ServerStats) incDropped()          { s.droppedTotal.Add(1) }
func (s *ServerStats) incTLSHandshakeFail() { s.tlsHandshakeFailTotal.Add(1) }
func (s *ServerStats) setActive(n int64)    { s.activeConnections.Store(n) }

// Snapshot is a point-in-time copy of the counters; the Prometheus
// collector in metrics.go takes one on every scrape.
type Snapshot struct {
	Exists, NotFound, RateLimited, Oversize, Errors uint64
	CacheHits, CacheMisses                          uint64
	Dropped, TLSHandshakeFailures                   uint64
	ActiveConnections                               int64
}

func (s *ServerStats) Snapshot() Snapshot {
	return Snapshot{
		Exists:               s.existsTotal.Load(),
		NotFound:             s.notFoundTotal.Load(),
		RateLimited:          s.rateLimitedTotal.Load(),
		Oversize:             s.oversizeTotal.Load(),
		Errors:               s.errorsTotal.Load(),
		CacheHits:            s.cacheHitsTotal.Load(),
		CacheMisses:          s.cacheMissesTotal.Load(),
		Dropped:              s.droppedTotal.Load(),
		TLSHandshakeFailures: s.tlsHandshakeFailTotal.Load(),
		ActiveConnections:    s.activeConnections.Load(),
	}
}
