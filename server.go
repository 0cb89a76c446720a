package main

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// NewServer builds a Server from a validated Config and a ready logger. It
// reads the data file to build the LineIndex (fast mode only) and loads the
// TLS material when enabled; binding the listener happens in Start.
func NewServer(config *Config, logger *logrus.Logger) (*Server, error) {
	s := &Server{
		config:   config,
		logger:   logger,
		stats:    &ServerStats{},
		bytePool: NewBytePool(),
		limiter:  NewRateLimiter(config.RateLimitEnabled, config.RequestsPerMinute),
		fatalCh:  make(chan error, 1),
	}

	if config.RereadOnQuery {
		s.dataSource = newRereadDataSource(config.DataPath, config.BufferSize)
	} else {
		index, err := BuildLineIndex(config.DataPath, config.BufferSize)
		if err != nil {
			return nil, err
		}
		s.dataSource = newFastDataSource(index)

		cache, err := NewLookupCache(config.CacheCapacity)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}

	if config.TLSEnabled {
		tlsMat, err := LoadTLSMaterial(config.TLSCert, config.TLSKey, config.TLSWatch, logger)
		if err != nil {
			return nil, err
		}
		s.tlsMat = tlsMat
	}

	if config.MetricsEnabled {
		s.metricsSrv = newMetricsServer(config.MetricsAddr, s.stats, logger)
	}

	return s, nil
}

// Start binds the listener and begins accepting connections. It returns
// once the listener is bound; the accept loop and workers run in the
// background.
func (s *Server) Start() error {
	s.running.Store(true)
	if err := s.startListener(); err != nil {
		s.running.Store(false)
		return err
	}

	if s.metricsSrv != nil {
		s.metricsSrv.start()
	}

	s.logger.WithField("config", s.config.String()).Info("server started")
	return nil
}

// Stop drains in-flight connections up to Config.ShutdownGrace, then closes
// whatever remains. It is safe to call once.
func (s *Server) Stop() {
	s.running.Store(false)

	if s.listener != nil {
		s.listener.Close()
	}

	graceDeadline := time.Now().Add(s.config.ShutdownGrace)
	s.activeConns.Range(func(key, _ any) bool {
		key.(net.Conn).SetDeadline(graceDeadline)
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.config.ShutdownGrace):
		s.logger.Warn("shutdown grace period elapsed, closing remaining connections")
		s.activeConns.Range(func(key, _ any) bool {
			key.(net.Conn).Close()
			return true
		})
		<-done
	}

	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.tlsMat != nil {
		s.tlsMat.Close()
	}
	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metricsSrv.stop(ctx); err != nil {
			s.logger.WithError(err).Warn("metrics server shutdown error")
		}
	}

	s.logger.Info("server stopped")
}
