package main

import (
	"crypto/tls"
	"fmt"
	"net"
	"runtime/debug"
	"time"
)

// Backoff bounds for retrying a failed Accept. Mirrors the pattern net/http's
// Server.Serve uses for temporary accept errors: start small, double, cap,
// and give up once the error has stopped looking temporary.
const (
	acceptBackoffMin     = 5 * time.Millisecond
	acceptBackoffMax     = 1 * time.Second
	maxConsecutiveAccept = 10
)

// startListener binds the configured host:port, wrapping it in TLS when
// enabled, and starts the fixed-size worker pool plus the accept loop that
// feeds it. The one-goroutine-per-connection style of a simple accept loop
// is generalized here into a bounded pool of long-lived workers precisely
// so max_workers is an enforceable admission cap rather than an unbounded
// fan-out.
func (s *Server) startListener() error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return &ConfigError{Reason: "failed to bind listener: " + err.Error()}
	}

	if s.config.TLSEnabled {
		tlsConfig := &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: s.tlsMat.GetCertificate,
		}
		ln = tls.NewListener(ln, tlsConfig)
	}

	s.listener = ln
	s.connCh = make(chan net.Conn)

	for i := 0; i < s.config.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts connections and dispatches them to the worker pool,
// dropping any connection that arrives while every worker is busy.
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	defer close(s.connCh)

	var backoff time.Duration
	var consecutive int

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || isClosedConnError(err) {
				return
			}

			consecutive++
			if consecutive >= maxConsecutiveAccept {
				s.logger.WithError(err).WithField("consecutive_failures", consecutive).
					Error("accept failing persistently, giving up")
				select {
				case s.fatalCh <- err:
				default:
				}
				return
			}

			if backoff == 0 {
				backoff = acceptBackoffMin
			} else {
				backoff *= 2
			}
			if backoff > acceptBackoffMax {
				backoff = acceptBackoffMax
			}
			s.logger.WithError(err).WithField("backoff", backoff).Warn("accept error, retrying")
			time.Sleep(backoff)
			continue
		}

		backoff = 0
		consecutive = 0

		if tlsConn, ok := conn.(*tls.Conn); ok {
			tlsConn.SetDeadline(time.Now().Add(s.config.ReadTimeout))
			err := tlsConn.Handshake()
			tlsConn.SetDeadline(time.Time{})
			if err != nil {
				s.stats.incTLSHandshakeFail()
				s.logger.WithError(err).Debug("tls handshake failed")
				conn.Close()
				continue
			}
		}

		select {
		case s.connCh <- conn:
		default:
			capErr := &CapacityError{}
			s.logger.WithError(capErr).Debug("connection dropped at admission")
			s.stats.incDropped()
			conn.Close()
		}
	}
}

// worker pulls connections off connCh for the life of the server, handling
// one at a time, recovering from any panic raised while handling a
// connection so one bad request can never take the process down.
func (s *Server) worker() {
	defer s.wg.Done()

	for conn := range s.connCh {
		s.runConnection(conn)
	}
}

func (s *Server) runConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).WithField("stack", string(debug.Stack())).
				Error("recovered panic handling connection")
			conn.Close()
		}
	}()

	s.startConnection(conn)
	s.handleConnection(conn)
}

func (s *Server) startConnection(conn net.Conn) {
	s.activeConns.Store(conn, struct{}{})
	n := s.activeCount.Add(1)
	s.stats.setActive(n)
}

func (s *Server) finishConnection(conn net.Conn) {
	conn.Close()
	s.activeConns.Delete(conn)
	n := s.activeCount.Add(-1)
	s.stats.setActive(n)
}
